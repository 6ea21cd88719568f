package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openturf/turfkit/auth"
	"github.com/openturf/turfkit/resilience"
)

type profile struct {
	Username string `json:"username"`
	XP       int    `json:"xp"`
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
		Backoff: resilience.RetryConfig{
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			BackoffFactor:  2.0,
			JitterMax:      time.Millisecond,
		},
	}, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestGetSuccess(t *testing.T) {
	var gotCorrelation, gotAttempt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCorrelation = r.Header.Get("X-Correlation-ID")
		gotAttempt = r.Header.Get("X-Request-Attempt")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profile{Username: "runner", XP: 1200})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	res := Get[profile](context.Background(), c, "/players/me")

	if !res.OK {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if res.Status != 200 {
		t.Errorf("expected status 200, got %d", res.Status)
	}
	if res.Data.Username != "runner" || res.Data.XP != 1200 {
		t.Errorf("unexpected data: %+v", res.Data)
	}
	if res.CorrelationID == "" {
		t.Error("expected a correlation ID")
	}
	if gotCorrelation != res.CorrelationID {
		t.Errorf("correlation header %q does not match result %q", gotCorrelation, res.CorrelationID)
	}
	if gotAttempt != "1" {
		t.Errorf("expected attempt header 1, got %q", gotAttempt)
	}
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	correlations := make(map[string]bool)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlations[r.Header.Get("X-Correlation-ID")] = true
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"username":"runner","xp":1}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	res := Get[profile](context.Background(), c, "/players/me")

	if !res.OK {
		t.Fatalf("expected eventual success, got %v", res.Err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
	if len(correlations) != 1 {
		t.Errorf("correlation ID changed across attempts: %v", correlations)
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	res := Get[profile](context.Background(), c, "/territories/nope")

	if res.OK {
		t.Fatal("expected failure")
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 attempt for a 404, got %d", calls.Load())
	}
	if res.Status != 404 {
		t.Errorf("expected status 404, got %d", res.Status)
	}
	if res.Err.Code != ErrCodeClient || res.Err.Retryable {
		t.Errorf("unexpected error classification: %+v", res.Err)
	}
}

func TestNoRetriesOption(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	res := Get[profile](context.Background(), c, "/leaderboard", Options{Retries: NoRetries})

	if res.OK {
		t.Fatal("expected failure")
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", calls.Load())
	}
	if res.Err.Code != ErrCodeServer {
		t.Errorf("expected server error, got %s", res.Err.Code)
	}
}

func TestUnauthorizedTriggersRefreshAndReplay(t *testing.T) {
	var resourceCalls, refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","refresh_token":"r2"}`))
	})
	mux.HandleFunc("/players/me", func(w http.ResponseWriter, r *http.Request) {
		resourceCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"username":"runner","xp":7}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := auth.NewMemoryStore()
	store.SetTokens("stale", "r1")

	c := newTestClient(t, srv.URL, WithTokenStore(store))
	res := Get[profile](context.Background(), c, "/players/me", Options{Retries: NoRetries})

	if !res.OK {
		t.Fatalf("expected success after refresh, got %v", res.Err)
	}
	if refreshCalls.Load() != 1 {
		t.Errorf("expected 1 refresh call, got %d", refreshCalls.Load())
	}
	if resourceCalls.Load() != 2 {
		t.Errorf("expected original attempt plus replay, got %d calls", resourceCalls.Load())
	}
	if got := store.AccessToken(); got != "fresh" {
		t.Errorf("expected rotated access token, got %q", got)
	}
}

func TestUnauthorizedRefreshesAtMostOnce(t *testing.T) {
	var refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","refresh_token":"r2"}`))
	})
	mux.HandleFunc("/players/me", func(w http.ResponseWriter, r *http.Request) {
		// Still rejected after the refresh. No second refresh may happen.
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := auth.NewMemoryStore()
	store.SetTokens("stale", "r1")

	c := newTestClient(t, srv.URL, WithTokenStore(store))
	res := Get[profile](context.Background(), c, "/players/me", Options{Retries: 1})

	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Status != 401 {
		t.Errorf("expected status 401, got %d", res.Status)
	}
	if res.Err.Code != ErrCodeAuth {
		t.Errorf("expected auth error, got %s", res.Err.Code)
	}
	if refreshCalls.Load() != 1 {
		t.Errorf("expected exactly 1 refresh for the logical request, got %d", refreshCalls.Load())
	}
}

func TestSkipAuthOmitsAuthorization(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	store := auth.NewMemoryStore()
	store.SetTokens("secret", "r1")

	c := newTestClient(t, srv.URL, WithTokenStore(store))
	res := Get[profile](context.Background(), c, "/health", Options{SkipAuth: true})

	if !res.OK {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if gotAuth != "" {
		t.Errorf("expected no Authorization header, got %q", gotAuth)
	}
}

func TestCircuitOpenShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cbCfg := resilience.DefaultCircuitBreakerConfig("api")
	cbCfg.MaxFailures = 1
	cbCfg.Timeout = time.Hour

	c, err := New(Config{
		BaseURL:        srv.URL,
		CircuitBreaker: &cbCfg,
		Backoff: resilience.RetryConfig{
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
			BackoffFactor:  1.0,
			JitterMax:      time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	first := Get[profile](context.Background(), c, "/players/me", Options{Retries: NoRetries})
	if first.OK {
		t.Fatal("expected first request to fail")
	}
	served := calls.Load()

	second := Get[profile](context.Background(), c, "/players/me", Options{Retries: NoRetries})
	if second.OK {
		t.Fatal("expected rejection while circuit open")
	}
	if calls.Load() != served {
		t.Error("expected no network I/O while circuit open")
	}
	if second.Status != 503 {
		t.Errorf("expected synthetic 503, got %d", second.Status)
	}
	if !IsCircuitOpen(second.Err) {
		t.Errorf("expected circuit-open error, got %v", second.Err)
	}
	if second.CorrelationID == "" {
		t.Error("expected a correlation ID on the synthetic result")
	}
}

func TestAttemptTimeoutClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	res := Get[profile](context.Background(), c, "/slow", Options{
		Timeout: 5 * time.Millisecond,
		Retries: NoRetries,
	})

	if res.OK {
		t.Fatal("expected timeout failure")
	}
	if res.Status != 0 {
		t.Errorf("expected status 0 for a transport-level failure, got %d", res.Status)
	}
	if !IsTimeout(res.Err) {
		t.Errorf("expected timeout classification, got %s", res.Err.Code)
	}
	if !res.Err.Retryable {
		t.Error("timeouts should be retryable")
	}
}

func TestConnectionErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := newTestClient(t, srv.URL)
	res := Get[profile](context.Background(), c, "/players/me", Options{Retries: NoRetries})

	if res.OK {
		t.Fatal("expected connection failure")
	}
	if !IsConnection(res.Err) {
		t.Errorf("expected connection classification, got %s", res.Err.Code)
	}
	if res.Status != 0 {
		t.Errorf("expected status 0, got %d", res.Status)
	}
}

func TestPlainTextResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	res := Get[string](context.Background(), c, "/ping")

	if !res.OK {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if res.Data != "pong" {
		t.Errorf("expected %q, got %q", "pong", res.Data)
	}
}

func TestPostEncodesJSONBody(t *testing.T) {
	type claim struct {
		TerritoryID string `json:"territory_id"`
	}

	var got claim
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"username":"runner","xp":50}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	res := Post[profile](context.Background(), c, "/territories/claim", claim{TerritoryID: "t-42"})

	if !res.OK {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if res.Status != 201 {
		t.Errorf("expected status 201, got %d", res.Status)
	}
	if got.TerritoryID != "t-42" {
		t.Errorf("body not encoded: %+v", got)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
}
