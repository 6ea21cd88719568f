package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/openturf/turfkit/logger"
)

// Refresh endpoint path, relative to the API base URL.
const refreshPath = "/auth/refresh"

// Refresh errors.
var (
	// ErrNoRefreshToken is returned when no refresh credential is stored.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrRefreshFailed is returned when the exchange was rejected or the
	// response payload was malformed. Stored credentials are cleared.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// RefresherConfig configures a Refresher.
type RefresherConfig struct {
	// BaseURL is the game API base URL.
	BaseURL string
	// Timeout bounds the refresh call. Defaults to 10s.
	Timeout time.Duration
}

// Refresher exchanges the stored refresh token for a fresh credential
// pair. Concurrent callers coalesce into a single in-flight exchange:
// a caller whose stale token has already been replaced by another
// goroutine returns immediately without a second network call.
type Refresher struct {
	config     RefresherConfig
	store      Store
	httpClient *http.Client
	log        *logger.Logger

	mu sync.Mutex
}

// NewRefresher creates a refresh coordinator bound to a token store.
// httpClient may be nil, in which case a default client is used.
func NewRefresher(cfg RefresherConfig, store Store, httpClient *http.Client, log *logger.Logger) *Refresher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Refresher{
		config:     cfg,
		store:      store,
		httpClient: httpClient,
		log:        log.WithComponent("auth"),
	}
}

// refreshResponse is the expected payload from the refresh endpoint.
type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh performs the token exchange unconditionally (subject to
// coalescing against the current stored access token).
func (r *Refresher) Refresh(ctx context.Context) error {
	return r.RefreshIfStale(ctx, r.store.AccessToken())
}

// RefreshIfStale refreshes the credentials unless the stored access
// token already differs from staleAccess, which means another caller
// completed a refresh in the meantime.
func (r *Refresher) RefreshIfStale(ctx context.Context, staleAccess string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current := r.store.AccessToken(); current != "" && current != staleAccess {
		r.log.Debug("token already refreshed by concurrent caller")
		return nil
	}

	refresh := r.store.RefreshToken()
	if refresh == "" {
		return ErrNoRefreshToken
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"refresh_token": refresh})
	if err != nil {
		return fmt.Errorf("encode refresh payload: %w", err)
	}

	url := strings.TrimRight(r.config.BaseURL, "/") + refreshPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.Warn("refresh request failed", logger.ErrorFields("refresh", err))
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrRefreshFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.store.Clear()
		r.log.Warn("refresh rejected, credentials cleared",
			logger.Fields(logger.FieldStatus, resp.StatusCode))
		return fmt.Errorf("%w: HTTP %d", ErrRefreshFailed, resp.StatusCode)
	}

	var tokens refreshResponse
	if err := json.Unmarshal(body, &tokens); err != nil || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		r.store.Clear()
		r.log.Warn("refresh returned malformed payload, credentials cleared")
		return fmt.Errorf("%w: malformed token payload", ErrRefreshFailed)
	}

	r.store.SetTokens(tokens.AccessToken, tokens.RefreshToken)
	r.log.Debug("tokens refreshed")
	return nil
}
