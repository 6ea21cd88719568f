package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestProbeClassifiesFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMonitor(MonitorConfig{
		ProbeURL: srv.URL,
		// Loopback round trips are well under a second.
		FastRTT: time.Second,
		SlowRTT: 2 * time.Second,
	})
	m.probe(context.Background())

	status := m.Status()
	if !status.Online {
		t.Error("expected online")
	}
	if status.Condition != ConditionFast {
		t.Errorf("expected fast, got %s", status.Condition)
	}
	if status.RTT <= 0 {
		t.Error("expected positive RTT")
	}
}

func TestProbeClassifiesSlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMonitor(MonitorConfig{
		ProbeURL: srv.URL,
		FastRTT:  time.Millisecond,
		SlowRTT:  5 * time.Millisecond,
	})
	m.probe(context.Background())

	if got := m.Status().Condition; got != ConditionSlow {
		t.Errorf("expected slow, got %s", got)
	}
}

func TestProbeFailureGoesOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	m := NewMonitor(MonitorConfig{ProbeURL: srv.URL})
	m.probe(context.Background())

	status := m.Status()
	if status.Online {
		t.Error("expected offline after failed probe")
	}
	if status.Condition != ConditionOffline {
		t.Errorf("expected offline condition, got %s", status.Condition)
	}
}

func TestSetOnline(t *testing.T) {
	m := NewMonitor(MonitorConfig{})

	m.SetOnline(false)
	if m.Status().Online {
		t.Error("expected offline")
	}

	m.SetOnline(true)
	status := m.Status()
	if !status.Online {
		t.Error("expected online")
	}
	if status.Condition != ConditionNormal {
		t.Errorf("expected normal after going online, got %s", status.Condition)
	}
}

func TestSubscribeReplaysAndNotifies(t *testing.T) {
	m := NewMonitor(MonitorConfig{})

	var seen []Condition
	unsubscribe := m.Subscribe(func(s Status) {
		seen = append(seen, s.Condition)
	})

	if len(seen) != 1 || seen[0] != ConditionNormal {
		t.Fatalf("expected immediate replay of normal, got %v", seen)
	}

	m.SetCondition(ConditionSlow)
	m.SetCondition(ConditionSlow) // no change, no notification
	m.SetCondition(ConditionOffline)

	want := []Condition{ConditionNormal, ConditionSlow, ConditionOffline}
	if len(seen) != len(want) {
		t.Fatalf("expected %d notifications, got %d", len(want), len(seen))
	}
	for i, w := range want {
		if seen[i] != w {
			t.Errorf("notification %d: expected %s, got %s", i, w, seen[i])
		}
	}

	unsubscribe()
	m.SetCondition(ConditionFast)
	if len(seen) != len(want) {
		t.Error("expected no notifications after unsubscribe")
	}
}

func TestMonitorLifecycle(t *testing.T) {
	m := NewMonitor(MonitorConfig{})

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Start(ctx); err != nil {
		t.Fatalf("second start: %v", err)
	}

	h := m.Health(ctx)
	if h.Status != "healthy" {
		t.Errorf("expected healthy, got %s", h.Status)
	}

	m.SetOnline(false)
	if h := m.Health(ctx); h.Status != "unhealthy" {
		t.Errorf("expected unhealthy when offline, got %s", h.Status)
	}

	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
