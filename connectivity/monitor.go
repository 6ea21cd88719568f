package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/openturf/turfkit/component"
	"github.com/openturf/turfkit/logger"
)

// MonitorConfig configures the network monitor.
type MonitorConfig struct {
	// ProbeURL is the endpoint probed to measure reachability and
	// latency (typically the API health endpoint). Empty disables
	// probing; the condition then stays at Normal until fed via
	// SetCondition or SetOnline.
	ProbeURL string `yaml:"probe_url" mapstructure:"probe_url"`

	// ProbeInterval is how often the probe runs. Defaults to 15s.
	ProbeInterval time.Duration `yaml:"probe_interval" mapstructure:"probe_interval"`

	// ProbeTimeout bounds a single probe. Defaults to 5s. A probe that
	// exceeds it counts as offline.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`

	// FastRTT is the latency below which the connection counts as fast.
	// Defaults to 150ms.
	FastRTT time.Duration `yaml:"fast_rtt" mapstructure:"fast_rtt"`

	// SlowRTT is the latency above which the connection counts as slow.
	// Defaults to 600ms.
	SlowRTT time.Duration `yaml:"slow_rtt" mapstructure:"slow_rtt"`

	// Logger receives monitor events. Nil disables logging.
	Logger *logger.Logger `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *MonitorConfig) ApplyDefaults() {
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = 15 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 5 * time.Second
	}
	if c.FastRTT <= 0 {
		c.FastRTT = 150 * time.Millisecond
	}
	if c.SlowRTT <= 0 {
		c.SlowRTT = 600 * time.Millisecond
	}
}

// Monitor tracks network condition. On platforms with native
// reachability signals, embedders push state in through SetOnline and
// SetCondition; otherwise a periodic latency probe against ProbeURL
// classifies the connection. Subscribers receive every status change
// and an immediate replay of the current status on subscription.
type Monitor struct {
	config     MonitorConfig
	httpClient *http.Client
	log        *logger.Logger

	mu          sync.Mutex
	status      Status
	subscribers map[int]func(Status)
	nextSubID   int
	stopCh      chan struct{}
	started     bool
}

// compile-time assertion
var _ component.Component = (*Monitor)(nil)

// NewMonitor creates a network monitor. The initial condition is Normal
// and online, matching the fallback when no connection API is available.
func NewMonitor(cfg MonitorConfig) *Monitor {
	cfg.ApplyDefaults()

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Monitor{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.ProbeTimeout},
		log:        log.WithComponent("connectivity"),
		status: Status{
			Online:    true,
			Condition: ConditionNormal,
			CheckedAt: time.Now(),
		},
		subscribers: make(map[int]func(Status)),
	}
}

// Name returns the component name.
func (m *Monitor) Name() string { return "connectivity-monitor" }

// Start begins periodic probing. A no-op when ProbeURL is empty.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	if m.config.ProbeURL == "" {
		return nil
	}

	m.probe(ctx)

	go func() {
		ticker := time.NewTicker(m.config.ProbeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				m.probe(context.Background())
			}
		}
	}()

	return nil
}

// Stop halts probing.
func (m *Monitor) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	m.started = false
	close(m.stopCh)
	return nil
}

// Health reports the monitor's view of the network.
func (m *Monitor) Health(_ context.Context) component.Health {
	status := m.Status()
	h := component.Health{Name: m.Name(), Status: component.StatusHealthy}
	switch status.Condition {
	case ConditionOffline:
		h.Status = component.StatusUnhealthy
		h.Message = "offline"
	case ConditionSlow:
		h.Status = component.StatusDegraded
		h.Message = "slow connection"
	}
	return h
}

// Status returns the current network status snapshot.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Subscribe registers a listener for status changes. The current status
// is replayed to the listener immediately. The returned function
// unsubscribes.
func (m *Monitor) Subscribe(fn func(Status)) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	current := m.status
	m.mu.Unlock()

	fn(current)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// SetOnline feeds an external reachability signal (e.g. an OS network
// callback). Going online without quality information lands on Normal.
func (m *Monitor) SetOnline(online bool) {
	if online {
		m.SetCondition(ConditionNormal)
	} else {
		m.SetCondition(ConditionOffline)
	}
}

// SetCondition feeds an externally determined network condition.
func (m *Monitor) SetCondition(cond Condition) {
	m.update(Status{
		Online:    cond != ConditionOffline,
		Condition: cond,
		CheckedAt: time.Now(),
	})
}

// probe measures one round trip and reclassifies the connection.
func (m *Monitor) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.config.ProbeURL, nil)
	if err != nil {
		return
	}

	start := time.Now()
	resp, err := m.httpClient.Do(req)
	rtt := time.Since(start)
	if err != nil {
		m.update(Status{Online: false, Condition: ConditionOffline, CheckedAt: time.Now()})
		return
	}
	_ = resp.Body.Close()

	cond := ConditionNormal
	switch {
	case rtt < m.config.FastRTT:
		cond = ConditionFast
	case rtt > m.config.SlowRTT:
		cond = ConditionSlow
	}

	m.update(Status{Online: true, Condition: cond, RTT: rtt, CheckedAt: time.Now()})
}

// update stores the new status and notifies subscribers on change.
func (m *Monitor) update(status Status) {
	m.mu.Lock()
	changed := m.status.Condition != status.Condition || m.status.Online != status.Online
	m.status = status

	var listeners []func(Status)
	if changed {
		listeners = make([]func(Status), 0, len(m.subscribers))
		for _, fn := range m.subscribers {
			listeners = append(listeners, fn)
		}
	}
	m.mu.Unlock()

	if !changed {
		return
	}

	m.log.Info("network condition changed", logger.Fields(
		logger.FieldCondition, status.Condition.String(),
		"online", status.Online,
		"rtt_ms", status.RTT.Milliseconds(),
	))

	for _, fn := range listeners {
		fn(status)
	}
}
