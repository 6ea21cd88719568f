package connectivity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openturf/turfkit/component"
	"github.com/openturf/turfkit/logger"
	"github.com/openturf/turfkit/observability"
	"github.com/openturf/turfkit/resilience"
)

// ErrQueueCleared is delivered to callers whose queued request was
// removed by ClearQueue before it could run.
var ErrQueueCleared = errors.New("request queue cleared")

// ManagerConfig configures the resilience manager.
type ManagerConfig struct {
	// MaxRetries is the default retry budget per operation. Defaults to 3.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0,lte=10"`

	// BaseRetryDelay seeds the exponential backoff. Defaults to 1s.
	BaseRetryDelay time.Duration `yaml:"base_retry_delay" mapstructure:"base_retry_delay"`

	// MaxRetryDelay caps the backoff. Defaults to 30s.
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" mapstructure:"max_retry_delay"`

	// BackoffFactor is the backoff multiplier. Defaults to 2.0.
	BackoffFactor float64 `yaml:"backoff_factor" mapstructure:"backoff_factor"`

	// JitterMax bounds the random jitter added to each delay. Defaults to 1s.
	JitterMax time.Duration `yaml:"jitter_max" mapstructure:"jitter_max"`

	// DrainInterval is how often the background timer attempts a queue
	// drain. Defaults to 30s.
	DrainInterval time.Duration `yaml:"drain_interval" mapstructure:"drain_interval"`

	// BatchSize is the base number of queued requests processed per
	// drain batch, scaled by the condition's batch multiplier. Defaults to 5.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size" validate:"gte=0,lte=100"`

	// BatchDelay is the pause between drain batches, so a recovering
	// connection is not saturated. Defaults to 500ms.
	BatchDelay time.Duration `yaml:"batch_delay" mapstructure:"batch_delay"`

	// StaleAge is the age past which a queued request counts as stale in
	// queue stats. Defaults to 5m.
	StaleAge time.Duration `yaml:"stale_age" mapstructure:"stale_age"`

	// Logger receives manager events. Nil disables logging.
	Logger *logger.Logger `yaml:"-" mapstructure:"-"`

	// Metrics receives queue depth and enqueue counts. Nil disables.
	Metrics *observability.Metrics `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *ManagerConfig) ApplyDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseRetryDelay <= 0 {
		c.BaseRetryDelay = time.Second
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = 30 * time.Second
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 2.0
	}
	if c.JitterMax <= 0 {
		c.JitterMax = time.Second
	}
	if c.DrainInterval <= 0 {
		c.DrainInterval = 30 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = 500 * time.Millisecond
	}
	if c.StaleAge <= 0 {
		c.StaleAge = 5 * time.Minute
	}
}

// ExecOptions configures a single resilient execution.
type ExecOptions struct {
	// Priority orders the request if it ends up queued. Defaults to Normal.
	Priority Priority
	// Timeout is the base per-attempt deadline. Defaults to 10s.
	Timeout time.Duration
	// AdaptToNetwork scales Timeout by the current condition's
	// multiplier (fast 1.0, normal 1.5, slow 3.0).
	AdaptToNetwork bool
	// MaxRetries overrides the manager's retry budget. Zero means the
	// manager default.
	MaxRetries int
}

func (o *ExecOptions) applyDefaults(cfg ManagerConfig) {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = cfg.MaxRetries
	}
}

// QueueStats summarizes the offline queue.
type QueueStats struct {
	// Total is the number of queued requests.
	Total int `json:"total"`
	// High, Normal and Low are per-priority counts.
	High   int `json:"high"`
	Normal int `json:"normal"`
	Low    int `json:"low"`
	// Stale counts requests older than the configured stale age.
	Stale int `json:"stale"`
	// Processing reports whether a drain pass is currently running.
	Processing bool `json:"processing"`
}

// Manager runs operations with network-condition-adapted parameters and
// queues them while offline. Construct one per application and inject
// it; there is no package-level singleton.
type Manager struct {
	config  ManagerConfig
	monitor *Monitor
	log     *logger.Logger
	queue   *requestQueue

	mu          sync.Mutex
	processing  bool
	started     bool
	stopCh      chan struct{}
	unsubscribe func()
}

// compile-time assertion
var _ component.Component = (*Manager)(nil)

// NewManager creates a resilience manager bound to a network monitor.
func NewManager(cfg ManagerConfig, monitor *Monitor) *Manager {
	cfg.ApplyDefaults()

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Manager{
		config:  cfg,
		monitor: monitor,
		log:     log.WithComponent("resilience-manager"),
		queue:   newRequestQueue(),
	}
}

// Name returns the component name.
func (m *Manager) Name() string { return "connectivity-manager" }

// Start begins the drain timer and hooks queue draining to online
// transitions.
func (m *Manager) Start(_ context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	wasOnline := true
	m.unsubscribe = m.monitor.Subscribe(func(s Status) {
		if s.Online && !wasOnline {
			m.log.Info("connectivity restored, draining queue", logger.Fields(
				logger.FieldQueueSize, m.queue.size()))
			go m.drain()
		}
		wasOnline = s.Online
	})

	go func() {
		ticker := time.NewTicker(m.config.DrainInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				if m.queue.size() > 0 && m.monitor.Status().Online {
					m.drain()
				}
			}
		}
	}()

	return nil
}

// Stop halts the drain timer. Queued requests stay queued.
func (m *Manager) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	m.started = false
	close(m.stopCh)
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	return nil
}

// Health reports queue pressure and connectivity.
func (m *Manager) Health(_ context.Context) component.Health {
	h := component.Health{Name: m.Name(), Status: component.StatusHealthy}
	if !m.monitor.Status().Online {
		h.Status = component.StatusDegraded
		h.Message = "offline, queuing requests"
	}
	return h
}

// Status proxies the monitor's current network status.
func (m *Manager) Status() Status {
	return m.monitor.Status()
}

// Execute runs op with condition-adapted resilience. While offline the
// operation is queued and Execute blocks until it eventually runs (or
// the queue is cleared, or ctx is done). Unlike the request pipeline,
// Execute propagates the final error to the caller.
func (m *Manager) Execute(ctx context.Context, op Operation, opts ...ExecOptions) error {
	o := ExecOptions{}
	if len(opts) > 0 {
		o = opts[0]
	}
	o.applyDefaults(m.config)

	status := m.monitor.Status()
	if !status.Online {
		return m.enqueueAndWait(ctx, op, o, o.MaxRetries, nil)
	}

	backoffCfg := resilience.RetryConfig{
		InitialBackoff: m.config.BaseRetryDelay,
		MaxBackoff:     m.config.MaxRetryDelay,
		BackoffFactor:  m.config.BackoffFactor,
		JitterMax:      m.config.JitterMax,
	}

	maxAttempts := o.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		timeout := o.Timeout
		if o.AdaptToNetwork {
			timeout = scale(timeout, status.Condition.TimeoutMultiplier())
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err := op(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Condition re-check: a drop to offline converts the remaining
		// budget into a queued request instead of retrying now.
		status = m.monitor.Status()
		if !status.Online {
			m.log.Info("went offline mid-retry, queuing remaining attempts", logger.Fields(
				logger.FieldAttempt, attempt,
				logger.FieldPriority, o.Priority.String(),
			))
			return m.enqueueAndWait(ctx, op, o, maxAttempts-attempt, err)
		}

		if attempt == maxAttempts {
			break
		}

		delay := scale(resilience.Backoff(attempt, backoffCfg), status.Condition.RetryDelayMultiplier())
		m.log.Debug("retrying operation", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldCondition, status.Condition.String(),
			"delay_ms", delay.Milliseconds(),
		))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// enqueueAndWait adds a request to the offline queue and blocks until
// it resolves.
func (m *Manager) enqueueAndWait(ctx context.Context, op Operation, o ExecOptions, retryBudget int, lastErr error) error {
	entry := &queuedRequest{
		id:         uuid.NewString(),
		op:         op,
		priority:   o.Priority,
		timeout:    o.Timeout,
		adapt:      o.AdaptToNetwork,
		enqueuedAt: time.Now(),
		maxRetries: retryBudget,
		lastErr:    lastErr,
		done:       make(chan error, 1),
	}
	m.queue.enqueue(entry)

	m.log.Info("request queued", logger.Fields(
		"id", entry.id,
		logger.FieldPriority, o.Priority.String(),
		logger.FieldQueueSize, m.queue.size(),
	))
	if m.config.Metrics != nil {
		m.config.Metrics.RecordQueued(ctx, o.Priority.String())
		m.config.Metrics.RecordQueueDepth(ctx, int64(m.queue.size()))
	}

	select {
	case <-ctx.Done():
		// The entry stays queued; its buffered done channel absorbs the
		// eventual outcome nobody is waiting for.
		return ctx.Err()
	case err := <-entry.done:
		return err
	}
}

// drain processes the queue in condition-adaptive batches. Only one
// drain pass runs at a time.
func (m *Manager) drain() {
	m.mu.Lock()
	if m.processing {
		m.mu.Unlock()
		return
	}
	m.processing = true
	stopCh := m.stopCh
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.processing = false
		m.mu.Unlock()
	}()

	for {
		status := m.monitor.Status()
		if !status.Online {
			return
		}

		batchSize := int(float64(m.config.BatchSize) * status.Condition.BatchMultiplier())
		if batchSize < 1 {
			batchSize = 1
		}

		batch := m.queue.dequeueBatch(batchSize)
		if len(batch) == 0 {
			return
		}

		m.log.Debug("draining queue batch", logger.Fields(
			"batch", len(batch),
			logger.FieldQueueSize, m.queue.size(),
			logger.FieldCondition, status.Condition.String(),
		))

		for _, entry := range batch {
			m.runQueued(entry, status.Condition)
		}
		if m.config.Metrics != nil {
			m.config.Metrics.RecordQueueDepth(context.Background(), int64(m.queue.size()))
		}

		if m.queue.size() == 0 {
			return
		}

		// Small pause so a recovering connection is not saturated.
		select {
		case <-stopCh:
			return
		case <-time.After(m.config.BatchDelay):
		}
	}
}

// runQueued executes one queued request, re-enqueuing it on failure
// until its retry budget is spent, at which point the waiting caller
// receives the last error.
func (m *Manager) runQueued(entry *queuedRequest, cond Condition) {
	timeout := entry.timeout
	if entry.adapt {
		timeout = scale(timeout, cond.TimeoutMultiplier())
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	err := entry.op(ctx)
	cancel()

	if err == nil {
		entry.done <- nil
		return
	}

	entry.lastErr = err
	entry.retryCount++
	if entry.retryCount > entry.maxRetries {
		m.log.Warn("queued request exhausted retries", logger.Fields(
			"id", entry.id,
			"retries", entry.retryCount,
			logger.FieldError, err.Error(),
		))
		entry.done <- err
		return
	}

	m.queue.enqueue(entry)
}

// ClearQueue removes all pending requests, delivering ErrQueueCleared
// to their waiting callers.
func (m *Manager) ClearQueue() int {
	entries := m.queue.clear()
	for _, entry := range entries {
		entry.done <- ErrQueueCleared
	}
	if len(entries) > 0 {
		m.log.Info("queue cleared", logger.Fields(logger.FieldQueueSize, len(entries)))
	}
	if m.config.Metrics != nil {
		m.config.Metrics.RecordQueueDepth(context.Background(), 0)
	}
	return len(entries)
}

// QueueStats summarizes the current queue contents.
func (m *Manager) QueueStats() QueueStats {
	items := m.queue.snapshot()

	m.mu.Lock()
	processing := m.processing
	m.mu.Unlock()

	stats := QueueStats{Total: len(items), Processing: processing}
	staleBefore := time.Now().Add(-m.config.StaleAge)
	for _, entry := range items {
		switch entry.priority {
		case PriorityHigh:
			stats.High++
		case PriorityLow:
			stats.Low++
		default:
			stats.Normal++
		}
		if entry.enqueuedAt.Before(staleBefore) {
			stats.Stale++
		}
	}
	return stats
}

// scale multiplies a duration by a condition multiplier.
func scale(d time.Duration, mult float64) time.Duration {
	return time.Duration(float64(d) * mult)
}
