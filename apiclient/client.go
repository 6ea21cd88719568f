// Package apiclient implements the resilient request pipeline for the
// OpenTurf game API: correlation-ID tagging, per-attempt deadlines,
// bounded retry with exponential backoff, transparent token refresh on
// 401, and a circuit breaker gate in front of it all.
//
// Every outcome is normalized into a Result; the pipeline never panics
// on a failure path and never surfaces a raw transport error to the
// caller.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openturf/turfkit/auth"
	"github.com/openturf/turfkit/logger"
	"github.com/openturf/turfkit/observability"
	"github.com/openturf/turfkit/resilience"
	"github.com/openturf/turfkit/version"
)

const (
	defaultTimeout = 10 * time.Second
	defaultRetries = 3

	headerCorrelationID  = "X-Correlation-ID"
	headerRequestAttempt = "X-Request-Attempt"
)

// Config configures the API client.
type Config struct {
	// BaseURL is the game API base URL.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`

	// Timeout is the default per-attempt deadline. Defaults to 10s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Retries is the default retry budget after the first attempt.
	// Defaults to 3.
	Retries int `yaml:"retries" mapstructure:"retries" validate:"gte=0,lte=10"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Backoff configures the delay between retry attempts. Only the
	// backoff shape fields are used; attempt counting is governed by
	// Retries.
	Backoff resilience.RetryConfig `yaml:"-" mapstructure:"-"`

	// CircuitBreaker configures the breaker guarding the backend.
	// Nil means defaults (5 failures, 30s recovery, 2 successes).
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Retries <= 0 {
		c.Retries = defaultRetries
	}
	if c.Backoff.InitialBackoff <= 0 {
		c.Backoff.InitialBackoff = time.Second
	}
	if c.Backoff.MaxBackoff <= 0 {
		c.Backoff.MaxBackoff = 30 * time.Second
	}
	if c.Backoff.BackoffFactor <= 0 {
		c.Backoff.BackoffFactor = 2.0
	}
	if c.Backoff.JitterMax <= 0 {
		c.Backoff.JitterMax = time.Second
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("apiclient: base URL is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("apiclient: timeout must be positive")
	}
	return nil
}

// Client is the single entry point to the game API. Construct one at
// startup and inject it; there is no package-level singleton.
type Client struct {
	config     Config
	httpClient *http.Client
	tokens     auth.Store
	refresher  *auth.Refresher
	cb         *resilience.CircuitBreaker
	log        *logger.Logger
	tracer     trace.Tracer
	metrics    *observability.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenStore attaches a credential store. Without one, requests go
// out unauthenticated.
func WithTokenStore(store auth.Store) Option {
	return func(c *Client) { c.tokens = store }
}

// WithRefresher attaches a token refresh coordinator. Defaults to one
// bound to the client's base URL when a token store is present.
func WithRefresher(r *auth.Refresher) Option {
	return func(c *Client) { c.refresher = r }
}

// WithLogger attaches a logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithMetrics attaches metric instruments for request observability.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a new API client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cbCfg := resilience.DefaultCircuitBreakerConfig("api")
	if cfg.CircuitBreaker != nil {
		cbCfg = *cfg.CircuitBreaker
	}

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{},
		log:        logger.Nop(),
		tracer:     otel.Tracer("github.com/openturf/turfkit/apiclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("apiclient")

	if cbCfg.OnStateChange == nil {
		log := c.log
		metrics := c.metrics
		cbCfg.OnStateChange = func(name string, from, to resilience.State) {
			log.Warn("circuit breaker state change", logger.Fields(
				"breaker", name, "from", from.String(), "to", to.String()))
			if metrics != nil {
				metrics.RecordBreakerTransition(context.Background(), name, from.String(), to.String())
			}
		}
	}
	c.cb = resilience.NewCircuitBreaker(cbCfg)

	if c.refresher == nil && c.tokens != nil {
		c.refresher = auth.NewRefresher(auth.RefresherConfig{
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}, c.tokens, c.httpClient, c.log)
	}

	return c, nil
}

// Breaker exposes the circuit breaker, mainly for health reporting.
func (c *Client) Breaker() *resilience.CircuitBreaker {
	return c.cb
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Do executes a request against the API and normalizes the outcome
// into a Result. The correlation ID is stable across every retry
// attempt and any refresh-triggered replay.
func Do[T any](ctx context.Context, c *Client, path string, opts Options) Result[T] {
	opts.applyDefaults(c.config)

	correlationID := opts.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	log := c.log.WithCorrelationID(correlationID)
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "api.request", trace.WithAttributes(
		attribute.String("http.method", opts.Method),
		attribute.String("http.path", path),
		attribute.String("correlation_id", correlationID),
	))
	defer span.End()

	var res Result[T]
	cbErr := c.cb.Execute(func() error {
		res = doAttempts[T](ctx, c, path, opts, correlationID, log)
		if !res.OK {
			return res.Err
		}
		return nil
	})

	if errors.Is(cbErr, resilience.ErrCircuitOpen) {
		log.Warn("request rejected, circuit open", logger.Fields("path", path))
		res = failure[T](503, newCircuitOpenError(cbErr), correlationID)
	}

	span.SetAttributes(attribute.Int("http.status_code", res.Status))
	if res.OK {
		span.SetStatus(otelcodes.Ok, "")
	} else {
		span.RecordError(res.Err)
		span.SetStatus(otelcodes.Error, res.Err.Code.String())
	}

	if c.metrics != nil {
		c.metrics.RecordRequest(ctx, opts.Method, path, strconv.Itoa(res.Status), time.Since(start))
	}

	return res
}

// Get performs a GET request.
func Get[T any](ctx context.Context, c *Client, path string, opts ...Options) Result[T] {
	o := firstOption(opts)
	o.Method = http.MethodGet
	return Do[T](ctx, c, path, o)
}

// Post performs a POST request with the given body.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...Options) Result[T] {
	o := firstOption(opts)
	o.Method = http.MethodPost
	o.Body = body
	return Do[T](ctx, c, path, o)
}

// Put performs a PUT request with the given body.
func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...Options) Result[T] {
	o := firstOption(opts)
	o.Method = http.MethodPut
	o.Body = body
	return Do[T](ctx, c, path, o)
}

// Delete performs a DELETE request.
func Delete[T any](ctx context.Context, c *Client, path string, opts ...Options) Result[T] {
	o := firstOption(opts)
	o.Method = http.MethodDelete
	return Do[T](ctx, c, path, o)
}

func firstOption(opts []Options) Options {
	if len(opts) > 0 {
		return opts[0]
	}
	return Options{}
}

// doAttempts runs the bounded retry loop for one logical request.
func doAttempts[T any](ctx context.Context, c *Client, path string, opts Options, correlationID string, log *logger.Logger) Result[T] {
	maxAttempts := opts.Retries + 1
	refreshed := false

	var res Result[T]
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var usedToken string
		res, usedToken = doOnce[T](ctx, c, path, opts, correlationID, attempt)
		if res.OK {
			if attempt > 1 {
				log.Info("request recovered", logger.Fields(
					logger.FieldAttempt, attempt, "path", path))
			}
			return res
		}

		// A 401 triggers at most one refresh per logical request; the
		// replay reuses the current attempt number and does not consume
		// a retry slot.
		if res.Status == 401 && !opts.SkipAuth && !refreshed &&
			c.refresher != nil && c.tokens != nil && c.tokens.RefreshToken() != "" {
			refreshed = true
			if err := c.refresher.RefreshIfStale(ctx, usedToken); err == nil {
				log.Debug("replaying request after token refresh", logger.Fields(
					logger.FieldAttempt, attempt))
				res, _ = doOnce[T](ctx, c, path, opts, correlationID, attempt)
				if res.OK {
					return res
				}
			} else {
				log.Warn("token refresh failed", logger.ErrorFields("refresh", err))
			}
		}

		if !res.Err.Retryable {
			return res
		}
		if attempt == maxAttempts {
			break
		}

		delay := resilience.Backoff(attempt, c.config.Backoff)
		log.Debug("retrying request", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldStatus, res.Status,
			"delay_ms", delay.Milliseconds(),
			"path", path,
		))
		if c.metrics != nil {
			c.metrics.RecordRetry(ctx, opts.Method, path)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return failure[T](0, newTimeoutError(ctx.Err()), correlationID)
		case <-timer.C:
		}
	}

	log.Warn("request failed, retries exhausted", logger.Fields(
		logger.FieldStatus, res.Status, "path", path))
	return res
}

// doOnce issues a single HTTP attempt and returns the bearer token it
// was sent with, so a 401 replay can detect concurrent refreshes.
func doOnce[T any](ctx context.Context, c *Client, path string, opts Options, correlationID string, attempt int) (Result[T], string) {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	body, err := encodeBody(opts.Body)
	if err != nil {
		return failure[T](0, newEncodingError(err), correlationID), ""
	}

	req, err := http.NewRequestWithContext(attemptCtx, opts.Method, joinURL(c.config.BaseURL, path), body)
	if err != nil {
		return failure[T](0, newEncodingError(err), correlationID), ""
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set(headerCorrelationID, correlationID)
	req.Header.Set(headerRequestAttempt, strconv.Itoa(attempt))

	var usedToken string
	if !opts.SkipAuth && c.tokens != nil {
		if usedToken = c.tokens.AccessToken(); usedToken != "" {
			req.Header.Set("Authorization", "Bearer "+usedToken)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if attemptCtx.Err() != nil {
			return failure[T](0, newTimeoutError(err), correlationID), usedToken
		}
		return failure[T](0, newConnectionError(err), correlationID), usedToken
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure[T](0, newConnectionError(fmt.Errorf("read response body: %w", err)), correlationID), usedToken
	}

	// Status, not decode success, governs retry eligibility.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure[T](resp.StatusCode, classifyStatus(resp.StatusCode, raw), correlationID), usedToken
	}

	data, err := decodeBody[T](raw, resp.Header.Get("Content-Type"))
	if err != nil {
		e := &Error{
			StatusCode: resp.StatusCode,
			Code:       ErrCodeEncoding,
			Message:    fmt.Sprintf("decode response: %v", err),
			Retryable:  false,
			Body:       raw,
			Err:        err,
		}
		return failure[T](resp.StatusCode, e, correlationID), usedToken
	}

	return success(resp.StatusCode, data, correlationID), usedToken
}

// encodeBody converts a body value into an io.Reader. The body is only
// serialized when present.
func encodeBody(body any) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}
	switch v := body.(type) {
	case io.Reader:
		return v, nil
	case []byte:
		return bytes.NewReader(v), nil
	case string:
		return strings.NewReader(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}
}

// decodeBody decodes a response body based on its content type: JSON is
// unmarshalled into T, anything else is returned as-is for string-typed
// results.
func decodeBody[T any](raw []byte, contentType string) (T, error) {
	var data T
	if len(raw) == 0 {
		return data, nil
	}

	if strings.Contains(contentType, "json") {
		if err := json.Unmarshal(raw, &data); err != nil {
			return data, err
		}
		return data, nil
	}

	if s, ok := any(&data).(*string); ok {
		*s = string(raw)
		return data, nil
	}
	if b, ok := any(&data).(*[]byte); ok {
		*b = raw
		return data, nil
	}

	// Non-JSON payload into a structured type: best effort JSON decode.
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, err
	}
	return data, nil
}

// joinURL concatenates the base URL and path.
func joinURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
