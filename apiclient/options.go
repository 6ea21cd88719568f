package apiclient

import (
	"net/http"
	"time"
)

// NoRetries disables retry for a single request.
const NoRetries = -1

// Options configures a single request. The zero value means: GET, no
// extra headers, no body, authenticated, client-default retries and
// timeout, generated correlation ID.
type Options struct {
	// Method is the HTTP method. Defaults to GET.
	Method string
	// Headers are additional request headers.
	Headers map[string]string
	// Body is the request payload. Accepts []byte, string, or any value
	// that will be JSON-encoded. Only serialized when non-nil.
	Body any
	// SkipAuth omits the Authorization header. Defaults to false.
	SkipAuth bool
	// Retries is the number of retries after the first attempt.
	// Zero means the client default (3); NoRetries disables retry.
	Retries int
	// Timeout bounds each attempt. Zero means the client default (10s).
	Timeout time.Duration
	// CorrelationID pre-supplies the correlation ID. Empty means one is
	// generated.
	CorrelationID string
}

// applyDefaults resolves zero values against the client configuration.
func (o *Options) applyDefaults(cfg Config) {
	if o.Method == "" {
		o.Method = http.MethodGet
	}
	if o.Retries == 0 {
		o.Retries = cfg.Retries
	}
	if o.Retries == NoRetries {
		o.Retries = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = cfg.Timeout
	}
}
