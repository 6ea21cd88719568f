// Package connectivity adapts request behavior to live network quality
// and preserves caller intent across offline periods: a latency-probing
// monitor classifies the connection, and a manager runs operations with
// condition-adapted timeouts and retry pacing, queuing them while
// offline and draining the queue when connectivity returns.
package connectivity

import "time"

// Condition classifies the current network quality.
type Condition int

const (
	// ConditionFast is a low-latency connection.
	ConditionFast Condition = iota
	// ConditionNormal is the default when quality is unknown or ordinary.
	ConditionNormal
	// ConditionSlow is a degraded, high-latency connection.
	ConditionSlow
	// ConditionOffline means no connectivity.
	ConditionOffline
)

// String returns the condition name.
func (c Condition) String() string {
	switch c {
	case ConditionFast:
		return "fast"
	case ConditionNormal:
		return "normal"
	case ConditionSlow:
		return "slow"
	case ConditionOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// TimeoutMultiplier scales request timeouts for this condition.
func (c Condition) TimeoutMultiplier() float64 {
	switch c {
	case ConditionFast:
		return 1.0
	case ConditionSlow:
		return 3.0
	default:
		return 1.5
	}
}

// RetryDelayMultiplier scales backoff delays for this condition.
func (c Condition) RetryDelayMultiplier() float64 {
	switch c {
	case ConditionFast:
		return 0.5
	case ConditionSlow:
		return 2.0
	default:
		return 1.0
	}
}

// BatchMultiplier scales queue-drain batch sizes for this condition.
func (c Condition) BatchMultiplier() float64 {
	switch c {
	case ConditionFast:
		return 2.0
	case ConditionSlow:
		return 0.5
	default:
		return 1.0
	}
}

// Status is a snapshot of the observed network state, pushed to
// subscribers on every change.
type Status struct {
	// Online reports whether the backend is reachable.
	Online bool
	// Condition classifies the connection quality.
	Condition Condition
	// RTT is the round-trip time of the last successful probe.
	RTT time.Duration
	// CheckedAt is when the snapshot was taken.
	CheckedAt time.Time
}
