package registry

import "time"

// Status is the last known health state of a mirror instance.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Instance tracks one mirror endpoint. Instances are created once at registry
// initialization and never removed; only their health state changes. All
// mutable fields are guarded by the registry mutex — callers outside this
// package read them through Snapshot copies.
type Instance struct {
	// URL is the base URL of the mirror, without a trailing slash. Immutable.
	URL string

	status              Status
	consecutiveFailures int
	circuitOpen         bool
	lastSuccess         time.Time
	lastLatency         time.Duration
	lastError           string
	requests            int64
	successes           int64
}

// InstanceSnapshot is a point-in-time copy of an instance's state, safe to
// read without holding the registry lock.
type InstanceSnapshot struct {
	URL                 string        `json:"url"`
	Status              Status        `json:"status"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	CircuitOpen         bool          `json:"circuit_open"`
	LastSuccess         time.Time     `json:"last_success,omitzero"`
	LastLatency         time.Duration `json:"last_latency_ms"`
	LastError           string        `json:"last_error,omitempty"`
	Requests            int64         `json:"requests"`
	Successes           int64         `json:"successes"`
}

func (i *Instance) snapshot() InstanceSnapshot {
	return InstanceSnapshot{
		URL:                 i.URL,
		Status:              i.status,
		ConsecutiveFailures: i.consecutiveFailures,
		CircuitOpen:         i.circuitOpen,
		LastSuccess:         i.lastSuccess,
		LastLatency:         i.lastLatency,
		LastError:           i.lastError,
		Requests:            i.requests,
		Successes:           i.successes,
	}
}
