// Package registry maintains health state for a fixed pool of mirror API
// instances and hands out the best candidate per request. Instances that fail
// repeatedly are circuit-opened and excluded from selection until a health
// probe succeeds again.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/clipscout/clipscout/internal/logger"
)

const (
	// DefaultFailureThreshold is the consecutive-failure count at which an
	// instance's circuit opens.
	DefaultFailureThreshold = 3
	// DefaultProbeTimeout bounds the lightweight health probe request.
	DefaultProbeTimeout = 5 * time.Second

	// probePath is the status endpoint every mirror exposes.
	probePath = "/api/v1/stats"
)

// Config configures a Registry.
type Config struct {
	// FailureThreshold opens the circuit once consecutive failures reach it.
	FailureThreshold int
	// ProbeTimeout bounds one health probe.
	ProbeTimeout time.Duration
	// HTTPClient is used for probes. A default client with ProbeTimeout is
	// built when nil.
	HTTPClient *http.Client
	// OnStateChange is called with healthy=false when an instance's circuit
	// opens and healthy=true on any successful request.
	OnStateChange func(url string, healthy bool)
}

// Registry tracks a static, non-empty pool of mirror instances.
type Registry struct {
	mu        sync.Mutex
	instances []*Instance
	cursor    int

	failureThreshold int
	probeTimeout     time.Duration
	client           *http.Client
	onStateChange    func(url string, healthy bool)
	logger           logger.Logger
}

// New creates a registry over the given base URLs. The list must be non-empty;
// trailing slashes are trimmed so probe and request paths join cleanly.
func New(urls []string, cfg Config, log logger.Logger) (*Registry, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("registry requires at least one instance URL")
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.ProbeTimeout}
	}

	instances := make([]*Instance, 0, len(urls))
	for _, u := range urls {
		instances = append(instances, &Instance{
			URL:    strings.TrimRight(u, "/"),
			status: StatusUnknown,
		})
	}

	return &Registry{
		instances:        instances,
		failureThreshold: cfg.FailureThreshold,
		probeTimeout:     cfg.ProbeTimeout,
		client:           client,
		onStateChange:    cfg.OnStateChange,
		logger:           log,
	}, nil
}

// Select returns the best instance for the next request. It scans from a
// rotating cursor, skipping instances whose circuit is open and whose
// consecutive-failure count is at or past the threshold. When every instance
// is excluded it degrades to the least-failed instance (ties broken by lower
// observed latency) rather than failing: the pool is static and non-empty, so
// there is always something to return.
func (r *Registry) Select() *Instance {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.instances)
	for scanned := 0; scanned < 2*n; scanned++ {
		inst := r.instances[r.cursor%n]
		r.cursor = (r.cursor + 1) % n

		if inst.circuitOpen && inst.consecutiveFailures >= r.failureThreshold {
			continue
		}
		return inst
	}

	// Graceful degradation: everything is circuit-open.
	best := r.instances[0]
	for _, inst := range r.instances[1:] {
		if inst.consecutiveFailures < best.consecutiveFailures {
			best = inst
			continue
		}
		if inst.consecutiveFailures == best.consecutiveFailures && inst.lastLatency < best.lastLatency {
			best = inst
		}
	}
	r.logger.Warn("all mirror instances circuit-open, degrading to least-failed",
		logger.String("instance", best.URL),
		logger.Int("consecutive_failures", best.consecutiveFailures),
	)
	return best
}

// RecordSuccess records a successful request against an instance. Any success
// resets the consecutive-failure count to zero and closes the circuit.
func (r *Registry) RecordSuccess(inst *Instance, latency time.Duration) {
	r.mu.Lock()
	inst.requests++
	inst.successes++
	inst.status = StatusHealthy
	inst.consecutiveFailures = 0
	inst.circuitOpen = false
	inst.lastSuccess = time.Now()
	inst.lastLatency = latency
	inst.lastError = ""
	r.mu.Unlock()

	if r.onStateChange != nil {
		r.onStateChange(inst.URL, true)
	}
}

// RecordFailure records a failed request against an instance, opening its
// circuit once consecutive failures reach the threshold.
func (r *Registry) RecordFailure(inst *Instance, cause error) {
	r.mu.Lock()
	inst.requests++
	inst.status = StatusUnhealthy
	inst.consecutiveFailures++
	if cause != nil {
		inst.lastError = cause.Error()
	}

	opened := false
	if inst.consecutiveFailures >= r.failureThreshold && !inst.circuitOpen {
		inst.circuitOpen = true
		opened = true
		r.logger.Warn("instance circuit opened",
			logger.String("instance", inst.URL),
			logger.Int("consecutive_failures", inst.consecutiveFailures),
			logger.String("last_error", inst.lastError),
		)
	}
	r.mu.Unlock()

	if opened && r.onStateChange != nil {
		r.onStateChange(inst.URL, false)
	}
}

// Probe issues the lightweight status request against one instance and
// updates its health state. A healthy probe result is the only way a
// circuit-open instance re-enters selection.
func (r *Registry) Probe(ctx context.Context, inst *Instance) bool {
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	start := time.Now()
	ok, err := r.probeOnce(probeCtx, inst.URL)
	latency := time.Since(start)

	if ok {
		r.RecordSuccess(inst, latency)
		r.logger.Debug("instance probe healthy",
			logger.String("instance", inst.URL),
			logger.Duration("latency", latency),
		)
		return true
	}

	r.RecordFailure(inst, err)
	r.logger.Debug("instance probe unhealthy",
		logger.String("instance", inst.URL),
		logger.Error(err),
	)
	return false
}

func (r *Registry) probeOnce(ctx context.Context, baseURL string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+probePath, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("create probe request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("probe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("probe status %d", resp.StatusCode)
	}

	// The stats endpoint answers with a JSON object; anything else means the
	// host is serving something other than the API we expect.
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, fmt.Errorf("probe payload: %w", err)
	}
	if len(payload) == 0 {
		return false, fmt.Errorf("probe payload: empty object")
	}
	return true, nil
}

// ProbeAll probes every instance sequentially. Used at startup and when the
// operator asks for a pool refresh.
func (r *Registry) ProbeAll(ctx context.Context) (healthy int) {
	for _, inst := range r.Instances() {
		if ctx.Err() != nil {
			return healthy
		}
		if r.Probe(ctx, inst) {
			healthy++
		}
	}
	return healthy
}

// Instances returns the instance pool. The slice is a copy; the pointed-to
// instances are the live ones.
func (r *Registry) Instances() []*Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Instance, len(r.instances))
	copy(out, r.instances)
	return out
}

// Len returns the pool size.
func (r *Registry) Len() int {
	return len(r.instances)
}

// Snapshot returns point-in-time copies of every instance's state.
func (r *Registry) Snapshot() []InstanceSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]InstanceSnapshot, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst.snapshot())
	}
	return out
}

// SnapshotOf returns the current state of one instance.
func (r *Registry) SnapshotOf(inst *Instance) InstanceSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return inst.snapshot()
}
