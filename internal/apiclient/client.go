// Package apiclient implements the resilient HTTP client that fronts the
// mirror-instance pool. One logical request fans out over up to MaxRetries
// attempts, each against the healthiest instance the registry will hand out,
// with rate limiting, exponential backoff, and per-instance failure
// accounting. Escalation to the official fallback API is the caller's job;
// this client only manages the primary pool.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clipscout/clipscout/internal/logger"
	"github.com/clipscout/clipscout/internal/ratelimit"
	"github.com/clipscout/clipscout/internal/registry"
)

const (
	// DefaultMaxRetries is the attempt budget per logical request.
	DefaultMaxRetries = 3
	// DefaultRequestTimeout bounds a single HTTP attempt.
	DefaultRequestTimeout = 12 * time.Second
	// DefaultBackoffBase is the base of the exponential backoff applied after
	// transient failures and 429 responses.
	DefaultBackoffBase = 1 * time.Second
)

// ErrAllInstancesFailed is returned when the attempt budget is exhausted
// without a usable response.
var ErrAllInstancesFailed = errors.New("all instances failed")

// StatusError is a non-retryable HTTP response (4xx other than 429). The
// request is not worth repeating on another instance.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// IsNonRetryable reports whether err is a StatusError.
func IsNonRetryable(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// Observer receives the outcome of every underlying HTTP attempt. Implemented
// by the metrics package; nil-safe.
type Observer interface {
	ObserveAttempt(instanceURL, outcome string, latency time.Duration)
}

// Attempt outcomes reported to the Observer.
const (
	OutcomeSuccess     = "success"
	OutcomeRateLimited = "rate_limited"
	OutcomeServerError = "server_error"
	OutcomeClientError = "client_error"
	OutcomeNetwork     = "network_error"
	OutcomeBadPayload  = "bad_payload"
)

// Config configures a Client.
type Config struct {
	MaxRetries     int
	RequestTimeout time.Duration
	BackoffBase    time.Duration
	// Jitter returns the random component added to each backoff sleep.
	// Defaults to a uniform draw from [0s, 1s). Tests inject zero.
	Jitter func() time.Duration
	// HTTPClient overrides the transport. A default client without its own
	// timeout is used when nil; per-attempt timeouts come from the context.
	HTTPClient *http.Client
}

// Client issues JSON GET requests against the mirror pool.
type Client struct {
	registry *registry.Registry
	limiter  *ratelimit.Limiter
	client   *http.Client
	logger   logger.Logger
	observer Observer

	maxRetries     int
	requestTimeout time.Duration
	backoffBase    time.Duration
	jitter         func() time.Duration
}

// New creates a resilient client over the given registry and limiter.
func New(reg *registry.Registry, lim *ratelimit.Limiter, cfg Config, log logger.Logger, obs Observer) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if cfg.Jitter == nil {
		cfg.Jitter = func() time.Duration {
			return time.Duration(rand.Float64() * float64(time.Second))
		}
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &Client{
		registry:       reg,
		limiter:        lim,
		client:         client,
		logger:         log,
		observer:       obs,
		maxRetries:     cfg.MaxRetries,
		requestTimeout: cfg.RequestTimeout,
		backoffBase:    cfg.BackoffBase,
		jitter:         cfg.Jitter,
	}
}

// GetJSON performs one logical GET against the pool and returns the raw JSON
// payload. Transient failures (network errors, 5xx, rate limiting, malformed
// bodies) are retried across instances up to the attempt budget; other 4xx
// responses abort immediately.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		inst := c.registry.Select()
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		payload, err := c.attempt(ctx, inst, path, params)
		if err == nil {
			return payload, nil
		}

		if IsNonRetryable(err) {
			return nil, err
		}
		lastErr = err

		var rle *rateLimitedError
		switch {
		case errors.As(err, &rle):
			// 429 is a throttle signal, not an instance failure: back off
			// and try again, possibly on the same instance.
			if sleepErr := c.sleep(ctx, c.backoffDelay(attempt, false)); sleepErr != nil {
				return nil, sleepErr
			}
		case errors.As(err, new(*badPayloadError)):
			// Malformed body on an otherwise fine response: the instance is
			// already marked failed, move straight to the next attempt.
		default:
			// Network error or 5xx: exponential backoff with jitter before
			// the next instance.
			if sleepErr := c.sleep(ctx, c.backoffDelay(attempt, true)); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrAllInstancesFailed, c.maxRetries, lastErr)
}

// rateLimitedError marks a 429 response. Never counted against the instance.
type rateLimitedError struct {
	instanceURL string
}

func (e *rateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by %s", e.instanceURL)
}

// badPayloadError marks a 200 response whose body was not the JSON shape we
// expect. Counted against the instance like any other failure.
type badPayloadError struct {
	instanceURL string
	reason      string
}

func (e *badPayloadError) Error() string {
	return fmt.Sprintf("bad payload from %s: %s", e.instanceURL, e.reason)
}

func (c *Client) attempt(ctx context.Context, inst *registry.Instance, path string, params url.Values) (json.RawMessage, error) {
	reqURL := inst.URL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	latency := time.Since(start)

	if err != nil {
		c.registry.RecordFailure(inst, err)
		c.observe(inst.URL, OutcomeNetwork, latency)
		c.logger.Debug("instance request failed",
			logger.String("instance", inst.URL),
			logger.String("path", path),
			logger.Error(err),
		)
		return nil, fmt.Errorf("request %s: %w", inst.URL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			c.registry.RecordFailure(inst, readErr)
			c.observe(inst.URL, OutcomeNetwork, latency)
			return nil, fmt.Errorf("read body from %s: %w", inst.URL, readErr)
		}
		payload, payloadErr := validatePayload(body)
		if payloadErr != nil {
			bad := &badPayloadError{instanceURL: inst.URL, reason: payloadErr.Error()}
			c.registry.RecordFailure(inst, bad)
			c.observe(inst.URL, OutcomeBadPayload, latency)
			return nil, bad
		}
		c.registry.RecordSuccess(inst, latency)
		c.observe(inst.URL, OutcomeSuccess, latency)
		return payload, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		c.observe(inst.URL, OutcomeRateLimited, latency)
		c.logger.Debug("instance rate limited",
			logger.String("instance", inst.URL),
			logger.String("path", path),
		)
		return nil, &rateLimitedError{instanceURL: inst.URL}

	case resp.StatusCode >= http.StatusInternalServerError:
		err := fmt.Errorf("server error %d from %s", resp.StatusCode, inst.URL)
		c.registry.RecordFailure(inst, err)
		c.observe(inst.URL, OutcomeServerError, latency)
		return nil, err

	default:
		// Remaining 4xx: the request itself is wrong, no instance will
		// answer it differently.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.observe(inst.URL, OutcomeClientError, latency)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
}

// validatePayload accepts only a non-null JSON object or array.
func validatePayload(body []byte) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, errors.New("empty body")
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, errors.New("not a JSON object or array")
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, errors.New("invalid JSON")
	}
	return json.RawMessage(trimmed), nil
}

func (c *Client) backoffDelay(attempt int, withJitter bool) time.Duration {
	delay := c.backoffBase * (1 << attempt)
	if withJitter {
		delay += c.jitter()
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) observe(instanceURL, outcome string, latency time.Duration) {
	if c.observer != nil {
		c.observer.ObserveAttempt(instanceURL, outcome, latency)
	}
}
