// Package ratelimit throttles outbound calls to a single downstream service.
// Each downstream (mirror pool, official API, queue store) gets its own
// Limiter; one Limiter enforces a minimum inter-request spacing plus a
// per-window request ceiling.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/clipscout/clipscout/internal/logger"
)

const (
	// DefaultMinInterval is the default spacing between consecutive requests.
	DefaultMinInterval = 500 * time.Millisecond
	// DefaultRequestsPerWindow is the default per-window ceiling.
	DefaultRequestsPerWindow = 60
	// DefaultWindow is the quota window. The reset is coarse: the counter
	// zeroes once a full window has elapsed since the last reset, not on a
	// sliding basis.
	DefaultWindow = time.Minute
)

// Config configures a Limiter.
type Config struct {
	MinInterval       time.Duration
	RequestsPerWindow int
	Window            time.Duration
}

// Limiter blocks callers until both the spacing and the window quota allow
// another request. Safe for concurrent use.
type Limiter struct {
	service string
	spacing *rate.Limiter
	logger  logger.Logger

	mu          sync.Mutex
	window      time.Duration
	perWindow   int
	count       int
	windowStart time.Time
}

// New creates a limiter for the named downstream service.
func New(service string, cfg Config, log logger.Logger) *Limiter {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.RequestsPerWindow <= 0 {
		cfg.RequestsPerWindow = DefaultRequestsPerWindow
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}

	return &Limiter{
		service:   service,
		spacing:   rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		logger:    log,
		window:    cfg.Window,
		perWindow: cfg.RequestsPerWindow,
	}
}

// Service returns the downstream service name this limiter guards.
func (l *Limiter) Service() string {
	return l.service
}

// Wait blocks until the next request is allowed, or the context is done.
// Successive returns are spaced at least MinInterval apart, and no more than
// RequestsPerWindow calls pass within one quota window.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.waitQuota(ctx); err != nil {
		return err
	}
	return l.spacing.Wait(ctx)
}

func (l *Limiter) waitQuota(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
			l.windowStart = now
			l.count = 0
		}
		if l.count < l.perWindow {
			l.count++
			l.mu.Unlock()
			return nil
		}
		sleep := l.window - now.Sub(l.windowStart)
		l.mu.Unlock()

		l.logger.Debug("per-window quota reached, sleeping",
			logger.String("service", l.service),
			logger.Duration("sleep", sleep),
		)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// InWindow reports how many calls passed in the current quota window.
func (l *Limiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.windowStart.IsZero() && time.Since(l.windowStart) >= l.window {
		return 0
	}
	return l.count
}
