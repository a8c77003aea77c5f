// internal/app/system/timeouts/timeouts.go

// Package timeouts holds the deadlines applied to database work started by
// the service itself rather than by a store caller: health pings, the
// counts served next to them, and index reconciliation at startup.
//
// Store operations take the caller's context and never add a deadline of
// their own.
package timeouts

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults used until Configure is called.
const (
	DefaultPing   = 2 * time.Second
	DefaultCounts = 5 * time.Second
	DefaultSchema = 60 * time.Second
)

// Config holds timeout values. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Counts time.Duration
	Schema time.Duration
}

var (
	mu      sync.RWMutex
	current = defaults()
)

func defaults() Config {
	return Config{Ping: DefaultPing, Counts: DefaultCounts, Schema: DefaultSchema}
}

// Ping bounds a database connectivity check.
func Ping() time.Duration { return Current().Ping }

// Counts bounds the document counts reported by the health endpoint.
func Counts() time.Duration { return Current().Counts }

// Schema bounds index reconciliation at startup.
func Schema() time.Duration { return Current().Schema }

// Configure overrides the non-zero fields of cfg. Call it during startup.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		current.Ping = cfg.Ping
	}
	if cfg.Counts > 0 {
		current.Counts = cfg.Counts
	}
	if cfg.Schema > 0 {
		current.Schema = cfg.Schema
	}
}

// Reset restores the defaults. Used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = defaults()
}

// Current returns the active configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// WithTimeout derives a bounded context whose cancel func logs a warning
// when the deadline was the reason the work stopped.
//
//	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Schema(), logger, "ensure indexes")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if log != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout))
		}
		cancel()
	}
}
