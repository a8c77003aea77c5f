// internal/app/system/storemetrics/storemetrics.go

// Package storemetrics instruments identity store operations with
// Prometheus counters and latency histograms.
package storemetrics

import (
	"errors"
	"time"

	"github.com/dalemusser/identitymongo/internal/app/store/identityctx"
	"github.com/prometheus/client_golang/prometheus"
)

// Results recorded in the "result" label.
const (
	ResultOK       = "ok"
	ResultConflict = "conflict"
	ResultError    = "error"
)

// Metrics holds the store collectors. A nil *Metrics records nothing.
type Metrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers the store collectors with reg, or the default registerer
// when reg is nil. Registering twice on the same registry reuses the
// collectors already there.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identitymongo",
		Name:      "store_operations_total",
		Help:      "Identity store operations by store, operation and result.",
	}, []string{"store", "op", "result"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "identitymongo",
		Name:      "store_operation_duration_seconds",
		Help:      "Latency of identity store operations.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"store", "op"})

	var err error
	if ops, err = register(reg, ops); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return &Metrics{ops: ops, duration: duration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ResultOf classifies err for the result label.
func ResultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, identityctx.ErrConcurrencyConflict):
		return ResultConflict
	default:
		return ResultError
	}
}

// Track starts timing op on store. Call the returned func once with the
// operation's result.
func (m *Metrics) Track(store, op string) func(result string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	return func(result string) {
		m.duration.WithLabelValues(store, op).Observe(time.Since(start).Seconds())
		m.ops.WithLabelValues(store, op, result).Inc()
	}
}
