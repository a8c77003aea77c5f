package storemetrics_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/identitymongo/internal/app/store/identityctx"
	"github.com/dalemusser/identitymongo/internal/app/system/storemetrics"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestResultOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, storemetrics.ResultOK},
		{"conflict", identityctx.ErrConcurrencyConflict, storemetrics.ResultConflict},
		{"wrapped conflict", fmt.Errorf("users replace x: %w", identityctx.ErrConcurrencyConflict), storemetrics.ResultConflict},
		{"other", errors.New("boom"), storemetrics.ResultError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := storemetrics.ResultOf(tt.err); got != tt.want {
				t.Errorf("ResultOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestTrack_CountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := storemetrics.New(reg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	m.Track("users", "update")(storemetrics.ResultOK)
	m.Track("users", "update")(storemetrics.ResultOK)
	m.Track("users", "update")(storemetrics.ResultConflict)

	if n, err := promtest.GatherAndCount(reg, "identitymongo_store_operations_total"); err != nil || n != 2 {
		t.Errorf("expected 2 label sets, got %d (%v)", n, err)
	}
	if n, err := promtest.GatherAndCount(reg, "identitymongo_store_operation_duration_seconds"); err != nil || n != 1 {
		t.Errorf("expected 1 histogram series, got %d (%v)", n, err)
	}
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := storemetrics.New(reg)
	if err != nil {
		t.Fatalf("first New failed: %v", err)
	}
	b, err := storemetrics.New(reg)
	if err != nil {
		t.Fatalf("second New failed: %v", err)
	}

	a.Track("roles", "create")(storemetrics.ResultOK)
	b.Track("roles", "create")(storemetrics.ResultOK)

	if n, err := promtest.GatherAndCount(reg, "identitymongo_store_operations_total"); err != nil || n != 1 {
		t.Errorf("expected shared series, got %d (%v)", n, err)
	}
}

func TestTrack_NilMetrics(t *testing.T) {
	var m *storemetrics.Metrics
	m.Track("users", "create")(storemetrics.ResultOK)
}
