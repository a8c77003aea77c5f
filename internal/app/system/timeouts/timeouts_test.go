package timeouts_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/identitymongo/internal/app/system/timeouts"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaults(t *testing.T) {
	timeouts.Reset()

	assert.Equal(t, timeouts.DefaultPing, timeouts.Ping())
	assert.Equal(t, timeouts.DefaultCounts, timeouts.Counts())
	assert.Equal(t, timeouts.DefaultSchema, timeouts.Schema())
}

func TestConfigure_IgnoresZero(t *testing.T) {
	timeouts.Reset()
	t.Cleanup(timeouts.Reset)

	timeouts.Configure(timeouts.Config{Ping: 500 * time.Millisecond})

	assert.Equal(t, 500*time.Millisecond, timeouts.Ping())
	assert.Equal(t, timeouts.DefaultCounts, timeouts.Counts())
	assert.Equal(t, timeouts.DefaultSchema, timeouts.Schema())
}

func TestWithTimeout_LogsDeadline(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)

	ctx, cancel := timeouts.WithTimeout(context.Background(), time.Millisecond, log, "slow thing")
	<-ctx.Done()
	cancel()

	entries := logs.FilterMessage("operation timed out").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "slow thing", entries[0].ContextMap()["operation"])
	}
}

func TestWithTimeout_QuietOnCancel(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	_, cancel := timeouts.WithTimeout(context.Background(), time.Minute, zap.New(core), "fast thing")
	cancel()

	assert.Zero(t, logs.Len())
}
