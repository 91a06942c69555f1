package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRegisterRejectsInvalidSpec(t *testing.T) {
	s := New(nil)
	err := s.Register("broken", "not a spec", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register broken")
}

func TestRegisterRejectsNilTask(t *testing.T) {
	s := New(nil)
	require.Error(t, s.Register("nil", "@hourly", nil))
}

func TestEntriesReportNextRun(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Register("expiry-refresh", "@hourly", func(context.Context) error { return nil }))
	s.Start()
	defer s.Stop(context.Background())

	entries := s.Entries()
	require.Contains(t, entries, "expiry-refresh")
	assert.True(t, entries["expiry-refresh"].After(time.Now()))
}

func TestRunNowLogsFailuresAndRecoversPanics(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := New(zap.New(core), WithTaskTimeout(time.Second))

	var calls int32
	s.RunNow("fails", func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return errors.New("boom")
	})
	s.RunNow("panics", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		panic("bad")
	})
	s.RunNow("ok", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, logs.FilterMessage("scheduled task failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("scheduled task panicked").Len())
	assert.Equal(t, 1, logs.FilterMessage("scheduled task completed").Len())
}
