package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	done := make(chan struct{}, 2)
	q := NewQueue("exports", func(_ context.Context, job Job) error {
		mu.Lock()
		seen[job.ID] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})

	require.Error(t, q.Enqueue(Job{ID: "early"}))

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.NoError(t, q.Enqueue(Job{ID: "b"}))
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job not processed")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var attempts int32
	gaveUp := make(chan error, 1)
	q := NewQueue("exports", func(_ context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		if job.ID == "panic" {
			panic("boom")
		}
		return errors.New("render failed")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnGiveUp: func(_ context.Context, job Job, err error) {
			gaveUp <- err
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "x"}))
	select {
	case err := <-gaveUp:
		assert.EqualError(t, err, "render failed")
	case <-time.After(2 * time.Second):
		t.Fatal("give up callback not invoked")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))

	require.NoError(t, q.Enqueue(Job{ID: "panic"}))
	select {
	case err := <-gaveUp:
		assert.Contains(t, err.Error(), "panicked")
	case <-time.After(2 * time.Second):
		t.Fatal("panicking job not reported")
	}
}
