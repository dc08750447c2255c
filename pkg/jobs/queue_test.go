package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesTasks(t *testing.T) {
	var seen atomic.Int32
	done := make(chan struct{}, 3)
	q := New("test", func(ctx context.Context, task Task) error {
		seen.Add(1)
		done <- struct{}{}
		return nil
	}, Config{Workers: 2})

	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Submit(context.Background(), Task{ID: id, Kind: "export"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("task not processed")
		}
	}
	assert.Equal(t, int32(3), seen.Load())
}

func TestQueueRetriesThenReportsFailure(t *testing.T) {
	var attempts atomic.Int32
	failed := make(chan Task, 1)
	q := New("test", func(ctx context.Context, task Task) error {
		attempts.Add(1)
		return errors.New("boom")
	}, Config{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnFailure: func(ctx context.Context, task Task, err error) {
			failed <- task
		},
	})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Submit(context.Background(), Task{ID: "x"}))

	select {
	case task := <-failed:
		assert.Equal(t, "x", task.ID)
		assert.Equal(t, 3, task.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("failure hook not invoked")
	}
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, int64(1), q.Stats().Failed)
}

func TestQueueSubmitBeforeStart(t *testing.T) {
	q := New("idle", func(ctx context.Context, task Task) error { return nil }, Config{})
	err := q.Submit(context.Background(), Task{ID: "a"})
	require.ErrorIs(t, err, ErrQueueClosed)
}
