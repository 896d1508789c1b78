// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	var running, peak atomic.Int64
	release := make(chan struct{})
	for i := 0; i < 6; i++ {
		require.NoError(t, p.Submit(context.Background(), func(context.Context) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			<-release
			running.Add(-1)
		}))
	}

	assert.Eventually(t, func() bool { return p.Active() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	p.Wait()
	assert.Equal(t, int64(2), peak.Load())
}

func TestPoolSubmitDoesNotBlock(t *testing.T) {
	p := NewPool(1)
	block := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func(context.Context) { <-block }))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = p.Submit(context.Background(), func(context.Context) {})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked the caller")
	}
	close(block)
	p.Close()
	assert.ErrorIs(t, p.Submit(context.Background(), func(context.Context) {}), ErrPoolClosed)
}

func TestPoolSkipsCancelledWork(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	block := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func(context.Context) { <-block }))

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	require.NoError(t, p.Submit(ctx, func(context.Context) { ran.Store(true) }))
	cancel()
	close(block)
	p.Wait()
	assert.False(t, ran.Load())
}

func TestPoolRecoversPanics(t *testing.T) {
	p := NewPool(1)
	defer p.Close()
	require.NoError(t, p.Submit(context.Background(), func(context.Context) { panic("boom") }))
	var ran atomic.Bool
	require.NoError(t, p.Submit(context.Background(), func(context.Context) { ran.Store(true) }))
	p.Wait()
	assert.True(t, ran.Load())
}

func TestTrackerCancelAll(t *testing.T) {
	var mu sync.Mutex
	var counts []int
	tr := NewTracker(func(n int) {
		mu.Lock()
		counts = append(counts, n)
		mu.Unlock()
	})

	tasks := []*Task{NewTask(context.Background()), NewTask(context.Background()), NewTask(context.Background())}
	for _, task := range tasks {
		tr.Add(task)
	}
	assert.Equal(t, 3, tr.Len())
	assert.True(t, tr.Remove(tasks[1]))
	assert.False(t, tr.Remove(tasks[1]))
	assert.Len(t, tr.Snapshot(), 2)

	assert.Equal(t, 2, tr.CancelAll())
	assert.Zero(t, tr.Len())
	assert.True(t, tasks[0].Cancelled())
	assert.False(t, tasks[1].Cancelled())

	delivered := tasks[0].Deliver(func() { t.Fatal("delivered after cancel") })
	assert.False(t, delivered)
	assert.True(t, tasks[1].Deliver(func() {}))

	mu.Lock()
	assert.Equal(t, []int{1, 2, 3, 2, 0}, counts)
	mu.Unlock()

	for _, task := range tasks {
		task.Finish()
	}
	<-tasks[1].Done()
	assert.Error(t, tasks[1].Context().Err())
	assert.NotEqual(t, tasks[0].ID(), tasks[1].ID())
}
