// SPDX-License-Identifier: MIT

// Package worker runs asynchronous pipeline work on a bounded pool and
// tracks cancellable tasks.
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	xlog "github.com/ManuGH/recipefeed/internal/log"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool executes submitted functions with bounded concurrency. Submit never
// blocks the caller; work waits for a free slot on its own goroutine.
type Pool struct {
	sem    *semaphore.Weighted
	size   int
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
	active atomic.Int64
	logger zerolog.Logger
}

// NewPool returns a pool running at most size functions at once. A
// non-positive size defaults to the number of CPUs.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		size:   size,
		ctx:    ctx,
		cancel: cancel,
		logger: xlog.WithComponent("worker"),
	}
}

// Size returns the concurrency bound.
func (p *Pool) Size() int { return p.size }

// Active returns the number of functions currently running.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Submit schedules fn. The context passed to fn is ctx; fn is not started
// when ctx is already done by the time a slot frees up.
func (p *Pool) Submit(ctx context.Context, fn func(ctx context.Context)) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			return
		}
		defer p.sem.Release(1)
		if ctx.Err() != nil {
			return
		}
		p.active.Add(1)
		defer p.active.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error().
					Interface("panic", r).
					Str(xlog.FieldEvent, "worker.panic").
					Msg("recovered panic in pool task")
			}
		}()
		fn(ctx)
	}()
	return nil
}

// Wait blocks until every submitted function has returned or been dropped.
func (p *Pool) Wait() { p.wg.Wait() }

// Close rejects new work, drops queued work and waits for running work.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.cancel()
	p.wg.Wait()
}
