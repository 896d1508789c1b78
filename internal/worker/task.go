// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Task is a cancellable unit of asynchronous work. Cancellation is
// cooperative: work checks Cancelled, or uses Deliver, before reporting.
type Task struct {
	id        string
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}
	doneOnce  sync.Once
}

// NewTask returns a task whose context derives from parent.
func NewTask(parent context.Context) *Task {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Task{id: uuid.NewString(), ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

// ID returns the task identifier.
func (t *Task) ID() string { return t.id }

// Context is cancelled together with the task.
func (t *Task) Context() context.Context { return t.ctx }

// Cancel marks the task cancelled and cancels its context.
func (t *Task) Cancel() {
	t.cancelled.Store(true)
	t.cancel()
}

// Cancelled reports whether Cancel was called or the parent context ended.
func (t *Task) Cancelled() bool {
	return t.cancelled.Load() || t.ctx.Err() != nil
}

// Deliver runs fn unless the task is cancelled and reports whether it ran.
func (t *Task) Deliver(fn func()) bool {
	if t.Cancelled() {
		return false
	}
	fn()
	return true
}

// Finish marks the task complete and releases its context.
func (t *Task) Finish() {
	t.doneOnce.Do(func() {
		close(t.done)
		t.cancel()
	})
}

// Done is closed by Finish.
func (t *Task) Done() <-chan struct{} { return t.done }

// Tracker is the synchronized list of outstanding tasks.
type Tracker struct {
	mu       sync.Mutex
	tasks    []*Task
	onChange func(n int)
}

// NewTracker returns an empty tracker. onChange, if set, receives the task
// count after every mutation.
func NewTracker(onChange func(n int)) *Tracker {
	return &Tracker{onChange: onChange}
}

// Add tracks t.
func (tr *Tracker) Add(t *Task) {
	tr.mu.Lock()
	tr.tasks = append(tr.tasks, t)
	n := len(tr.tasks)
	tr.mu.Unlock()
	tr.changed(n)
}

// Remove stops tracking t and reports whether it was tracked.
func (tr *Tracker) Remove(t *Task) bool {
	tr.mu.Lock()
	i := slices.Index(tr.tasks, t)
	if i >= 0 {
		tr.tasks = slices.Delete(tr.tasks, i, i+1)
	}
	n := len(tr.tasks)
	tr.mu.Unlock()
	if i >= 0 {
		tr.changed(n)
	}
	return i >= 0
}

// CancelAll cancels every tracked task, clears the list and returns how
// many tasks were cancelled.
func (tr *Tracker) CancelAll() int {
	tr.mu.Lock()
	tasks := tr.tasks
	tr.tasks = nil
	tr.mu.Unlock()
	for _, t := range tasks {
		t.Cancel()
	}
	tr.changed(0)
	return len(tasks)
}

// Len returns the number of tracked tasks.
func (tr *Tracker) Len() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.tasks)
}

// Snapshot returns a copy of the tracked tasks.
func (tr *Tracker) Snapshot() []*Task {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return slices.Clone(tr.tasks)
}

func (tr *Tracker) changed(n int) {
	if tr.onChange != nil {
		tr.onChange(n)
	}
}
