// Package scheduler implements a tab's task runner: a thread-safe FIFO of
// deferred callables drained on the UI thread one event-loop tick at a
// time, plus the requestAnimationFrame accumulator and a rate limiter
// pacing frame cadence.
package scheduler

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultFrameRateHz = 60

// Runner is a per-tab FIFO of deferred callables protected by a condition
// variable. Enqueue is safe from any goroutine — helper threads doing
// blocking network I/O (async XHR, fired timers) only ever reach tab
// state by enqueueing a callable here. Dequeue (RunPending) happens only
// on the UI thread.
//
// Method parameters are plain func() rather than a named type so Runner
// satisfies scripthost.Scheduler (and any similar consumer interface)
// without either package importing the other.
type Runner struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool

	frameMu    sync.Mutex
	frameTasks []func()

	frameLimiter *rate.Limiter
}

func NewRunner() *Runner {
	r := &Runner{
		frameLimiter: rate.NewLimiter(rate.Limit(defaultFrameRateHz), 1),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Enqueue appends fn to the FIFO and wakes a blocked Wait call.
func (r *Runner) Enqueue(fn func()) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.queue = append(r.queue, fn)
	r.mu.Unlock()
	r.cond.Signal()
}

// After schedules fn to run once, after delay, on this runner
// (setTimeout's underlying primitive). The timer itself fires on a Go
// runtime goroutine; it never touches tab state directly, only Enqueues.
func (r *Runner) After(ms int, fn func()) {
	time.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
		r.Enqueue(fn)
	})
}

// AfterFrame appends fn to the accumulated requestAnimationFrame list for
// the next frame.
func (r *Runner) AfterFrame(fn func()) {
	r.frameMu.Lock()
	r.frameTasks = append(r.frameTasks, fn)
	r.frameMu.Unlock()
}

// RunFrame runs and clears the accumulated requestAnimationFrame list,
// paced by frameLimiter so a script that re-requests a frame from inside
// its own callback cannot spin the UI thread faster than the configured
// rate. A call that arrives before the next tick is allowed is simply
// skipped; the accumulated list carries over to the following call.
func (r *Runner) RunFrame() {
	if !r.frameLimiter.Allow() {
		return
	}
	r.frameMu.Lock()
	tasks := r.frameTasks
	r.frameTasks = nil
	r.frameMu.Unlock()

	for _, fn := range tasks {
		fn()
	}
}

// RunPending dequeues and runs every task queued as of the moment this
// call started — one full event-loop tick. A task enqueued by a task
// running in this tick is deferred to the next tick, never run twice in
// the same call.
func (r *Runner) RunPending() {
	r.mu.Lock()
	tasks := r.queue
	r.queue = nil
	r.mu.Unlock()

	for _, fn := range tasks {
		fn()
	}
}

// Wait blocks until at least one task is queued or the runner is closed,
// reporting which. A UI-thread event loop calls Wait then RunPending in a
// loop instead of busy-polling the queue.
func (r *Runner) Wait() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.queue) == 0 && !r.closed {
		r.cond.Wait()
	}
	return len(r.queue) > 0
}

// Close wakes any blocked Wait call and marks the runner closed. Called
// when a tab navigates away: after Close, Enqueue drops new work. Tasks
// already queued stay in the queue, and RunPending on this runner still
// runs them; the tab stops draining it because it switches to a new runner.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (r *Runner) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
