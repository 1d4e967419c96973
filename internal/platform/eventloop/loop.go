// Package eventloop runs callbacks one at a time on a single goroutine.
//
// Handlers posted to a Loop never run concurrently with each other, so state
// owned by the loop needs no locking. Timers re-enter the loop instead of
// running on the timer goroutine.
package eventloop

import (
	"context"
	"sync"
	"time"
)

type Loop struct {
	mu      sync.Mutex
	pending []func()
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Run processes posted callbacks until ctx is cancelled. Callbacks already
// queued when the loop stops are still executed before Done is closed.
func (l *Loop) Run(ctx context.Context) error {
	defer l.shutdown()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
			l.drain()
		}
	}
}

// Post queues fn. It reports false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Done is closed after the loop has stopped and drained.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// AfterFunc posts fn to the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	t := &Timer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.fire() {
				fn()
			}
		})
	})
	return t
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			fn()
		}
	}
}

func (l *Loop) shutdown() {
	l.drain()
	l.mu.Lock()
	l.closed = true
	rest := l.pending
	l.pending = nil
	l.mu.Unlock()
	for _, fn := range rest {
		fn()
	}
	close(l.done)
}

// Timer is a loop-bound timer. Stop guarantees the callback will not run,
// even if the underlying timer already fired and its callback is queued.
type Timer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	fired   bool
}

func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
	return true
}

func (t *Timer) fire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.fired = true
	return true
}
