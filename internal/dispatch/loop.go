// Package dispatch provides the per-device serial execution context.
// Every mutation of session or mirror state runs on one Loop, so UI
// calls, peer deliveries, and timer ticks never execute concurrently.
package dispatch

import (
	"sync/atomic"
	"time"
)

// Loop is a single-goroutine serial executor. Transport callbacks
// arriving on other goroutines must re-dispatch through Do before
// touching state.
type Loop struct {
	tasks  chan func()
	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewLoop creates and starts a Loop.
func NewLoop() *Loop {
	l := &Loop{
		tasks: make(chan func(), 128),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.quit:
			// Drain whatever was already enqueued.
			for {
				select {
				case fn := <-l.tasks:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Do enqueues fn for execution on the loop. Calls after Close are
// dropped.
func (l *Loop) Do(fn func()) {
	l.do(fn)
}

func (l *Loop) do(fn func()) bool {
	if l.closed.Load() {
		return false
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// DoWait runs fn on the loop and blocks until it returns. After Close
// the call is dropped and DoWait returns immediately.
func (l *Loop) DoWait(fn func()) {
	done := make(chan struct{})
	if !l.do(func() {
		defer close(done)
		fn()
	}) {
		return
	}
	select {
	case <-done:
	case <-l.done:
		// The loop exited while the task sat in the buffer: it will
		// never run.
	}
}

// Close stops the loop after draining already-enqueued tasks.
func (l *Loop) Close() {
	if l.closed.CompareAndSwap(false, true) {
		close(l.quit)
	}
	<-l.done
}

// Repeating is a cancellable scheduled-repeating-task handle. The
// callback always runs on the owning Loop.
type Repeating struct {
	cancelled atomic.Bool
	stop      chan struct{}
}

// Every schedules fn on the loop once per interval until cancelled.
func (l *Loop) Every(interval time.Duration, fn func()) *Repeating {
	r := &Repeating{stop: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Do(func() {
					// Checked on the loop: a handle cancelled from
					// loop context can never fire after its
					// replacement starts, even if a tick was
					// already enqueued.
					if !r.cancelled.Load() {
						fn()
					}
				})
			case <-r.stop:
				return
			case <-l.quit:
				return
			}
		}
	}()
	return r
}

// After schedules fn on the loop once after delay unless cancelled.
func (l *Loop) After(delay time.Duration, fn func()) *Repeating {
	r := &Repeating{stop: make(chan struct{})}
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			l.Do(func() {
				if !r.cancelled.Load() {
					fn()
				}
			})
		case <-r.stop:
		case <-l.quit:
		}
	}()
	return r
}

// Cancel stops the handle. When called from the loop the cancellation
// is synchronous: the callback will not run again.
func (r *Repeating) Cancel() {
	if r == nil {
		return
	}
	if r.cancelled.CompareAndSwap(false, true) {
		close(r.stop)
	}
}
