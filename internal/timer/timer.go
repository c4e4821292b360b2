// Package timer implements the two session clocks: the monotonic
// elapsed counter and the adjustable one-shot rest countdown. Both
// tick on the device Loop, so tick callbacks are serialized with user
// and peer mutations.
package timer

import (
	"time"

	"github.com/claude/liveset/internal/dispatch"
)

// Elapsed counts up from session begin at 1 Hz. Each tick recomputes
// from the stored start timestamp, so missed ticks while the process
// was suspended never accumulate drift. Minimizing does not stop it.
type Elapsed struct {
	loop      *dispatch.Loop
	now       func() time.Time
	startedAt time.Time
	running   bool
	task      *dispatch.Repeating
	onTick    func(seconds int)
}

// NewElapsed creates a stopped elapsed clock. onTick runs on the loop
// once per second while the clock is running; it may be nil.
func NewElapsed(loop *dispatch.Loop, onTick func(seconds int)) *Elapsed {
	return &Elapsed{loop: loop, now: time.Now, onTick: onTick}
}

// Start begins counting from zero. A running clock restarts.
func (e *Elapsed) Start() {
	e.task.Cancel()
	e.startedAt = e.now()
	e.running = true
	e.task = e.loop.Every(time.Second, e.tick)
}

// Stop halts and clears the clock.
func (e *Elapsed) Stop() {
	e.task.Cancel()
	e.task = nil
	e.running = false
	e.startedAt = time.Time{}
}

// Running reports whether the clock is counting.
func (e *Elapsed) Running() bool { return e.running }

// Seconds returns whole seconds since Start, zero when stopped.
func (e *Elapsed) Seconds() int {
	if !e.running {
		return 0
	}
	return int(e.now().Sub(e.startedAt) / time.Second)
}

func (e *Elapsed) tick() {
	if !e.running {
		return
	}
	if e.onTick != nil {
		e.onTick(e.Seconds())
	}
}

// Rest is the one-shot rest countdown. It decrements by construction
// rather than re-deriving from a start timestamp, because it supports
// mid-flight manual adjustment. It auto-expires at zero: there is
// never a zero-but-running state.
type Rest struct {
	loop         *dispatch.Loop
	remaining    int
	exerciseID   string
	exerciseName string
	running      bool
	task         *dispatch.Repeating
	onChange     func(remaining int)
	onExpire     func()
}

// NewRest creates a stopped rest countdown. onChange runs on every
// tick and manual adjustment; onExpire runs once when the countdown
// reaches zero, is skipped, or is adjusted below zero. Either may be
// nil.
func NewRest(loop *dispatch.Loop, onChange func(remaining int), onExpire func()) *Rest {
	return &Rest{loop: loop, onChange: onChange, onExpire: onExpire}
}

// Start seeds the countdown for an exercise. A running countdown is
// replaced outright: the old handle is cancelled before the new one
// is installed, so at most one rest timer is ever active. Non-positive
// seconds are a no-op.
func (r *Rest) Start(seconds int, exerciseID, exerciseName string) {
	if seconds <= 0 {
		return
	}
	r.task.Cancel()
	r.remaining = seconds
	r.exerciseID = exerciseID
	r.exerciseName = exerciseName
	r.running = true
	r.task = r.loop.Every(time.Second, r.tick)
}

// Adjust adds delta seconds (negative to shorten). Clamped at zero:
// an adjustment at or below zero expires the countdown instead of
// leaving a running zero-second timer. No-op when stopped.
func (r *Rest) Adjust(delta int) {
	if !r.running {
		return
	}
	r.remaining += delta
	if r.remaining <= 0 {
		r.expire()
		return
	}
	if r.onChange != nil {
		r.onChange(r.remaining)
	}
}

// Skip cancels the countdown, equivalent to reaching zero early.
func (r *Rest) Skip() {
	if !r.running {
		return
	}
	r.expire()
}

// Remaining returns the seconds left and whether the countdown runs.
func (r *Rest) Remaining() (int, bool) {
	if !r.running {
		return 0, false
	}
	return r.remaining, true
}

// Exercise returns the id and name of the exercise the countdown
// belongs to; empty strings when stopped.
func (r *Rest) Exercise() (id, name string) {
	return r.exerciseID, r.exerciseName
}

func (r *Rest) tick() {
	if !r.running {
		return
	}
	r.remaining--
	if r.remaining <= 0 {
		r.expire()
		return
	}
	if r.onChange != nil {
		r.onChange(r.remaining)
	}
}

func (r *Rest) expire() {
	r.task.Cancel()
	r.task = nil
	r.running = false
	r.remaining = 0
	r.exerciseID = ""
	r.exerciseName = ""
	if r.onExpire != nil {
		r.onExpire()
	}
}
