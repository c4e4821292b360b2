// Package primary implements the session-owning coordinator that runs
// on the phone-side process. It owns the session lifecycle, drives the
// elapsed and rest timers, emits events describing local mutations,
// and applies inbound events from the secondary to the same state the
// local UI renders.
package primary

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liveset/internal/bus"
	"github.com/claude/liveset/internal/catalog"
	"github.com/claude/liveset/internal/dispatch"
	"github.com/claude/liveset/internal/session"
	"github.com/claude/liveset/internal/timer"
	"github.com/claude/liveset/internal/transport"
	"github.com/claude/liveset/internal/wire"
)

// Store is the persistence collaborator. Every call is best-effort:
// a failure is logged and the session lifecycle proceeds regardless.
type Store interface {
	SaveRoutine(ctx context.Context, r session.Routine) error
	RecordCompletedTraining(ctx context.Context, title string, exercises []session.Exercise, m session.Metrics) error
	LastPerformance(ctx context.Context, exerciseName string) ([]session.Performance, error)
}

// HealthSampler produces the opaque biometric summary attached to a
// completed training. May be nil.
type HealthSampler interface {
	Summary() (avgHeartRate, maxHeartRate, activeCalories float64)
}

const defaultHealInterval = 30 * time.Second

// Options configures a Coordinator.
type Options struct {
	Link   transport.Link
	Store  Store
	Bus    *bus.Bus
	Log    *slog.Logger
	Health HealthSampler

	// HealInterval is the cadence of the periodic full-snapshot
	// republish while a session is active. Zero means the default.
	HealInterval time.Duration
}

// Coordinator is the primary-device session owner. All state lives on
// one dispatch.Loop; public methods may be called from any goroutine.
type Coordinator struct {
	loop   *dispatch.Loop
	link   transport.Link
	store  Store
	bus    *bus.Bus
	log    *slog.Logger
	health HealthSampler

	healInterval time.Duration

	sess      session.Session
	minimized bool

	sourceRoutineID string
	beginExercises  []session.Exercise

	elapsed  *timer.Elapsed
	rest     *timer.Rest
	restExID string
	restName string

	healTask *dispatch.Repeating

	toast      *session.Toast
	lastProbe  time.Duration
	lastErrMsg string
}

// New creates a Coordinator and wires it to the link. The caller owns
// the returned value for the life of the process; Close releases it.
func New(opts Options) *Coordinator {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Bus == nil {
		opts.Bus = bus.New()
	}
	if opts.HealInterval == 0 {
		opts.HealInterval = defaultHealInterval
	}
	c := &Coordinator{
		loop:         dispatch.NewLoop(),
		link:         opts.Link,
		store:        opts.Store,
		bus:          opts.Bus,
		log:          opts.Log,
		health:       opts.Health,
		healInterval: opts.HealInterval,
	}
	c.elapsed = timer.NewElapsed(c.loop, nil)
	c.rest = timer.NewRest(c.loop, nil, c.onRestExpired)

	// Inbound deliveries arrive on the transport's context and are
	// re-dispatched onto the loop before touching state.
	c.link.Receive(func(ev wire.Event, reply func(wire.Event)) {
		c.loop.Do(func() { c.apply(ev, reply) })
	})
	c.link.OnStatusChange(func(st transport.Status) {
		c.loop.Do(func() {
			if p := st.Problem(); p != "" {
				c.lastErrMsg = p
			}
			c.log.Info("link status", "reachable", st.Reachable, "paired", st.Paired, "installed", st.PeerInstalled)
		})
	})
	return c
}

// Close stops timers and the loop.
func (c *Coordinator) Close() {
	c.loop.DoWait(func() { c.teardown() })
	c.loop.Close()
}

// Bus returns the coordinator's event fan-out.
func (c *Coordinator) Bus() *bus.Bus { return c.bus }

// --- lifecycle ---

// BeginFromRoutine starts a session from a routine. The routine id and
// its exercise snapshot are captured for the finish-time diff.
func (c *Coordinator) BeginFromRoutine(r session.Routine) {
	c.loop.DoWait(func() { c.begin(r.Title, r.ID, session.CloneExercises(r.Exercises)) })
}

// BeginEmpty starts a session with no exercises.
func (c *Coordinator) BeginEmpty() {
	c.loop.DoWait(func() { c.begin("Workout", "", nil) })
}

func (c *Coordinator) begin(title, routineID string, exercises []session.Exercise) {
	c.teardown()
	c.sess = session.Session{
		ID:        uuid.New().String(),
		Title:     title,
		Exercises: exercises,
	}
	c.sourceRoutineID = routineID
	c.prefillLastPerformance()
	c.beginExercises = session.CloneExercises(c.sess.Exercises)
	c.elapsed.Start()
	c.healTask = c.loop.Every(c.healInterval, c.publishSnapshot)
	c.publishSnapshot()
	c.log.Info("session started", "session", c.sess.ID, "title", title, "exercises", len(exercises))
}

// prefillLastPerformance copies the previous training's completed
// weight/reps into LastWeight/LastReps, by set position. Best-effort.
func (c *Coordinator) prefillLastPerformance() {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := range c.sess.Exercises {
		ex := &c.sess.Exercises[i]
		perf, err := c.store.LastPerformance(ctx, ex.Name)
		if err != nil {
			c.log.Warn("last performance lookup failed", "exercise", ex.Name, "error", err)
			continue
		}
		for j := range ex.Sets {
			if j >= len(perf) {
				break
			}
			ex.Sets[j].LastWeight = perf[j].Weight
			ex.Sets[j].LastReps = perf[j].Reps
		}
	}
}

// Minimize collapses the live-session UI. Pure presentation state.
func (c *Coordinator) Minimize() {
	c.loop.DoWait(func() {
		if c.sess.Active() {
			c.minimized = true
		}
	})
}

// Restore expands the live-session UI again.
func (c *Coordinator) Restore() {
	c.loop.DoWait(func() {
		if c.sess.Active() {
			c.minimized = false
		}
	})
}

// Finish completes the session: computes final metrics, records the
// training, optionally writes the edited exercise list back onto the
// source routine, builds the completion toast, notifies the peer, and
// tears down. Persistence failures never block teardown.
func (c *Coordinator) Finish(updateSourceRoutine bool) {
	c.loop.DoWait(func() { c.finish(updateSourceRoutine) })
}

func (c *Coordinator) finish(updateSourceRoutine bool) {
	if !c.sess.Active() {
		return
	}
	m := session.Metrics{
		ElapsedSeconds: c.elapsed.Seconds(),
		CompletedSets:  c.sess.CompletedSets(),
		TotalVolume:    c.sess.TotalVolume(),
	}
	if c.health != nil {
		m.AvgHeartRate, m.MaxHeartRate, m.ActiveCalories = c.health.Summary()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if c.store != nil {
		if err := c.store.RecordCompletedTraining(ctx, c.sess.Title, c.sess.Exercises, m); err != nil {
			c.log.Warn("recording training failed", "error", err)
		}
	}

	routineUpdated := updateSourceRoutine && c.sourceRoutineID != ""
	if routineUpdated && c.store != nil {
		r := session.Routine{
			ID:        c.sourceRoutineID,
			Title:     c.sess.Title,
			Exercises: session.CloneExercises(c.sess.Exercises),
		}
		if err := c.store.SaveRoutine(ctx, r); err != nil {
			c.log.Warn("routine update failed", "routine", r.ID, "error", err)
		}
	}

	t := session.FinishToast(c.sess.Title, routineUpdated)
	c.toast = &t

	transport.Send(c.link, wire.NewSessionFinished(session.OriginPhone, c.sess.ID), c.onSendError)
	c.log.Info("session finished", "session", c.sess.ID,
		"elapsed", m.ElapsedSeconds, "sets", m.CompletedSets, "volume", m.TotalVolume)
	c.teardown()
}

// Discard tears the session down without persisting anything.
func (c *Coordinator) Discard() {
	c.loop.DoWait(func() {
		if !c.sess.Active() {
			return
		}
		transport.Send(c.link, wire.NewSessionDiscarded(session.OriginPhone, c.sess.ID), c.onSendError)
		c.log.Info("session discarded", "session", c.sess.ID)
		c.teardown()
	})
}

// teardown stops timers and clears all session state. The previous
// timer handles are cancelled before the fields are cleared, so a
// stale tick can never touch the next session.
func (c *Coordinator) teardown() {
	c.healTask.Cancel()
	c.healTask = nil
	c.elapsed.Stop()
	// Clear the rest owner first so the expiry hook does not announce
	// a rest change for a session that is going away.
	c.restExID, c.restName = "", ""
	c.rest.Skip()
	c.sess = session.Session{}
	c.minimized = false
	c.sourceRoutineID = ""
	c.beginExercises = nil
}

// --- local mutations ---

// ToggleSetCompletion flips a set's completion by position. Completing
// a set with rest configured (re)starts the rest countdown, replacing
// any countdown already running, even one owned by another exercise.
func (c *Coordinator) ToggleSetCompletion(exerciseIndex, setIndex int) {
	c.loop.DoWait(func() {
		ex, set := c.setAt(exerciseIndex, setIndex)
		if set == nil {
			return
		}
		set.Completed = !set.Completed
		transport.Send(c.link, wire.NewSetToggled(session.OriginPhone, c.sess.ID, ex.ID, set.ID, set.Completed), c.onSendError)
		if set.Completed {
			c.startRest(ex)
		}
	})
}

func (c *Coordinator) startRest(ex *session.Exercise) {
	seconds := ex.RestSeconds()
	if seconds <= 0 {
		return
	}
	c.restExID, c.restName = ex.ID, ex.Name
	c.rest.Start(seconds, ex.ID, ex.Name)
	c.broadcastRest(seconds)
}

// AddExercise appends a catalog exercise with one empty set. Primary-
// only affordance: no partial event is emitted; a fresh snapshot heals
// the mirror instead.
func (c *Coordinator) AddExercise(item catalog.Item) {
	c.loop.DoWait(func() {
		if !c.sess.Active() {
			return
		}
		c.sess.Exercises = append(c.sess.Exercises, session.Exercise{
			ID:       item.ID,
			Name:     item.Name,
			ImageURL: item.ImageURL,
			Muscles:  append([]string(nil), item.Muscles...),
			Sets:     []session.Set{{ID: uuid.New().String()}},
		})
		c.publishSnapshot()
	})
}

// AddSet appends a set to an exercise, carrying the previous set's
// values as reference data. Primary-only affordance.
func (c *Coordinator) AddSet(exerciseIndex int) {
	c.loop.DoWait(func() {
		if !c.sess.Active() || exerciseIndex < 0 || exerciseIndex >= len(c.sess.Exercises) {
			return
		}
		ex := &c.sess.Exercises[exerciseIndex]
		set := session.Set{ID: uuid.New().String()}
		if n := len(ex.Sets); n > 0 {
			set.LastWeight = ex.Sets[n-1].Weight
			set.LastReps = ex.Sets[n-1].Reps
		}
		ex.Sets = append(ex.Sets, set)
		c.publishSnapshot()
	})
}

// SetRestMinutes changes an exercise's configured rest. Primary-only
// affordance; takes effect on the next set completion.
func (c *Coordinator) SetRestMinutes(minutes float64, exerciseIndex int) {
	c.loop.DoWait(func() {
		if !c.sess.Active() || exerciseIndex < 0 || exerciseIndex >= len(c.sess.Exercises) || minutes < 0 {
			return
		}
		c.sess.Exercises[exerciseIndex].RestMinutes = minutes
	})
}

// UpdateSet overwrites a set's weight and reps by position.
func (c *Coordinator) UpdateSet(exerciseIndex, setIndex int, weight float64, reps int) {
	c.loop.DoWait(func() {
		_, set := c.setAt(exerciseIndex, setIndex)
		if set == nil || weight < 0 || reps < 0 {
			return
		}
		set.Weight = weight
		set.Reps = reps
	})
}

// AddRest adjusts the running rest countdown by delta seconds,
// clamping at zero: shortening past zero cancels the countdown rather
// than leaving a running zero-second timer.
func (c *Coordinator) AddRest(deltaSeconds int) {
	c.loop.DoWait(func() {
		if !c.sess.Active() {
			return
		}
		c.rest.Adjust(deltaSeconds)
		if remaining, running := c.rest.Remaining(); running {
			c.broadcastRest(remaining)
		}
	})
}

// SkipRest cancels the running rest countdown, equivalent to the
// countdown reaching zero.
func (c *Coordinator) SkipRest() {
	c.loop.DoWait(func() {
		if c.sess.Active() {
			c.rest.Skip()
		}
	})
}

// onRestExpired runs on the loop whenever the countdown stops: natural
// expiry, skip, or an adjustment at or below zero.
func (c *Coordinator) onRestExpired() {
	if c.restExID == "" {
		return
	}
	c.broadcastRest(0)
	c.restExID, c.restName = "", ""
}

func (c *Coordinator) broadcastRest(remaining int) {
	if !c.sess.Active() {
		return
	}
	transport.Send(c.link,
		wire.NewRestAdjusted(session.OriginPhone, c.sess.ID, c.restExID, c.restName, remaining),
		c.onSendError)
}

// ForceHeal republishes the full snapshot immediately.
func (c *Coordinator) ForceHeal() {
	c.loop.DoWait(c.publishSnapshot)
}

func (c *Coordinator) publishSnapshot() {
	if !c.sess.Active() {
		return
	}
	c.link.PublishSnapshot(wire.SnapshotOf(session.OriginPhone, &c.sess))
}

// Probe sends a liveness ping over the direct channel. onResult (may
// be nil) receives the round-trip time or an error.
func (c *Coordinator) Probe(onResult func(time.Duration, error)) {
	start := time.Now()
	c.link.SendDirect(wire.NewPing(session.OriginPhone),
		func(wire.Event) {
			rtt := time.Since(start)
			c.loop.Do(func() { c.lastProbe = rtt })
			if onResult != nil {
				onResult(rtt, nil)
			}
		},
		func(err error) {
			c.loop.Do(func() { c.lastErrMsg = err.Error() })
			if onResult != nil {
				onResult(0, err)
			}
		})
}

// --- inbound events ---

// apply runs on the loop for every inbound peer event.
func (c *Coordinator) apply(ev wire.Event, reply func(wire.Event)) {
	switch e := ev.(type) {
	case *wire.Ping:
		pong := wire.NewPong(session.OriginPhone, time.Now())
		if reply != nil {
			reply(pong)
		} else {
			c.link.SendDirect(pong, nil, c.onSendError)
		}
		return
	case *wire.Pong:
		return
	case *wire.SetUpdated:
		c.applySetUpdated(e)
	case *wire.SetToggled:
		c.applySetToggled(e)
	case *wire.SetAdded:
		c.applySetAdded(e)
	case *wire.SetDeleted:
		c.applySetDeleted(e)
	case *wire.RestAdjusted:
		c.applyRestAdjusted(e)
	case *wire.SessionFinished:
		if c.sameSession(e.SessionID) {
			c.finish(false)
		}
	case *wire.SessionDiscarded:
		if c.sameSession(e.SessionID) {
			transport.Send(c.link, wire.NewSessionDiscarded(session.OriginPhone, c.sess.ID), c.onSendError)
			c.log.Info("session discarded by peer", "session", c.sess.ID)
			c.teardown()
		}
	default:
		c.log.Warn("ignoring unexpected peer event", "kind", ev.Kind())
		return
	}
	c.bus.Publish(ev)
}

func (c *Coordinator) applySetUpdated(e *wire.SetUpdated) {
	_, set := c.setByID(e.SessionID, e.ExerciseID, e.SetID)
	if set == nil {
		return
	}
	set.Weight = e.Weight
	set.Reps = int(e.Reps)
}

func (c *Coordinator) applySetToggled(e *wire.SetToggled) {
	ex, set := c.setByID(e.SessionID, e.ExerciseID, e.SetID)
	if set == nil {
		return
	}
	// Overwrite, not flip: replaying the same toggle is harmless.
	set.Completed = e.Completed
	if e.Completed {
		// The watch already runs its own countdown; start ours without
		// echoing a rest event back.
		if seconds := ex.RestSeconds(); seconds > 0 {
			c.restExID, c.restName = ex.ID, ex.Name
			c.rest.Start(seconds, ex.ID, ex.Name)
		}
	}
}

func (c *Coordinator) applySetAdded(e *wire.SetAdded) {
	if !c.sameSession(e.SessionID) {
		return
	}
	ex := c.sess.ExerciseByID(e.ExerciseID)
	if ex == nil || ex.SetByID(e.SetID) != nil {
		return
	}
	set := session.Set{ID: e.SetID}
	if n := len(ex.Sets); n > 0 {
		set.LastWeight = ex.Sets[n-1].Weight
		set.LastReps = ex.Sets[n-1].Reps
	}
	ex.Sets = append(ex.Sets, set)
}

func (c *Coordinator) applySetDeleted(e *wire.SetDeleted) {
	if !c.sameSession(e.SessionID) {
		return
	}
	ex := c.sess.ExerciseByID(e.ExerciseID)
	if ex == nil {
		return
	}
	if !ex.DeleteSet(e.SetID) {
		// Refused (last set or unknown id): heal the mirror, which may
		// have optimistically deleted locally.
		c.publishSnapshot()
	}
}

func (c *Coordinator) applyRestAdjusted(e *wire.RestAdjusted) {
	if !c.sameSession(e.SessionID) {
		return
	}
	if e.RemainingSeconds <= 0 {
		c.restExID, c.restName = "", ""
		c.rest.Skip()
		return
	}
	ex := c.sess.ExerciseByID(e.ExerciseID)
	name := e.ExerciseName
	if ex != nil {
		name = ex.Name
	}
	c.restExID, c.restName = e.ExerciseID, name
	c.rest.Start(int(e.RemainingSeconds), e.ExerciseID, name)
}

// --- derived reads ---

// Active reports whether a session is in progress.
func (c *Coordinator) Active() bool {
	var v bool
	c.loop.DoWait(func() { v = c.sess.Active() })
	return v
}

// Minimized reports the presentation toggle.
func (c *Coordinator) Minimized() bool {
	var v bool
	c.loop.DoWait(func() { v = c.minimized })
	return v
}

// Session returns a deep copy of the live session for rendering.
func (c *Coordinator) Session() session.Session {
	var v session.Session
	c.loop.DoWait(func() {
		v = c.sess
		v.Exercises = session.CloneExercises(c.sess.Exercises)
	})
	return v
}

// CompletedSetsCount counts sets with Completed == true.
func (c *Coordinator) CompletedSetsCount() int {
	var v int
	c.loop.DoWait(func() { v = c.sess.CompletedSets() })
	return v
}

// TotalVolume sums weight*reps over completed sets.
func (c *Coordinator) TotalVolume() float64 {
	var v float64
	c.loop.DoWait(func() { v = c.sess.TotalVolume() })
	return v
}

// ElapsedSeconds returns whole seconds since session begin.
func (c *Coordinator) ElapsedSeconds() int {
	var v int
	c.loop.DoWait(func() { v = c.elapsed.Seconds() })
	return v
}

// ElapsedLabel formats the elapsed clock for display.
func (c *Coordinator) ElapsedLabel() string {
	return session.FormatElapsed(c.ElapsedSeconds())
}

// RestRemaining returns the rest countdown and whether it runs.
func (c *Coordinator) RestRemaining() (int, bool) {
	var remaining int
	var running bool
	c.loop.DoWait(func() { remaining, running = c.rest.Remaining() })
	return remaining, running
}

// RestLabel formats the rest countdown as M:SS, or "" when stopped.
func (c *Coordinator) RestLabel() string {
	remaining, running := c.RestRemaining()
	if !running {
		return ""
	}
	return session.FormatRest(remaining)
}

// RestExerciseName names the exercise owning the running countdown.
func (c *Coordinator) RestExerciseName() string {
	var v string
	c.loop.DoWait(func() { v = c.restName })
	return v
}

// HasRoutineChanges reports structural inequality between the live
// exercise list and the snapshot captured at begin. Always false for
// sessions not started from a routine.
func (c *Coordinator) HasRoutineChanges() bool {
	var v bool
	c.loop.DoWait(func() {
		v = c.sourceRoutineID != "" && !session.ExercisesEqual(c.sess.Exercises, c.beginExercises)
	})
	return v
}

// Toast returns the pending completion toast, if any, and clears it.
func (c *Coordinator) Toast() *session.Toast {
	var v *session.Toast
	c.loop.DoWait(func() {
		v = c.toast
		c.toast = nil
	})
	return v
}

// LastError returns the most recent surfaced transport status string.
func (c *Coordinator) LastError() string {
	var v string
	c.loop.DoWait(func() { v = c.lastErrMsg })
	return v
}

// --- helpers ---

func (c *Coordinator) sameSession(id string) bool {
	return c.sess.Active() && id == c.sess.ID
}

func (c *Coordinator) setAt(exerciseIndex, setIndex int) (*session.Exercise, *session.Set) {
	if !c.sess.Active() || exerciseIndex < 0 || exerciseIndex >= len(c.sess.Exercises) {
		return nil, nil
	}
	ex := &c.sess.Exercises[exerciseIndex]
	if setIndex < 0 || setIndex >= len(ex.Sets) {
		return nil, nil
	}
	return ex, &ex.Sets[setIndex]
}

func (c *Coordinator) setByID(sessionID, exerciseID, setID string) (*session.Exercise, *session.Set) {
	if !c.sameSession(sessionID) {
		return nil, nil
	}
	ex := c.sess.ExerciseByID(exerciseID)
	if ex == nil {
		return nil, nil
	}
	set := ex.SetByID(setID)
	if set == nil {
		return nil, nil
	}
	return ex, set
}

// onSendError runs on the transport context; surface on the loop.
func (c *Coordinator) onSendError(err error) {
	c.loop.Do(func() {
		c.lastErrMsg = err.Error()
		c.log.Warn("direct send failed", "error", err)
	})
}
