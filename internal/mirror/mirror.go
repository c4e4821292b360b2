// Package mirror implements the wrist-side view of the live session: a
// simplified read-mostly projection reconciled by inbound events, plus
// the partial edits the secondary is allowed to originate.
package mirror

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liveset/internal/bus"
	"github.com/claude/liveset/internal/dispatch"
	"github.com/claude/liveset/internal/session"
	"github.com/claude/liveset/internal/timer"
	"github.com/claude/liveset/internal/transport"
	"github.com/claude/liveset/internal/wire"
)

// Exercise is the reduced projection mirrored on the wrist: no notes,
// no history.
type Exercise struct {
	ID          string
	Name        string
	RestMinutes float64
	Sets        []Set
}

// Set is one mirrored set.
type Set struct {
	ID        string
	Weight    float64
	Reps      int
	Completed bool
}

// editDebounce is the quiet period before a coalesced set edit is sent
// to the primary, bounding message volume from a continuously
// adjusting input control.
const editDebounce = 400 * time.Millisecond

// Mirror is the secondary-device coordinator. Never authoritative: the
// primary's snapshots rebuild it wholesale at any time.
type Mirror struct {
	loop *dispatch.Loop
	link transport.Link
	bus  *bus.Bus
	log  *slog.Logger

	sessionID string
	title     string
	exercises []Exercise

	// Local navigation, never synchronized; re-clamped after every
	// snapshot.
	exerciseIndex int
	setIndex      int

	rest     *timer.Rest
	restName string

	pendingEdit  *pendingEdit
	debounceTask *dispatch.Repeating
	lastErrMsg   string
}

type pendingEdit struct {
	exerciseID string
	setID      string
	weight     float64
	reps       int
}

// New creates a Mirror wired to the link.
func New(link transport.Link, b *bus.Bus, log *slog.Logger) *Mirror {
	if log == nil {
		log = slog.Default()
	}
	if b == nil {
		b = bus.New()
	}
	m := &Mirror{
		loop: dispatch.NewLoop(),
		link: link,
		bus:  b,
		log:  log,
	}
	m.rest = timer.NewRest(m.loop, nil, m.onRestExpired)
	m.link.Receive(func(ev wire.Event, reply func(wire.Event)) {
		m.loop.Do(func() { m.apply(ev, reply) })
	})
	m.link.OnStatusChange(func(st transport.Status) {
		m.loop.Do(func() {
			if p := st.Problem(); p != "" {
				m.lastErrMsg = p
			}
		})
	})
	return m
}

// Close flushes any pending edit and stops the loop.
func (m *Mirror) Close() {
	m.loop.DoWait(func() { m.flushPendingEdit() })
	m.loop.Close()
}

// Bus returns the mirror's event fan-out.
func (m *Mirror) Bus() *bus.Bus { return m.bus }

// --- inbound ---

func (m *Mirror) apply(ev wire.Event, reply func(wire.Event)) {
	switch e := ev.(type) {
	case *wire.Ping:
		pong := wire.NewPong(session.OriginWatch, time.Now())
		if reply != nil {
			reply(pong)
		} else {
			m.link.SendDirect(pong, nil, nil)
		}
		return
	case *wire.Pong:
		return
	case *wire.Snapshot:
		m.applySnapshot(e)
	case *wire.SetToggled:
		if m.sameSession(e.SessionID) {
			if set := m.setByID(e.ExerciseID, e.SetID); set != nil {
				set.Completed = e.Completed
			}
		}
	case *wire.SetUpdated:
		if m.sameSession(e.SessionID) {
			if set := m.setByID(e.ExerciseID, e.SetID); set != nil {
				set.Weight = e.Weight
				set.Reps = int(e.Reps)
			}
		}
	case *wire.SetAdded:
		m.applySetAdded(e)
	case *wire.SetDeleted:
		if m.sameSession(e.SessionID) {
			if ex := m.exerciseByID(e.ExerciseID); ex != nil && len(ex.Sets) > 1 {
				m.removeSet(ex, e.SetID)
			}
		}
		m.normalizeIndices()
	case *wire.RestAdjusted:
		m.applyRestAdjusted(e)
	case *wire.SessionFinished:
		if m.sameSession(e.SessionID) {
			m.reset()
		}
	case *wire.SessionDiscarded:
		if m.sameSession(e.SessionID) {
			m.reset()
		}
	default:
		m.log.Warn("ignoring unexpected peer event", "kind", ev.Kind())
		return
	}
	m.bus.Publish(ev)
}

// applySnapshot replaces the mirrored session wholesale. The decoder
// already dropped malformed exercises and sets, so a partially valid
// snapshot still applies. Applying the same snapshot twice is
// idempotent.
func (m *Mirror) applySnapshot(snap *wire.Snapshot) {
	m.sessionID = snap.SessionID
	m.title = snap.Title
	m.exercises = make([]Exercise, 0, len(snap.Exercises))
	for _, ex := range snap.Exercises {
		me := Exercise{
			ID:          ex.ID,
			Name:        ex.Name,
			RestMinutes: ex.RestMinutes,
			Sets:        make([]Set, 0, len(ex.Sets)),
		}
		for _, set := range ex.Sets {
			me.Sets = append(me.Sets, Set{
				ID:        set.ID,
				Weight:    set.Weight,
				Reps:      int(set.Reps),
				Completed: set.Completed,
			})
		}
		m.exercises = append(m.exercises, me)
	}
	m.normalizeIndices()
}

func (m *Mirror) applySetAdded(e *wire.SetAdded) {
	if !m.sameSession(e.SessionID) {
		return
	}
	ex := m.exerciseByID(e.ExerciseID)
	if ex == nil {
		return
	}
	for _, s := range ex.Sets {
		if s.ID == e.SetID {
			return
		}
	}
	ex.Sets = append(ex.Sets, Set{ID: e.SetID})
}

func (m *Mirror) applyRestAdjusted(e *wire.RestAdjusted) {
	if !m.sameSession(e.SessionID) {
		return
	}
	if e.RemainingSeconds <= 0 {
		m.restName = ""
		m.rest.Skip()
		return
	}
	m.restName = e.ExerciseName
	m.rest.Start(int(e.RemainingSeconds), e.ExerciseID, e.ExerciseName)
}

// reset clears to the no-session state.
func (m *Mirror) reset() {
	m.sessionID = ""
	m.title = ""
	m.exercises = nil
	m.exerciseIndex, m.setIndex = 0, 0
	m.restName = ""
	m.rest.Skip()
	m.debounceTask.Cancel()
	m.debounceTask = nil
	m.pendingEdit = nil
}

// Reset clears the mirror from the outside (e.g. at process start).
func (m *Mirror) Reset() {
	m.loop.DoWait(func() { m.reset() })
}

// --- local edits ---

// ToggleSet flips a set's completion by id and reports the new state.
// The toggle is sent to the primary; when the set is now completed and
// the exercise has rest configured, a local countdown starts too.
func (m *Mirror) ToggleSet(exerciseID, setID string) (completed, ok bool) {
	m.loop.DoWait(func() {
		ex := m.exerciseByID(exerciseID)
		if ex == nil {
			return
		}
		set := m.setInExercise(ex, setID)
		if set == nil {
			return
		}
		set.Completed = !set.Completed
		completed, ok = set.Completed, true
		transport.Send(m.link,
			wire.NewSetToggled(session.OriginWatch, m.sessionID, exerciseID, setID, set.Completed),
			m.onSendError)
		if set.Completed {
			if seconds := int(ex.RestMinutes*60 + 0.5); seconds > 0 {
				m.restName = ex.Name
				m.rest.Start(seconds, ex.ID, ex.Name)
			}
		}
	})
	return completed, ok
}

// UpdateSet overwrites a set's values locally and schedules the
// outbound event on a debounce: edits are coalesced and sent only
// after a short quiet period. Last local edit always wins locally.
func (m *Mirror) UpdateSet(exerciseID, setID string, weight float64, reps int) {
	m.loop.DoWait(func() {
		set := m.setByID(exerciseID, setID)
		if set == nil || weight < 0 || reps < 0 {
			return
		}
		set.Weight = weight
		set.Reps = reps

		if m.pendingEdit != nil &&
			(m.pendingEdit.exerciseID != exerciseID || m.pendingEdit.setID != setID) {
			// Editing a different set: flush the old edit now rather
			// than losing it to the new debounce window.
			m.flushPendingEdit()
		}
		m.pendingEdit = &pendingEdit{exerciseID: exerciseID, setID: setID, weight: weight, reps: reps}
		m.debounceTask.Cancel()
		m.debounceTask = m.loop.After(editDebounce, m.flushPendingEdit)
	})
}

func (m *Mirror) flushPendingEdit() {
	m.debounceTask.Cancel()
	m.debounceTask = nil
	if m.pendingEdit == nil {
		return
	}
	e := m.pendingEdit
	m.pendingEdit = nil
	transport.Send(m.link,
		wire.NewSetUpdated(session.OriginWatch, m.sessionID, e.exerciseID, e.setID, e.weight, e.reps),
		m.onSendError)
}

// AddSet appends a new empty set and notifies the primary.
func (m *Mirror) AddSet(exerciseID string) (setID string, ok bool) {
	m.loop.DoWait(func() {
		ex := m.exerciseByID(exerciseID)
		if ex == nil {
			return
		}
		setID = uuid.New().String()
		ex.Sets = append(ex.Sets, Set{ID: setID})
		ok = true
		transport.Send(m.link,
			wire.NewSetAdded(session.OriginWatch, m.sessionID, exerciseID, setID),
			m.onSendError)
	})
	return setID, ok
}

// DeleteSet removes a set and notifies the primary. Refused locally
// when it would drop the exercise's last remaining set, matching the
// primary's invariant.
func (m *Mirror) DeleteSet(exerciseID, setID string) bool {
	var ok bool
	m.loop.DoWait(func() {
		ex := m.exerciseByID(exerciseID)
		if ex == nil || len(ex.Sets) <= 1 {
			return
		}
		if !m.removeSet(ex, setID) {
			return
		}
		ok = true
		m.normalizeIndices()
		transport.Send(m.link,
			wire.NewSetDeleted(session.OriginWatch, m.sessionID, exerciseID, setID),
			m.onSendError)
	})
	return ok
}

// SkipRest stops the local countdown and tells the primary.
func (m *Mirror) SkipRest() {
	m.loop.DoWait(func() {
		if _, running := m.rest.Remaining(); !running {
			return
		}
		exID, _ := m.rest.Exercise()
		m.restName = ""
		m.rest.Skip()
		transport.Send(m.link,
			wire.NewRestAdjusted(session.OriginWatch, m.sessionID, exID, "", 0),
			m.onSendError)
	})
}

// ExtendRest adjusts the local countdown by delta seconds (±15s steps
// from the wrist UI) and tells the primary the new remainder.
func (m *Mirror) ExtendRest(deltaSeconds int) {
	m.loop.DoWait(func() {
		if _, running := m.rest.Remaining(); !running {
			return
		}
		exID, exName := m.rest.Exercise()
		m.rest.Adjust(deltaSeconds)
		remaining, running := m.rest.Remaining()
		if !running {
			remaining = 0
		}
		transport.Send(m.link,
			wire.NewRestAdjusted(session.OriginWatch, m.sessionID, exID, exName, remaining),
			m.onSendError)
	})
}

// RequestFinish asks the primary to finish the session.
func (m *Mirror) RequestFinish() {
	m.loop.DoWait(func() {
		if m.sessionID == "" {
			return
		}
		transport.Send(m.link, wire.NewSessionFinished(session.OriginWatch, m.sessionID), m.onSendError)
	})
}

// RequestDiscard asks the primary to discard the session.
func (m *Mirror) RequestDiscard() {
	m.loop.DoWait(func() {
		if m.sessionID == "" {
			return
		}
		transport.Send(m.link, wire.NewSessionDiscarded(session.OriginWatch, m.sessionID), m.onSendError)
	})
}

func (m *Mirror) onRestExpired() {
	m.restName = ""
}

// --- navigation ---

// SelectExercise moves the local exercise cursor, clamped to bounds.
func (m *Mirror) SelectExercise(i int) {
	m.loop.DoWait(func() {
		m.exerciseIndex = i
		m.setIndex = 0
		m.normalizeIndices()
	})
}

// SelectSet moves the local set cursor, clamped to bounds.
func (m *Mirror) SelectSet(i int) {
	m.loop.DoWait(func() {
		m.setIndex = i
		m.normalizeIndices()
	})
}

// normalizeIndices re-clamps the navigation cursor so it never points
// past the end of a list that shrank, including to an empty list.
func (m *Mirror) normalizeIndices() {
	if len(m.exercises) == 0 {
		m.exerciseIndex, m.setIndex = 0, 0
		return
	}
	if m.exerciseIndex < 0 {
		m.exerciseIndex = 0
	}
	if m.exerciseIndex >= len(m.exercises) {
		m.exerciseIndex = len(m.exercises) - 1
	}
	sets := m.exercises[m.exerciseIndex].Sets
	if len(sets) == 0 {
		m.setIndex = 0
		return
	}
	if m.setIndex < 0 {
		m.setIndex = 0
	}
	if m.setIndex >= len(sets) {
		m.setIndex = len(sets) - 1
	}
}

// --- reads ---

// SessionID returns the mirrored session id, "" when none.
func (m *Mirror) SessionID() string {
	var v string
	m.loop.DoWait(func() { v = m.sessionID })
	return v
}

// Title returns the mirrored session title.
func (m *Mirror) Title() string {
	var v string
	m.loop.DoWait(func() { v = m.title })
	return v
}

// Exercises returns a deep copy of the mirrored exercise list.
func (m *Mirror) Exercises() []Exercise {
	var v []Exercise
	m.loop.DoWait(func() {
		v = make([]Exercise, len(m.exercises))
		for i, ex := range m.exercises {
			v[i] = ex
			v[i].Sets = append([]Set(nil), ex.Sets...)
		}
	})
	return v
}

// Indices returns the local navigation cursor.
func (m *Mirror) Indices() (exercise, set int) {
	m.loop.DoWait(func() { exercise, set = m.exerciseIndex, m.setIndex })
	return exercise, set
}

// RestRemaining returns the local countdown and whether it runs.
func (m *Mirror) RestRemaining() (int, bool) {
	var remaining int
	var running bool
	m.loop.DoWait(func() { remaining, running = m.rest.Remaining() })
	return remaining, running
}

// RestLabel formats the local countdown as M:SS, "" when stopped.
func (m *Mirror) RestLabel() string {
	remaining, running := m.RestRemaining()
	if !running {
		return ""
	}
	return session.FormatRest(remaining)
}

// RestExerciseName names the exercise the countdown belongs to.
func (m *Mirror) RestExerciseName() string {
	var v string
	m.loop.DoWait(func() { v = m.restName })
	return v
}

// LastError returns the most recent surfaced transport status string.
func (m *Mirror) LastError() string {
	var v string
	m.loop.DoWait(func() { v = m.lastErrMsg })
	return v
}

// --- helpers ---

func (m *Mirror) sameSession(id string) bool {
	return m.sessionID != "" && id == m.sessionID
}

func (m *Mirror) exerciseByID(id string) *Exercise {
	for i := range m.exercises {
		if m.exercises[i].ID == id {
			return &m.exercises[i]
		}
	}
	return nil
}

func (m *Mirror) setInExercise(ex *Exercise, setID string) *Set {
	for i := range ex.Sets {
		if ex.Sets[i].ID == setID {
			return &ex.Sets[i]
		}
	}
	return nil
}

func (m *Mirror) setByID(exerciseID, setID string) *Set {
	ex := m.exerciseByID(exerciseID)
	if ex == nil {
		return nil
	}
	return m.setInExercise(ex, setID)
}

func (m *Mirror) removeSet(ex *Exercise, setID string) bool {
	for i := range ex.Sets {
		if ex.Sets[i].ID == setID {
			ex.Sets = append(ex.Sets[:i], ex.Sets[i+1:]...)
			return true
		}
	}
	return false
}

// onSendError runs on the transport context; surface on the loop.
func (m *Mirror) onSendError(err error) {
	m.loop.Do(func() {
		m.lastErrMsg = err.Error()
		m.log.Warn("direct send failed", "error", err)
	})
}
