package wire

import (
	"time"

	"github.com/claude/liveset/internal/session"
)

// NewPing builds a liveness probe.
func NewPing(origin session.Origin) *Ping {
	return &Ping{Header: newHeader(KindPing, origin)}
}

// NewPong builds the answer to a liveness probe.
func NewPong(origin session.Origin, receivedAt time.Time) *Pong {
	return &Pong{Header: newHeader(KindPong, origin), ReceivedAt: receivedAt}
}

// SnapshotOf serializes a full session into a snapshot event, reducing
// each exercise to the fields the secondary mirrors.
func SnapshotOf(origin session.Origin, s *session.Session) *Snapshot {
	snap := &Snapshot{
		Header:    newHeader(KindSnapshot, origin),
		SessionID: s.ID,
		Title:     s.Title,
		Exercises: make([]SnapshotExercise, 0, len(s.Exercises)),
	}
	for _, ex := range s.Exercises {
		se := SnapshotExercise{
			ID:          ex.ID,
			Name:        ex.Name,
			RestMinutes: ex.RestMinutes,
			Sets:        make([]SnapshotSet, 0, len(ex.Sets)),
		}
		for _, set := range ex.Sets {
			se.Sets = append(se.Sets, SnapshotSet{
				ID:        set.ID,
				Weight:    set.Weight,
				Reps:      FlexInt(set.Reps),
				Completed: set.Completed,
			})
		}
		snap.Exercises = append(snap.Exercises, se)
	}
	return snap
}

// NewSetUpdated builds a set value overwrite event.
func NewSetUpdated(origin session.Origin, sessionID, exerciseID, setID string, weight float64, reps int) *SetUpdated {
	return &SetUpdated{
		Header:     newHeader(KindSetUpdated, origin),
		SessionID:  sessionID,
		ExerciseID: exerciseID,
		SetID:      setID,
		Weight:     weight,
		Reps:       FlexInt(reps),
	}
}

// NewSetToggled builds a completion toggle event.
func NewSetToggled(origin session.Origin, sessionID, exerciseID, setID string, completed bool) *SetToggled {
	return &SetToggled{
		Header:     newHeader(KindSetToggled, origin),
		SessionID:  sessionID,
		ExerciseID: exerciseID,
		SetID:      setID,
		Completed:  completed,
	}
}

// NewSetAdded builds an add-set event.
func NewSetAdded(origin session.Origin, sessionID, exerciseID, setID string) *SetAdded {
	return &SetAdded{
		Header:     newHeader(KindSetAdded, origin),
		SessionID:  sessionID,
		ExerciseID: exerciseID,
		SetID:      setID,
	}
}

// NewSetDeleted builds a delete-set event.
func NewSetDeleted(origin session.Origin, sessionID, exerciseID, setID string) *SetDeleted {
	return &SetDeleted{
		Header:     newHeader(KindSetDeleted, origin),
		SessionID:  sessionID,
		ExerciseID: exerciseID,
		SetID:      setID,
	}
}

// NewRestAdjusted builds a rest countdown state event. Zero remaining
// seconds means the countdown stopped (skipped or expired).
func NewRestAdjusted(origin session.Origin, sessionID, exerciseID, exerciseName string, remaining int) *RestAdjusted {
	return &RestAdjusted{
		Header:           newHeader(KindRestAdjusted, origin),
		SessionID:        sessionID,
		ExerciseID:       exerciseID,
		ExerciseName:     exerciseName,
		RemainingSeconds: FlexInt(remaining),
	}
}

// NewSessionFinished builds a session-finished event.
func NewSessionFinished(origin session.Origin, sessionID string) *SessionFinished {
	return &SessionFinished{Header: newHeader(KindSessionFinished, origin), SessionID: sessionID}
}

// NewSessionDiscarded builds a session-discarded event.
func NewSessionDiscarded(origin session.Origin, sessionID string) *SessionDiscarded {
	return &SessionDiscarded{Header: newHeader(KindSessionDiscarded, origin), SessionID: sessionID}
}
