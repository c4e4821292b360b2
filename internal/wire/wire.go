// Package wire defines the peer sync protocol: one typed event per
// wire message, decoded exactly once at the transport boundary.
package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/liveset/internal/session"
)

// Kind is the wire-level type tag of a sync event.
type Kind string

const (
	KindPing             Kind = "ping"
	KindPong             Kind = "pong"
	KindSnapshot         Kind = "session_snapshot"
	KindSetUpdated       Kind = "set_updated"
	KindSetToggled       Kind = "set_toggled"
	KindSetAdded         Kind = "set_added"
	KindSetDeleted       Kind = "set_deleted"
	KindRestAdjusted     Kind = "rest_adjusted"
	KindSessionFinished  Kind = "session_finished"
	KindSessionDiscarded Kind = "session_discarded"
)

// Event is one decoded sync event.
type Event interface {
	Kind() Kind
	Head() Header
}

// Header carries the fields common to every event. Origin and SentAt
// are diagnostics only and never drive ordering decisions.
type Header struct {
	Type   Kind           `json:"type"`
	Origin session.Origin `json:"origin"`
	SentAt time.Time      `json:"sentAt"`
}

func (h Header) Kind() Kind   { return h.Type }
func (h Header) Head() Header { return h }

func newHeader(kind Kind, origin session.Origin) Header {
	return Header{Type: kind, Origin: origin, SentAt: time.Now()}
}

// Ping is the liveness probe; the peer answers with Pong over the
// direct-send reply path.
type Ping struct {
	Header
}

// Pong answers a Ping.
type Pong struct {
	Header
	ReceivedAt time.Time `json:"receivedAt"`
}

// Snapshot replaces the secondary's entire mirrored session.
type Snapshot struct {
	Header
	SessionID string             `json:"sessionId"`
	Title     string             `json:"title"`
	Exercises []SnapshotExercise `json:"exercises"`
}

// SnapshotExercise is the reduced exercise view carried in a snapshot.
// Notes and last-performance data never cross the link.
type SnapshotExercise struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	RestMinutes float64       `json:"restMinutes"`
	Sets        []SnapshotSet `json:"sets"`
}

// SnapshotSet is one set as carried in a snapshot.
type SnapshotSet struct {
	ID        string  `json:"id"`
	Weight    float64 `json:"weight"`
	Reps      FlexInt `json:"reps"`
	Completed bool    `json:"isCompleted"`
}

// SetUpdated overwrites one set's weight and reps.
type SetUpdated struct {
	Header
	SessionID  string  `json:"sessionId"`
	ExerciseID string  `json:"exerciseId"`
	SetID      string  `json:"setId"`
	Weight     float64 `json:"weight"`
	Reps       FlexInt `json:"reps"`
}

// SetToggled sets one set's completion flag.
type SetToggled struct {
	Header
	SessionID  string `json:"sessionId"`
	ExerciseID string `json:"exerciseId"`
	SetID      string `json:"setId"`
	Completed  bool   `json:"isCompleted"`
}

// SetAdded appends a new empty set to an exercise.
type SetAdded struct {
	Header
	SessionID  string `json:"sessionId"`
	ExerciseID string `json:"exerciseId"`
	SetID      string `json:"setId"`
}

// SetDeleted removes a set from an exercise.
type SetDeleted struct {
	Header
	SessionID  string `json:"sessionId"`
	ExerciseID string `json:"exerciseId"`
	SetID      string `json:"setId"`
}

// RestAdjusted reports the current rest countdown: started, extended,
// shortened, or (RemainingSeconds == 0) skipped/expired.
type RestAdjusted struct {
	Header
	SessionID        string  `json:"sessionId"`
	ExerciseID       string  `json:"exerciseId"`
	ExerciseName     string  `json:"exerciseName"`
	RemainingSeconds FlexInt `json:"remainingSeconds"`
}

// SessionFinished tells the peer the session ended normally.
type SessionFinished struct {
	Header
	SessionID string `json:"sessionId"`
}

// SessionDiscarded tells the peer the session was thrown away.
type SessionDiscarded struct {
	Header
	SessionID string `json:"sessionId"`
}

var (
	_ Event = (*Ping)(nil)
	_ Event = (*Pong)(nil)
	_ Event = (*Snapshot)(nil)
	_ Event = (*SetUpdated)(nil)
	_ Event = (*SetToggled)(nil)
	_ Event = (*SetAdded)(nil)
	_ Event = (*SetDeleted)(nil)
	_ Event = (*RestAdjusted)(nil)
	_ Event = (*SessionFinished)(nil)
	_ Event = (*SessionDiscarded)(nil)
)

// FlexInt is an integer that tolerates a fractional wire
// representation: 8, 8.0 and "compact" floats all decode to 8.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexInt(int(v))
	return nil
}

// Encode serializes an event for the wire.
func Encode(ev Event) ([]byte, error) {
	if ev.Kind() == "" {
		return nil, fmt.Errorf("encoding event: empty type tag")
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", ev.Kind(), err)
	}
	return data, nil
}

// Decode parses a wire message into its typed event. Snapshot payloads
// are sanitized: an exercise or set missing its required id/name is
// dropped individually instead of failing the whole decode.
func Decode(data []byte) (Event, error) {
	var probe struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding event envelope: %w", err)
	}

	var ev Event
	var err error
	switch probe.Type {
	case KindPing:
		ev, err = decodeInto(data, &Ping{})
	case KindPong:
		ev, err = decodeInto(data, &Pong{})
	case KindSnapshot:
		snap := &Snapshot{}
		if ev, err = decodeInto(data, snap); err == nil {
			snap.sanitize()
		}
	case KindSetUpdated:
		ev, err = decodeInto(data, &SetUpdated{})
	case KindSetToggled:
		ev, err = decodeInto(data, &SetToggled{})
	case KindSetAdded:
		ev, err = decodeInto(data, &SetAdded{})
	case KindSetDeleted:
		ev, err = decodeInto(data, &SetDeleted{})
	case KindRestAdjusted:
		ev, err = decodeInto(data, &RestAdjusted{})
	case KindSessionFinished:
		ev, err = decodeInto(data, &SessionFinished{})
	case KindSessionDiscarded:
		ev, err = decodeInto(data, &SessionDiscarded{})
	default:
		return nil, fmt.Errorf("decoding event: unknown type %q", probe.Type)
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeInto[T Event](data []byte, ev T) (Event, error) {
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decoding %s event: %w", probeKind(data), err)
	}
	return ev, nil
}

func probeKind(data []byte) Kind {
	var probe struct {
		Type Kind `json:"type"`
	}
	_ = json.Unmarshal(data, &probe)
	return probe.Type
}

// sanitize drops exercises missing id or name and sets missing id.
// A partially valid snapshot still heals everything it can.
func (s *Snapshot) sanitize() {
	exercises := s.Exercises[:0]
	for _, ex := range s.Exercises {
		if ex.ID == "" || ex.Name == "" {
			continue
		}
		sets := ex.Sets[:0]
		for _, set := range ex.Sets {
			if set.ID == "" {
				continue
			}
			sets = append(sets, set)
		}
		ex.Sets = sets
		exercises = append(exercises, ex)
	}
	s.Exercises = exercises
}
