package session

import "fmt"

// Origin identifies which device produced a value or event.
type Origin string

const (
	OriginPhone Origin = "phone"
	OriginWatch Origin = "watch"
)

// Session is one active workout. An empty ID means "no session".
// While active the session is exclusively owned by the primary device;
// the secondary holds a mirror rebuilt from snapshots.
type Session struct {
	ID        string
	Title     string
	Exercises []Exercise
}

// Active reports whether a session is in progress.
func (s *Session) Active() bool {
	return s.ID != ""
}

// Exercise is one exercise within a session. Order is significant:
// partial updates from the secondary address exercises by position as
// well as by id. Notes are primary-only and never mirrored.
type Exercise struct {
	ID          string
	Name        string
	ImageURL    string
	Muscles     []string
	Notes       string
	RestMinutes float64
	Sets        []Set
}

// RestSeconds converts the configured rest into whole seconds.
// Zero means rest is disabled for this exercise.
func (e *Exercise) RestSeconds() int {
	return int(e.RestMinutes*60 + 0.5)
}

// Set is one set of an exercise. LastWeight/LastReps are read-only
// reference data from the previous time the exercise was performed,
// copied in at session start on the primary only.
type Set struct {
	ID         string
	Weight     float64
	Reps       int
	Completed  bool
	LastWeight float64
	LastReps   int
}

// Volume is the training volume of this set if completed, else zero.
func (s Set) Volume() float64 {
	if !s.Completed {
		return 0
	}
	return s.Weight * float64(s.Reps)
}

// CompletedSets counts sets with Completed == true across all exercises.
func (s *Session) CompletedSets() int {
	n := 0
	for _, ex := range s.Exercises {
		for _, set := range ex.Sets {
			if set.Completed {
				n++
			}
		}
	}
	return n
}

// TotalVolume sums weight*reps over completed sets.
func (s *Session) TotalVolume() float64 {
	var v float64
	for _, ex := range s.Exercises {
		for _, set := range ex.Sets {
			v += set.Volume()
		}
	}
	return v
}

// ExerciseByID returns the exercise with the given id, or nil.
func (s *Session) ExerciseByID(id string) *Exercise {
	for i := range s.Exercises {
		if s.Exercises[i].ID == id {
			return &s.Exercises[i]
		}
	}
	return nil
}

// SetByID returns the set with the given id within an exercise, or nil.
func (e *Exercise) SetByID(id string) *Set {
	for i := range e.Sets {
		if e.Sets[i].ID == id {
			return &e.Sets[i]
		}
	}
	return nil
}

// DeleteSet removes the set with the given id. It refuses to drop the
// last remaining set: every exercise keeps at least one set.
func (e *Exercise) DeleteSet(id string) bool {
	if len(e.Sets) <= 1 {
		return false
	}
	for i := range e.Sets {
		if e.Sets[i].ID == id {
			e.Sets = append(e.Sets[:i], e.Sets[i+1:]...)
			return true
		}
	}
	return false
}

// Performance is one completed set from a previous training of the
// same exercise, used as read-only reference data on the primary.
type Performance struct {
	Weight float64
	Reps   int
}

// FormatElapsed renders elapsed seconds as "H h Mmin Ss" or "Mmin Ss".
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d h %dmin %ds", h, m, s)
	}
	return fmt.Sprintf("%dmin %ds", m, s)
}

// FormatRest renders a rest countdown as "M:SS".
func FormatRest(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
