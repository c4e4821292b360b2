package session

// Routine is a stored workout template. Routine CRUD lives outside the
// sync core; the coordinator only reads a routine at session start and
// optionally writes the edited exercise list back at finish.
type Routine struct {
	ID        string
	Title     string
	Exercises []Exercise
}

// CloneExercises deep-copies an exercise list so the live session and
// the begin-time snapshot never share slice backing.
func CloneExercises(src []Exercise) []Exercise {
	if src == nil {
		return nil
	}
	out := make([]Exercise, len(src))
	for i, ex := range src {
		out[i] = ex
		out[i].Muscles = append([]string(nil), ex.Muscles...)
		out[i].Sets = append([]Set(nil), ex.Sets...)
	}
	return out
}

// ExercisesEqual reports structural equality of two exercise lists over
// the fields a routine edit can change: order, names, rest, and the
// set list (weight, reps). Completion flags and last-performance data
// are session-local and ignored.
func ExercisesEqual(a, b []Exercise) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Name != b[i].Name || a[i].RestMinutes != b[i].RestMinutes {
			return false
		}
		if len(a[i].Sets) != len(b[i].Sets) {
			return false
		}
		for j := range a[i].Sets {
			x, y := a[i].Sets[j], b[i].Sets[j]
			if x.ID != y.ID || x.Weight != y.Weight || x.Reps != y.Reps {
				return false
			}
		}
	}
	return true
}
