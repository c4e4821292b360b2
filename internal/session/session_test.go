package session

import "testing"

func twoExerciseSession() Session {
	return Session{
		ID:    "s1",
		Title: "Push Day",
		Exercises: []Exercise{
			{
				ID: "e1", Name: "Bench Press", RestMinutes: 1.5,
				Sets: []Set{
					{ID: "a", Weight: 80, Reps: 8, Completed: true},
					{ID: "b", Weight: 80, Reps: 8},
				},
			},
			{
				ID: "e2", Name: "Overhead Press", RestMinutes: 2,
				Sets: []Set{
					{ID: "c", Weight: 40, Reps: 10, Completed: true},
				},
			},
		},
	}
}

// TestActive verifies that a session is active exactly when it has an id.
func TestActive(t *testing.T) {
	var none Session
	if none.Active() {
		t.Error("zero session reports active")
	}
	s := twoExerciseSession()
	if !s.Active() {
		t.Error("session with id reports inactive")
	}
}

// TestCompletedSetsAndVolume verifies that only completed sets count
// toward the set counter and the volume sum.
func TestCompletedSetsAndVolume(t *testing.T) {
	s := twoExerciseSession()
	if got := s.CompletedSets(); got != 2 {
		t.Errorf("CompletedSets = %d, want 2", got)
	}
	// 80*8 + 40*10; the incomplete set contributes nothing.
	if got := s.TotalVolume(); got != 1040 {
		t.Errorf("TotalVolume = %v, want 1040", got)
	}
}

// TestRestSeconds verifies fractional minutes round to the nearest second.
func TestRestSeconds(t *testing.T) {
	cases := []struct {
		minutes float64
		want    int
	}{
		{0, 0},
		{1, 60},
		{1.5, 90},
		{0.75, 45},
	}
	for _, c := range cases {
		e := Exercise{RestMinutes: c.minutes}
		if got := e.RestSeconds(); got != c.want {
			t.Errorf("RestSeconds(%v) = %d, want %d", c.minutes, got, c.want)
		}
	}
}

// TestLookupByID verifies id-addressed lookup of exercises and sets.
func TestLookupByID(t *testing.T) {
	s := twoExerciseSession()
	ex := s.ExerciseByID("e2")
	if ex == nil || ex.Name != "Overhead Press" {
		t.Fatalf("ExerciseByID(e2) = %v", ex)
	}
	if s.ExerciseByID("nope") != nil {
		t.Error("lookup of unknown exercise id returned non-nil")
	}
	set := s.Exercises[0].SetByID("b")
	if set == nil || set.Completed {
		t.Fatalf("SetByID(b) = %v", set)
	}
	if s.Exercises[0].SetByID("zzz") != nil {
		t.Error("lookup of unknown set id returned non-nil")
	}
}

// TestDeleteSetKeepsLast verifies that deletion removes the addressed
// set but refuses to empty an exercise.
func TestDeleteSetKeepsLast(t *testing.T) {
	s := twoExerciseSession()
	ex := &s.Exercises[0]
	if !ex.DeleteSet("a") {
		t.Fatal("DeleteSet(a) refused")
	}
	if len(ex.Sets) != 1 || ex.Sets[0].ID != "b" {
		t.Fatalf("sets after delete = %v", ex.Sets)
	}
	if ex.DeleteSet("b") {
		t.Error("DeleteSet removed the last remaining set")
	}
	if len(ex.Sets) != 1 {
		t.Errorf("len(Sets) = %d, want 1", len(ex.Sets))
	}
}

// TestFormatElapsed verifies the elapsed label for sub-hour and
// multi-hour durations.
func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "0min 0s"},
		{59, "0min 59s"},
		{61, "1min 1s"},
		{3600, "1 h 0min 0s"},
		{3725, "1 h 2min 5s"},
		{-5, "0min 0s"},
	}
	for _, c := range cases {
		if got := FormatElapsed(c.seconds); got != c.want {
			t.Errorf("FormatElapsed(%d) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

// TestFormatRest verifies the countdown label zero-pads seconds.
func TestFormatRest(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{90, "1:30"},
		{9, "0:09"},
		{0, "0:00"},
		{-1, "0:00"},
		{600, "10:00"},
	}
	for _, c := range cases {
		if got := FormatRest(c.seconds); got != c.want {
			t.Errorf("FormatRest(%d) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

// TestFinishToast verifies the two toast variants.
func TestFinishToast(t *testing.T) {
	plain := FinishToast("Push Day", false)
	if plain.Title != "Workout complete" {
		t.Errorf("title = %q, want %q", plain.Title, "Workout complete")
	}
	updated := FinishToast("Push Day", true)
	if updated.Title != "Routine updated" {
		t.Errorf("title = %q, want %q", updated.Title, "Routine updated")
	}
}

// TestCloneExercisesIsDeep verifies that mutating a clone leaves the
// original untouched.
func TestCloneExercisesIsDeep(t *testing.T) {
	s := twoExerciseSession()
	clone := CloneExercises(s.Exercises)
	clone[0].Sets[0].Weight = 999
	clone[0].Muscles = append(clone[0].Muscles, "chest")
	if s.Exercises[0].Sets[0].Weight != 80 {
		t.Error("clone shares set storage with original")
	}
}

// TestExercisesEqual verifies the structural comparison used to decide
// whether a finished session differs from its source routine.
func TestExercisesEqual(t *testing.T) {
	a := twoExerciseSession().Exercises
	b := twoExerciseSession().Exercises
	if !ExercisesEqual(a, b) {
		t.Fatal("identical lists compare unequal")
	}

	// Completion state is transient and must not count as a change.
	b[0].Sets[1].Completed = true
	if !ExercisesEqual(a, b) {
		t.Error("completion flag counted as a structural change")
	}

	b = twoExerciseSession().Exercises
	b[0].Sets[0].Weight = 85
	if ExercisesEqual(a, b) {
		t.Error("weight change not detected")
	}

	b = twoExerciseSession().Exercises
	b[1].RestMinutes = 3
	if ExercisesEqual(a, b) {
		t.Error("rest change not detected")
	}

	if ExercisesEqual(a, a[:1]) {
		t.Error("length change not detected")
	}
}
