package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/claude/liveset/internal/session"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "liveset.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func benchRoutine() session.Routine {
	return session.Routine{
		ID:    "r1",
		Title: "Push Day",
		Exercises: []session.Exercise{
			{
				ID: "e1", Name: "Bench Press", RestMinutes: 1.5,
				Sets: []session.Set{
					{ID: "a", Weight: 80, Reps: 8},
					{ID: "b", Weight: 80, Reps: 8},
				},
			},
		},
	}
}

// TestSaveAndLoadRoutine verifies the upsert round-trip including the
// serialized exercise list.
func TestSaveAndLoadRoutine(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	if err := db.SaveRoutine(ctx, benchRoutine()); err != nil {
		t.Fatal(err)
	}
	got, err := db.Routine(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Push Day" || len(got.Exercises) != 1 {
		t.Fatalf("routine = %+v", got)
	}
	if got.Exercises[0].RestMinutes != 1.5 || len(got.Exercises[0].Sets) != 2 {
		t.Errorf("exercise = %+v", got.Exercises[0])
	}

	// Saving again with the same id overwrites.
	r := benchRoutine()
	r.Title = "Push Day v2"
	r.Exercises[0].Sets = r.Exercises[0].Sets[:1]
	if err := db.SaveRoutine(ctx, r); err != nil {
		t.Fatal(err)
	}
	got, err = db.Routine(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Push Day v2" || len(got.Exercises[0].Sets) != 1 {
		t.Errorf("routine after upsert = %+v", got)
	}

	if _, err := db.Routine(ctx, "missing"); err == nil {
		t.Error("loading an unknown routine succeeded")
	}
}

// TestRecordAndHistory verifies the training record transaction and the
// history query ordering.
func TestRecordAndHistory(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	exercises := []session.Exercise{
		{ID: "e1", Name: "Bench Press", Sets: []session.Set{
			{ID: "a", Weight: 80, Reps: 8, Completed: true},
			{ID: "b", Weight: 80, Reps: 7, Completed: true},
		}},
	}
	m := session.Metrics{ElapsedSeconds: 1800, CompletedSets: 2, TotalVolume: 1200, AvgHeartRate: 130}
	if err := db.RecordCompletedTraining(ctx, "Push Day", exercises, m); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordCompletedTraining(ctx, "Leg Day", nil, session.Metrics{}); err != nil {
		t.Fatal(err)
	}

	history, err := db.TrainingHistory(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %d records, want 2", len(history))
	}
	// Most recent first.
	if history[0].Title != "Leg Day" {
		t.Errorf("history[0] = %q, want Leg Day", history[0].Title)
	}
	if history[1].CompletedSets != 2 || history[1].TotalVolume != 1200 || history[1].AvgHeartRate != 130 {
		t.Errorf("recorded metrics = %+v", history[1])
	}
}

// TestLastPerformance verifies only the most recent training's
// completed sets are returned, in set order.
func TestLastPerformance(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	older := []session.Exercise{
		{ID: "e1", Name: "Bench Press", Sets: []session.Set{
			{ID: "a", Weight: 75, Reps: 8, Completed: true},
		}},
	}
	newer := []session.Exercise{
		{ID: "e1", Name: "Bench Press", Sets: []session.Set{
			{ID: "a", Weight: 80, Reps: 8, Completed: true},
			{ID: "b", Weight: 80, Reps: 6, Completed: true},
			{ID: "c", Weight: 80, Reps: 5}, // incomplete: excluded
		}},
	}
	if err := db.RecordCompletedTraining(ctx, "Push Day", older, session.Metrics{}); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordCompletedTraining(ctx, "Push Day", newer, session.Metrics{}); err != nil {
		t.Fatal(err)
	}

	perf, err := db.LastPerformance(ctx, "Bench Press")
	if err != nil {
		t.Fatal(err)
	}
	if len(perf) != 2 {
		t.Fatalf("performance sets = %d, want 2", len(perf))
	}
	if perf[0].Weight != 80 || perf[0].Reps != 8 || perf[1].Reps != 6 {
		t.Errorf("performance = %+v", perf)
	}

	none, err := db.LastPerformance(ctx, "Deadlift")
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("unknown exercise returned %d sets", len(none))
	}
}

// TestExerciseProgression verifies the per-training aggregation, oldest
// first.
func TestExerciseProgression(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	first := []session.Exercise{
		{ID: "e1", Name: "Squat", Sets: []session.Set{
			{ID: "a", Weight: 100, Reps: 5, Completed: true},
			{ID: "b", Weight: 110, Reps: 3, Completed: true},
		}},
	}
	second := []session.Exercise{
		{ID: "e1", Name: "Squat", Sets: []session.Set{
			{ID: "a", Weight: 115, Reps: 5, Completed: true},
		}},
	}
	if err := db.RecordCompletedTraining(ctx, "Leg Day", first, session.Metrics{}); err != nil {
		t.Fatal(err)
	}
	if err := db.RecordCompletedTraining(ctx, "Leg Day", second, session.Metrics{}); err != nil {
		t.Fatal(err)
	}

	points, err := db.ExerciseProgression(ctx, "Squat", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("progression points = %d, want 2", len(points))
	}
	if points[0].TopWeight != 110 || points[0].TotalReps != 8 || points[0].TotalVolume != 830 {
		t.Errorf("first point = %+v", points[0])
	}
	if points[1].TopWeight != 115 {
		t.Errorf("second point = %+v", points[1])
	}
}
