// Package store persists routines and completed training records in
// an on-device SQLite database. The sync core treats it as a
// best-effort collaborator: a failed save never blocks session
// teardown.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/claude/liveset/internal/session"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the SQLite handle and provides repository methods.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies pending
// migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// SaveRoutine inserts or replaces a routine with its exercise list.
func (d *DB) SaveRoutine(ctx context.Context, r session.Routine) error {
	exercises, err := json.Marshal(r.Exercises)
	if err != nil {
		return fmt.Errorf("encoding routine exercises: %w", err)
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO routines (id, title, exercises_json, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   exercises_json = excluded.exercises_json,
		   updated_at = excluded.updated_at`,
		r.ID, r.Title, string(exercises), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving routine: %w", err)
	}
	return nil
}

// Routine loads a routine by id.
func (d *DB) Routine(ctx context.Context, id string) (session.Routine, error) {
	var r session.Routine
	var exercises string
	err := d.db.QueryRowContext(ctx,
		`SELECT id, title, exercises_json FROM routines WHERE id = ?`, id).
		Scan(&r.ID, &r.Title, &exercises)
	if err != nil {
		return session.Routine{}, fmt.Errorf("loading routine %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(exercises), &r.Exercises); err != nil {
		return session.Routine{}, fmt.Errorf("decoding routine exercises: %w", err)
	}
	return r, nil
}

// TrainingRecord is one completed session as stored.
type TrainingRecord struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	FinishedAt     time.Time `json:"finishedAt"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	CompletedSets  int       `json:"completedSets"`
	TotalVolume    float64   `json:"totalVolume"`
	AvgHeartRate   float64   `json:"avgHeartRate,omitempty"`
	MaxHeartRate   float64   `json:"maxHeartRate,omitempty"`
	ActiveCalories float64   `json:"activeCalories,omitempty"`
}

// RecordCompletedTraining persists a finished session: one training
// row plus one row per set, in a single transaction.
func (d *DB) RecordCompletedTraining(ctx context.Context, title string, exercises []session.Exercise, m session.Metrics) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning training record: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New().String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO trainings (id, title, finished_at, elapsed_seconds, completed_sets,
		   total_volume, avg_heart_rate, max_heart_rate, active_calories)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, title, time.Now().UTC(), m.ElapsedSeconds, m.CompletedSets,
		m.TotalVolume, m.AvgHeartRate, m.MaxHeartRate, m.ActiveCalories)
	if err != nil {
		return fmt.Errorf("inserting training: %w", err)
	}

	for exNum, ex := range exercises {
		for setNum, set := range ex.Sets {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO training_sets (training_id, exercise_number, exercise_name,
				   set_number, weight, reps, is_completed)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id, exNum+1, ex.Name, setNum+1, set.Weight, set.Reps, set.Completed)
			if err != nil {
				return fmt.Errorf("inserting training set: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing training record: %w", err)
	}
	return nil
}

// LastPerformance returns the completed sets of the most recent
// training containing an exercise name, in set order. Used to prefill
// LastWeight/LastReps at session start.
func (d *DB) LastPerformance(ctx context.Context, exerciseName string) ([]session.Performance, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT s.weight, s.reps
		 FROM training_sets s
		 JOIN trainings t ON t.id = s.training_id
		 WHERE s.exercise_name = ? AND s.is_completed = 1
		   AND s.training_id = (
		     SELECT s2.training_id FROM training_sets s2
		     JOIN trainings t2 ON t2.id = s2.training_id
		     WHERE s2.exercise_name = ? AND s2.is_completed = 1
		     ORDER BY t2.finished_at DESC LIMIT 1)
		 ORDER BY s.set_number ASC`,
		exerciseName, exerciseName)
	if err != nil {
		return nil, fmt.Errorf("querying last performance: %w", err)
	}
	defer rows.Close()

	var result []session.Performance
	for rows.Next() {
		var p session.Performance
		if err := rows.Scan(&p.Weight, &p.Reps); err != nil {
			return nil, fmt.Errorf("scanning performance: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// TrainingHistory returns the most recent completed trainings.
func (d *DB) TrainingHistory(ctx context.Context, limit int) ([]TrainingRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, title, finished_at, elapsed_seconds, completed_sets,
		   total_volume, avg_heart_rate, max_heart_rate, active_calories
		 FROM trainings ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying training history: %w", err)
	}
	defer rows.Close()

	var result []TrainingRecord
	for rows.Next() {
		var r TrainingRecord
		if err := rows.Scan(&r.ID, &r.Title, &r.FinishedAt, &r.ElapsedSeconds,
			&r.CompletedSets, &r.TotalVolume, &r.AvgHeartRate, &r.MaxHeartRate,
			&r.ActiveCalories); err != nil {
			return nil, fmt.Errorf("scanning training: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ProgressionPoint is one training's volume for an exercise.
type ProgressionPoint struct {
	FinishedAt  time.Time `json:"finishedAt"`
	TopWeight   float64   `json:"topWeight"`
	TotalReps   int       `json:"totalReps"`
	TotalVolume float64   `json:"totalVolume"`
}

// ExerciseProgression returns per-training volume for one exercise
// name, oldest first.
func (d *DB) ExerciseProgression(ctx context.Context, exerciseName string, limit int) ([]ProgressionPoint, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT t.finished_at, MAX(s.weight), SUM(s.reps), SUM(s.weight * s.reps)
		 FROM training_sets s
		 JOIN trainings t ON t.id = s.training_id
		 WHERE s.exercise_name = ? AND s.is_completed = 1
		 GROUP BY s.training_id
		 ORDER BY t.finished_at ASC LIMIT ?`, exerciseName, limit)
	if err != nil {
		return nil, fmt.Errorf("querying progression: %w", err)
	}
	defer rows.Close()

	var result []ProgressionPoint
	for rows.Next() {
		var p ProgressionPoint
		if err := rows.Scan(&p.FinishedAt, &p.TopWeight, &p.TotalReps, &p.TotalVolume); err != nil {
			return nil, fmt.Errorf("scanning progression: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
