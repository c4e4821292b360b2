package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/liveset/internal/session"
	"github.com/claude/liveset/internal/store"
)

type fakeData struct {
	history []store.TrainingRecord
	err     error
}

func (f *fakeData) TrainingHistory(ctx context.Context, limit int) ([]store.TrainingRecord, error) {
	return f.history, f.err
}

func (f *fakeData) ExerciseProgression(ctx context.Context, exerciseName string, limit int) ([]store.ProgressionPoint, error) {
	return nil, f.err
}

func callReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

// TestGetTrainingHistory verifies the tool returns the records as JSON.
func TestGetTrainingHistory(t *testing.T) {
	h := &handlers{
		ds:  &fakeData{history: []store.TrainingRecord{{ID: "t1", Title: "Push Day"}}},
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	res, err := h.getTrainingHistory(context.Background(), callReq(map[string]any{"limit": 5}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if text := resultText(t, res); !strings.Contains(text, "Push Day") {
		t.Errorf("result = %s", text)
	}
}

// TestGetTrainingHistoryQueryError verifies query failures become tool
// errors, not transport errors.
func TestGetTrainingHistoryQueryError(t *testing.T) {
	h := &handlers{
		ds:  &fakeData{err: errors.New("disk gone")},
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	res, err := h.getTrainingHistory(context.Background(), callReq(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("query failure not reported as tool error")
	}
}

// TestGetExerciseProgressionRequiresName verifies the required
// parameter check.
func TestGetExerciseProgressionRequiresName(t *testing.T) {
	h := &handlers{
		ds:  &fakeData{},
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	res, err := h.getExerciseProgression(context.Background(), callReq(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("missing exercise parameter accepted")
	}
}

// TestGetActiveSession verifies the inactive and active shapes.
func TestGetActiveSession(t *testing.T) {
	h := &handlers{
		live: func() session.Session { return session.Session{} },
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	res, err := h.getActiveSession(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if text := resultText(t, res); !strings.Contains(text, `"active":false`) {
		t.Errorf("inactive result = %s", text)
	}

	h.live = func() session.Session {
		return session.Session{ID: "s1", Title: "Push Day", Exercises: []session.Exercise{
			{ID: "e1", Name: "Bench Press", Sets: []session.Set{{ID: "a", Weight: 80, Reps: 8, Completed: true}}},
		}}
	}
	res, err = h.getActiveSession(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Push Day") || !strings.Contains(text, `"completedSets":1`) {
		t.Errorf("active result = %s", text)
	}
}
