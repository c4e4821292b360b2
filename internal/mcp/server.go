// Package mcp exposes the on-device training data and the live
// session over the Model Context Protocol.
package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/liveset/internal/session"
	"github.com/claude/liveset/internal/store"
)

// DataSource answers the history queries behind the MCP tools.
type DataSource interface {
	TrainingHistory(ctx context.Context, limit int) ([]store.TrainingRecord, error)
	ExerciseProgression(ctx context.Context, exerciseName string, limit int) ([]store.ProgressionPoint, error)
}

// SessionSource returns the live session, or an inactive one.
type SessionSource func() session.Session

// New creates an MCP server with all tools registered.
func New(ds DataSource, live SessionSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiveSet", version,
		server.WithToolCapabilities(false),
		server.WithInstructions("LiveSet workout session device. Query completed training history, per-exercise progression, and the currently active live session."),
	)

	h := &handlers{ds: ds, live: live, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetTrainingHistory, Handler: h.getTrainingHistory},
		server.ServerTool{Tool: toolGetExerciseProgression, Handler: h.getExerciseProgression},
		server.ServerTool{Tool: toolGetActiveSession, Handler: h.getActiveSession},
	)

	return s
}

// handlers holds dependencies for MCP tool handlers.
type handlers struct {
	ds   DataSource
	live SessionSource
	log  *slog.Logger
}

// --- Tool definitions ---

var toolGetTrainingHistory = mcp.NewTool("get_training_history",
	mcp.WithDescription("List recently completed trainings with elapsed time, completed set count, total volume, and the attached health summary."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of trainings to return. Defaults to 20.")),
)

var toolGetExerciseProgression = mcp.NewTool("get_exercise_progression",
	mcp.WithDescription("Per-training top weight, total reps, and volume for one exercise, oldest first."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exact exercise name (e.g. 'Bench Press')")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of trainings to include. Defaults to 50.")),
)

var toolGetActiveSession = mcp.NewTool("get_active_session",
	mcp.WithDescription("Return the live workout session, if one is active: title, exercises, sets, completion state, and derived metrics."),
)

// --- Handlers ---

func (h *handlers) getTrainingHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	records, err := h.ds.TrainingHistory(ctx, limit)
	if err != nil {
		h.log.Error("mcp get_training_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(records)
}

func (h *handlers) getExerciseProgression(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	limit := req.GetInt("limit", 50)
	points, err := h.ds.ExerciseProgression(ctx, exercise, limit)
	if err != nil {
		h.log.Error("mcp get_exercise_progression", "exercise", exercise, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(points)
}

func (h *handlers) getActiveSession(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.live == nil {
		return mcp.NewToolResultText(`{"active":false}`), nil
	}
	s := h.live()
	if !s.Active() {
		return mcp.NewToolResultText(`{"active":false}`), nil
	}
	return jsonResult(map[string]any{
		"active":        true,
		"sessionId":     s.ID,
		"title":         s.Title,
		"exercises":     s.Exercises,
		"completedSets": s.CompletedSets(),
		"totalVolume":   s.TotalVolume(),
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
