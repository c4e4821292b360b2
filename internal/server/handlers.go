package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/claude/liveset/internal/session"
)

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.coord.Session()
	if !sess.Active() {
		writeJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	restRemaining, restRunning := s.coord.RestRemaining()
	resp := map[string]any{
		"active":            true,
		"sessionId":         sess.ID,
		"title":             sess.Title,
		"minimized":         s.coord.Minimized(),
		"exercises":         sess.Exercises,
		"completedSets":     s.coord.CompletedSetsCount(),
		"totalVolume":       s.coord.TotalVolume(),
		"elapsedSeconds":    s.coord.ElapsedSeconds(),
		"elapsedLabel":      s.coord.ElapsedLabel(),
		"hasRoutineChanges": s.coord.HasRoutineChanges(),
	}
	if restRunning {
		resp["restRemainingSeconds"] = restRemaining
		resp["restLabel"] = s.coord.RestLabel()
		resp["restExercise"] = s.coord.RestExerciseName()
	}
	if t := s.coord.Toast(); t != nil {
		resp["toast"] = map[string]string{"title": t.Title, "subtitle": t.Subtitle, "icon": t.Icon}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBegin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoutineID string `json:"routineId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.RoutineID == "" {
		s.coord.BeginEmpty()
		writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
		return
	}
	routine, err := s.db.Routine(r.Context(), req.RoutineID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.coord.BeginFromRoutine(routine)
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleMinimize(w http.ResponseWriter, r *http.Request) {
	s.coord.Minimize()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	s.coord.Restore()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UpdateRoutine bool `json:"updateRoutine"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
			return
		}
	}
	s.coord.Finish(req.UpdateRoutine)
	writeJSON(w, http.StatusOK, map[string]string{"status": "finished"})
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	s.coord.Discard()
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

func (s *Server) handleForceHeal(w http.ResponseWriter, r *http.Request) {
	s.coord.ForceHeal()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleToggleSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseIndex int `json:"exerciseIndex"`
		SetIndex      int `json:"setIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.coord.ToggleSetCompletion(req.ExerciseIndex, req.SetIndex)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseIndex int `json:"exerciseIndex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.coord.AddSet(req.ExerciseIndex)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseIndex int     `json:"exerciseIndex"`
		SetIndex      int     `json:"setIndex"`
		Weight        float64 `json:"weight"`
		Reps          int     `json:"reps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.coord.UpdateSet(req.ExerciseIndex, req.SetIndex, req.Weight, req.Reps)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	items, err := s.catalog.Search(r.Context(), req.Query)
	if err != nil {
		s.log.Error("catalog search failed", "query", req.Query, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	if len(items) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no catalog match for " + req.Query})
		return
	}
	s.coord.AddExercise(items[0])
	writeJSON(w, http.StatusOK, items[0])
}

func (s *Server) handleSetRestMinutes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseIndex int     `json:"exerciseIndex"`
		Minutes       float64 `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.coord.SetRestMinutes(req.Minutes, req.ExerciseIndex)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAddRest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.coord.AddRest(req.Seconds)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSkipRest(w http.ResponseWriter, r *http.Request) {
	s.coord.SkipRest()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	done := make(chan map[string]any, 1)
	s.coord.Probe(func(rtt time.Duration, err error) {
		if err != nil {
			done <- map[string]any{"ok": false, "error": err.Error()}
			return
		}
		done <- map[string]any{"ok": true, "rttMillis": rtt.Milliseconds()}
	})
	select {
	case resp := <-done:
		writeJSON(w, http.StatusOK, resp)
	case <-time.After(5 * time.Second):
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "probe timed out"})
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	records, err := s.db.TrainingHistory(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleSaveRoutine(w http.ResponseWriter, r *http.Request) {
	var routine session.Routine
	if err := json.NewDecoder(r.Body).Decode(&routine); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if routine.ID == "" || routine.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "routine id and title are required"})
		return
	}
	if err := s.db.SaveRoutine(r.Context(), routine); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleGetRoutine(w http.ResponseWriter, r *http.Request) {
	routine, err := s.db.Routine(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, routine)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
