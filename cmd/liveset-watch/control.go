package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claude/liveset/internal/mirror"
)

// newControlRouter exposes the mirror's affordances over a local HTTP
// surface so scripted runs can drive the watch process without a UI.
func newControlRouter(m *mirror.Mirror) http.Handler {
	r := chi.NewRouter()

	r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"sessionId": m.SessionID(),
			"title":     m.Title(),
			"exercises": m.Exercises(),
		}
		exIdx, setIdx := m.Indices()
		resp["exerciseIndex"] = exIdx
		resp["setIndex"] = setIdx
		if remaining, running := m.RestRemaining(); running {
			resp["restRemainingSeconds"] = remaining
			resp["restLabel"] = m.RestLabel()
			resp["restExercise"] = m.RestExerciseName()
		}
		if msg := m.LastError(); msg != "" {
			resp["lastError"] = msg
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Post("/toggle", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ExerciseID string `json:"exerciseId"`
			SetID      string `json:"setId"`
		}
		if !decodeBody(w, req, &body) {
			return
		}
		completed, ok := m.ToggleSet(body.ExerciseID, body.SetID)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "set not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"completed": completed})
	})

	r.Post("/update", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ExerciseID string  `json:"exerciseId"`
			SetID      string  `json:"setId"`
			Weight     float64 `json:"weight"`
			Reps       int     `json:"reps"`
		}
		if !decodeBody(w, req, &body) {
			return
		}
		m.UpdateSet(body.ExerciseID, body.SetID, body.Weight, body.Reps)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/sets", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ExerciseID string `json:"exerciseId"`
		}
		if !decodeBody(w, req, &body) {
			return
		}
		setID, ok := m.AddSet(body.ExerciseID)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "exercise not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"setId": setID})
	})

	r.Post("/sets/delete", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ExerciseID string `json:"exerciseId"`
			SetID      string `json:"setId"`
		}
		if !decodeBody(w, req, &body) {
			return
		}
		if !m.DeleteSet(body.ExerciseID, body.SetID) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "set not deleted"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/rest/skip", func(w http.ResponseWriter, _ *http.Request) {
		m.SkipRest()
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/rest/extend", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Seconds int `json:"seconds"`
		}
		if !decodeBody(w, req, &body) {
			return
		}
		m.ExtendRest(body.Seconds)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/select", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Exercise *int `json:"exercise"`
			Set      *int `json:"set"`
		}
		if !decodeBody(w, req, &body) {
			return
		}
		if body.Exercise != nil {
			m.SelectExercise(*body.Exercise)
		}
		if body.Set != nil {
			m.SelectSet(*body.Set)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/finish", func(w http.ResponseWriter, _ *http.Request) {
		m.RequestFinish()
		writeJSON(w, http.StatusOK, map[string]string{"status": "requested"})
	})

	r.Post("/discard", func(w http.ResponseWriter, _ *http.Request) {
		m.RequestDiscard()
		writeJSON(w, http.StatusOK, map[string]string{"status": "requested"})
	})

	return r
}

func decodeBody(w http.ResponseWriter, req *http.Request, v any) bool {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
