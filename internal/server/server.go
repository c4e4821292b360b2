package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claude/liveset/internal/catalog"
	"github.com/claude/liveset/internal/primary"
	"github.com/claude/liveset/internal/store"
)

// Server is the primary device's local control surface: the stand-in
// for the phone UI, driving the coordinator over HTTP, plus the /sync
// endpoint the secondary device connects to.
type Server struct {
	coord   *primary.Coordinator
	db      *store.DB
	catalog catalog.Source
	sync    http.Handler
	log     *slog.Logger
	router  chi.Router
}

// New creates a Server with all routes configured. sync is the
// websocket hub the secondary dials.
func New(coord *primary.Coordinator, db *store.DB, cat catalog.Source, sync http.Handler, log *slog.Logger) *Server {
	s := &Server{
		coord:   coord,
		db:      db,
		catalog: cat,
		sync:    sync,
		log:     log,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))

	// Peer link (no auth — the link is local/tailnet only)
	s.router.Get("/sync", s.sync.ServeHTTP)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/session", s.handleGetSession)
		r.Post("/session/begin", s.handleBegin)
		r.Post("/session/minimize", s.handleMinimize)
		r.Post("/session/restore", s.handleRestore)
		r.Post("/session/finish", s.handleFinish)
		r.Post("/session/discard", s.handleDiscard)
		r.Post("/session/heal", s.handleForceHeal)

		r.Post("/session/sets/toggle", s.handleToggleSet)
		r.Post("/session/sets", s.handleAddSet)
		r.Put("/session/sets", s.handleUpdateSet)
		r.Post("/session/exercises", s.handleAddExercise)
		r.Put("/session/exercises/rest", s.handleSetRestMinutes)

		r.Post("/session/rest/add", s.handleAddRest)
		r.Post("/session/rest/skip", s.handleSkipRest)

		r.Get("/probe", s.handleProbe)
		r.Get("/history", s.handleHistory)
		r.Post("/routines", s.handleSaveRoutine)
		r.Get("/routines/{id}", s.handleGetRoutine)
	})
}
