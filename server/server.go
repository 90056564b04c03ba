// Package server is the HTTP surface: the four Battlesnake endpoints plus
// status, archive and spectator routes.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/fennewald/battle-snakes/api"
	"github.com/fennewald/battle-snakes/decide"
	"github.com/fennewald/battle-snakes/feed"
	"github.com/fennewald/battle-snakes/history"
	"github.com/fennewald/battle-snakes/logging"
	"github.com/fennewald/battle-snakes/session"
)

// maxBodyBytes bounds a request body. A full 25x25 board with many snakes
// is well under this.
const maxBodyBytes = 1 << 20

type Options struct {
	Registry    *session.Registry
	Decider     decide.Decider
	Budget      decide.Budget
	Appearance  api.Appearance
	ShoutPolicy api.ShoutPolicy

	// Archive receives every session ended by the engine. Nil disables.
	Archive func(session.Record)
	// History serves /games. Nil answers 503.
	History *history.DB
	// Feed serves /ws and receives lifecycle events. Nil disables.
	Feed *feed.Hub

	Logger *slog.Logger
}

type Server struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Decider == nil {
		opts.Decider = decide.Forager{}
	}
	if opts.Budget == (decide.Budget{}) {
		opts.Budget = decide.DefaultBudget
	}
	if opts.Registry == nil {
		opts.Registry = session.New()
	}
	return &Server{opts: opts, logger: opts.Logger}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Post("/start", s.handleStart)
	r.Post("/move", s.handleMove)
	r.Post("/end", s.handleEnd)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/sessions", s.handleSessions)
	r.Get("/games", s.handleGames)
	r.Get("/games/{id}", s.handleGameTurns)
	r.Get("/ws", s.handleFeed)
	return r
}

// requestLogger attaches a logger carrying a request id to the context and
// logs each request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		log := s.logger.With("request_id", id)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), log)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = api.Encode(w, v)
}
