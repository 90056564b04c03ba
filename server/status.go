package server

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fennewald/battle-snakes/history"
	"github.com/fennewald/battle-snakes/logging"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.opts.Registry.Len(),
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	list := s.opts.Registry.List()
	sort.Slice(list, func(i, j int) bool { return list[i].GameID < list[j].GameID })
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		http.Error(w, "archive disabled", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	page, err := s.opts.History.Games(r.Context(),
		min(parseIntQuery(r, "limit", 50), history.MaxPageSize),
		parseIntQuery(r, "offset", 0),
		q.Get("sort"),
		q.Get("dir"),
	)
	if err != nil {
		logging.FromContext(r.Context()).Error("games query failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGameTurns(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		http.Error(w, "archive disabled", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")
	turns, err := s.opts.History.Turns(r.Context(), id)
	if err != nil {
		logging.FromContext(r.Context()).Error("turns query failed", "game_id", id, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(turns) == 0 {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if s.opts.Feed == nil {
		http.Error(w, "feed disabled", http.StatusServiceUnavailable)
		return
	}
	s.opts.Feed.ServeHTTP(w, r)
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
