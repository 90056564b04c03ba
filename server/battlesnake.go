package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fennewald/battle-snakes/api"
	"github.com/fennewald/battle-snakes/decide"
	"github.com/fennewald/battle-snakes/feed"
	"github.com/fennewald/battle-snakes/game"
	"github.com/fennewald/battle-snakes/logging"
	"github.com/fennewald/battle-snakes/rules"
	"github.com/fennewald/battle-snakes/session"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.NewInfo(s.opts.Appearance))
}

// decode reads a lifecycle request, answering 400 itself when it is
// malformed. ok is false if the handler should stop.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, kind api.Kind) (*api.Request, *slog.Logger, bool) {
	log := logging.FromContext(r.Context())
	req, err := api.Decode(kind, http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Warn("rejected request", "kind", kind.String(), "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, log, false
	}
	return req, log.With("game_id", req.Game.ID, "turn", req.Turn), true
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	req, log, ok := s.decode(w, r, api.KindStart)
	if !ok {
		return
	}
	if req.Turn != 0 {
		log.Warn("start with non-zero turn")
	}

	if err := s.opts.Registry.Start(req.Game, req.Turn, req.Board, req.You); err != nil {
		log.Warn("start refused", "err", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	log.Info("game started",
		"ruleset", req.Game.Ruleset.Name,
		"map", req.Game.Map,
		"source", req.Game.Source,
		"timeout", req.Game.Timeout,
		"snakes", len(req.Board.Snakes),
		"you", req.You.Name,
	)
	s.publish(feed.NewEvent(feed.EventStart, req.Game.ID, req.Turn, &req.Board, req.You.ID))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	req, log, ok := s.decode(w, r, api.KindMove)
	if !ok {
		return
	}

	snap, err := s.opts.Registry.Update(req.Game.ID, req.Turn, req.Board, req.You)
	var stale *session.StaleTurnError
	switch {
	case err == nil:
	case errors.As(err, &stale):
		// Re-answer a repeated turn with what we said the first time;
		// anything older gets a fallback off its own board.
		if turn, d, ok := s.opts.Registry.LastDecision(req.Game.ID); ok && turn == req.Turn {
			log.Info("repeated turn, re-answering", "last", stale.Last, "move", d.Move.String())
			s.writeMove(w, log, d)
			return
		}
		log.Warn("stale turn", "last", stale.Last)
		s.writeFallback(w, log, req)
		return
	case errors.Is(err, session.ErrUnknownSession):
		log.Warn("move for unknown session", "err", err)
		s.writeFallback(w, log, req)
		return
	default:
		log.Error("update failed", "err", err)
		s.writeFallback(w, log, req)
		return
	}

	budget := s.opts.Budget.For(snap.Game.Timeout)
	res := decide.Run(r.Context(), s.opts.Decider, snap, budget)
	if res.Degraded {
		log.Warn("decision degraded", "err", res.Err, "budget", budget, "elapsed", res.Elapsed, "move", res.Decision.Move.String())
	} else {
		log.Debug("decided", "move", res.Decision.Move.String(), "budget", budget, "elapsed", res.Elapsed)
	}
	s.opts.Registry.RecordDecision(req.Game.ID, req.Turn, res.Decision)

	s.writeMove(w, log, res.Decision)

	ev := feed.NewEvent(feed.EventFrame, req.Game.ID, req.Turn, &req.Board, req.You.ID)
	ev.Move = res.Decision.Move.String()
	ev.Degraded = res.Degraded
	s.publish(ev)
}

func (s *Server) writeFallback(w http.ResponseWriter, log *slog.Logger, req *api.Request) {
	snap := game.NewSnapshot(req.Game, req.Turn, req.Board, req.You)
	s.writeMove(w, log, game.Decision{Move: decide.Fallback(&snap)})
}

func (s *Server) writeMove(w http.ResponseWriter, log *slog.Logger, d game.Decision) {
	resp, truncated, err := api.NewMove(d.Move, d.Shout, s.opts.ShoutPolicy)
	if errors.Is(err, api.ErrShoutTooLong) {
		log.Warn("shout rejected", "err", err)
		resp, _, err = api.NewMove(d.Move, "", s.opts.ShoutPolicy)
	}
	if err != nil {
		log.Error("bad decision", "err", err)
		resp = api.MoveResponse{Move: game.MoveUp.String()}
	}
	if truncated {
		log.Info("shout truncated", "limit", game.MaxShoutLength)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	req, log, ok := s.decode(w, r, api.KindEnd)
	if !ok {
		return
	}

	rec, err := s.opts.Registry.End(req.Game.ID, req.Turn, req.Board)
	if err != nil {
		log.Warn("end refused", "err", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	outcome := rules.Result(&req.Board, req.You.ID)
	log.Info("game ended",
		"result", outcome,
		"turns", rec.Turn,
		"frames", len(rec.History),
		"duration", rec.Ended.Sub(rec.Started),
	)
	if s.opts.Archive != nil {
		s.opts.Archive(rec)
	}

	ev := feed.NewEvent(feed.EventEnd, req.Game.ID, req.Turn, &req.Board, req.You.ID)
	ev.Outcome = string(outcome)
	s.publish(ev)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) publish(ev feed.Event) {
	if s.opts.Feed != nil {
		s.opts.Feed.Publish(ev)
	}
}
