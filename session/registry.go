// Package session keeps the per-game state of every game in progress.
//
// The Registry maps a game id to its session. Sessions are created by a
// start request, advanced by move requests and removed by an end request or
// by the idle sweep. Mutation is exclusive per game id; different games
// only ever share a shard lock for the length of a map lookup, so a slow
// game never blocks another one.
package session

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fennewald/battle-snakes/game"
)

var (
	// ErrUnknownSession is returned for a move or end without a live
	// session, including any message for a game that already ended.
	ErrUnknownSession = errors.New("unknown session")
	// ErrDuplicateStart is returned for a start for a game id that is live
	// or recently ended.
	ErrDuplicateStart = errors.New("duplicate start")
	// ErrStaleTurn is returned for a move that does not advance the turn.
	ErrStaleTurn = errors.New("stale turn")
)

// StaleTurnError carries the turns involved in a rejected move.
type StaleTurnError struct {
	GameID string
	Last   int
	Got    int
}

func (e *StaleTurnError) Error() string {
	return fmt.Sprintf("game %s: stale turn %d (last %d)", e.GameID, e.Got, e.Last)
}

func (e *StaleTurnError) Is(target error) bool { return target == ErrStaleTurn }

const shardCount = 32

// Registry is a concurrency-safe store of live game sessions.
// The zero value is not usable; use New.
type Registry struct {
	shards      [shardCount]shard
	now         func() time.Time
	keepHistory bool
}

type shard struct {
	mu   sync.RWMutex
	live map[string]*entry
	// ended holds tombstones of finished games so late messages cannot
	// resurrect them.
	ended map[string]time.Time
}

// entry is one live session. Fields below mu are guarded by it.
type entry struct {
	updated atomic.Int64 // unix nanos, readable without mu

	mu      sync.Mutex
	gone    bool
	game    game.Game
	turn    int
	moved   bool
	board   game.Board
	you     game.Snake
	started time.Time

	decided      bool
	decisionTurn int
	decision     game.Decision

	history []Frame
}

// Option configures a Registry.
type Option func(*Registry)

// WithHistory keeps every turn's board so the finished game can be archived.
func WithHistory() Option {
	return func(r *Registry) { r.keepHistory = true }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(opts ...Option) *Registry {
	r := &Registry{now: time.Now}
	for i := range r.shards {
		r.shards[i].live = make(map[string]*entry)
		r.shards[i].ended = make(map[string]time.Time)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) shard(gameID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(gameID))
	return &r.shards[h.Sum32()%shardCount]
}

func (r *Registry) lookup(gameID string) *entry {
	s := r.shard(gameID)
	s.mu.RLock()
	e := s.live[gameID]
	s.mu.RUnlock()
	return e
}

// Start creates the session for g. It fails with ErrDuplicateStart if the
// game is live or has already ended.
func (r *Registry) Start(g game.Game, turn int, board game.Board, you game.Snake) error {
	now := r.now()
	e := &entry{
		game:    g,
		turn:    turn,
		board:   board.Clone(),
		you:     you.Clone(),
		started: now,
	}
	e.updated.Store(now.UnixNano())
	if r.keepHistory {
		e.history = append(e.history, Frame{Turn: turn, Board: e.board})
	}

	s := r.shard(g.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[g.ID]; ok {
		return fmt.Errorf("game %s: %w", g.ID, ErrDuplicateStart)
	}
	if _, ok := s.ended[g.ID]; ok {
		return fmt.Errorf("game %s already ended: %w", g.ID, ErrDuplicateStart)
	}
	s.live[g.ID] = e
	return nil
}

// Update records the state of a new turn and returns a snapshot of it for
// the decision function. The first move may repeat the start turn (the
// engine sends turn 0 to both); after that each move must advance the turn
// or it is rejected with a *StaleTurnError and nothing changes.
func (r *Registry) Update(gameID string, turn int, board game.Board, you game.Snake) (game.Snapshot, error) {
	e := r.lookup(gameID)
	if e == nil {
		return game.Snapshot{}, fmt.Errorf("game %s: %w", gameID, ErrUnknownSession)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone {
		return game.Snapshot{}, fmt.Errorf("game %s: %w", gameID, ErrUnknownSession)
	}
	if turn < e.turn || (turn == e.turn && e.moved) {
		return game.Snapshot{}, &StaleTurnError{GameID: gameID, Last: e.turn, Got: turn}
	}

	e.turn = turn
	e.moved = true
	e.board = board.Clone()
	e.you = you.Clone()
	e.updated.Store(r.now().UnixNano())
	if r.keepHistory {
		e.history = append(e.history, Frame{Turn: turn, Board: e.board})
	}
	return game.NewSnapshot(e.game, e.turn, e.board, e.you), nil
}

// RecordDecision caches the answer given for turn so a duplicate move
// request can be re-answered. It is ignored if the session has moved on.
func (r *Registry) RecordDecision(gameID string, turn int, d game.Decision) {
	e := r.lookup(gameID)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone || e.turn != turn {
		return
	}
	e.decided = true
	e.decisionTurn = turn
	e.decision = d
	if n := len(e.history); n > 0 && e.history[n-1].Turn == turn {
		e.history[n-1].Decision = d
		e.history[n-1].Decided = true
	}
}

// LastDecision returns the most recently recorded decision and its turn.
func (r *Registry) LastDecision(gameID string) (turn int, d game.Decision, ok bool) {
	e := r.lookup(gameID)
	if e == nil {
		return 0, game.Decision{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone || !e.decided {
		return 0, game.Decision{}, false
	}
	return e.decisionTurn, e.decision, true
}

// Snapshot returns a copy of the session's latest state.
func (r *Registry) Snapshot(gameID string) (game.Snapshot, error) {
	e := r.lookup(gameID)
	if e == nil {
		return game.Snapshot{}, fmt.Errorf("game %s: %w", gameID, ErrUnknownSession)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone {
		return game.Snapshot{}, fmt.Errorf("game %s: %w", gameID, ErrUnknownSession)
	}
	return game.NewSnapshot(e.game, e.turn, e.board, e.you), nil
}

// End removes the session and returns its final record. The final board is
// applied only if it does not roll the session back.
func (r *Registry) End(gameID string, turn int, board game.Board) (Record, error) {
	now := r.now()
	s := r.shard(gameID)
	s.mu.Lock()
	e, ok := s.live[gameID]
	if ok {
		delete(s.live, gameID)
		s.ended[gameID] = now
	}
	s.mu.Unlock()
	if !ok {
		return Record{}, fmt.Errorf("game %s: %w", gameID, ErrUnknownSession)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if turn > e.turn || (turn == e.turn && !e.moved) {
		e.turn = turn
		e.board = board.Clone()
		if r.keepHistory {
			e.history = append(e.history, Frame{Turn: turn, Board: e.board})
		}
	}
	return e.finish(ReasonEnded, now), nil
}

// Sweep removes sessions that have not been updated for maxIdle, and
// tombstones older than maxIdle. It returns the reclaimed sessions.
func (r *Registry) Sweep(maxIdle time.Duration) []Record {
	now := r.now()
	cutoff := now.Add(-maxIdle)

	var reclaimed []*entry
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for id, e := range s.live {
			if time.Unix(0, e.updated.Load()).Before(cutoff) {
				delete(s.live, id)
				s.ended[id] = now
				reclaimed = append(reclaimed, e)
			}
		}
		for id, at := range s.ended {
			if at.Before(cutoff) {
				delete(s.ended, id)
			}
		}
		s.mu.Unlock()
	}

	out := make([]Record, 0, len(reclaimed))
	for _, e := range reclaimed {
		e.mu.Lock()
		out = append(out, e.finish(ReasonIdle, now))
		e.mu.Unlock()
	}
	return out
}

// finish marks e as removed and builds its record. Caller holds e.mu.
func (e *entry) finish(reason Reason, at time.Time) Record {
	e.gone = true
	rec := Record{
		Game:    e.game,
		Turn:    e.turn,
		Board:   e.board,
		You:     e.you,
		Started: e.started,
		Ended:   at,
		Reason:  reason,
		History: e.history,
	}
	e.history = nil
	return rec
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		n += len(s.live)
		s.mu.RUnlock()
	}
	return n
}

// List summarizes every live session.
func (r *Registry) List() []Summary {
	var entries []*entry
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for _, e := range s.live {
			entries = append(entries, e)
		}
		s.mu.RUnlock()
	}

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.gone {
			out = append(out, e.summary())
		}
		e.mu.Unlock()
	}
	return out
}
