package session

import (
	"time"

	"github.com/fennewald/battle-snakes/game"
)

// Reason says why a session left the registry.
type Reason string

const (
	ReasonEnded Reason = "end"
	ReasonIdle  Reason = "idle"
)

// Frame is one recorded turn of a game.
type Frame struct {
	Turn     int
	Board    game.Board
	Decision game.Decision
	// Decided is false for turns nobody answered (start, end, timeouts
	// that never reached RecordDecision).
	Decided bool
}

// Record is a session removed from the registry. It is owned by the caller.
type Record struct {
	Game    game.Game
	Turn    int
	Board   game.Board
	You     game.Snake
	Started time.Time
	Ended   time.Time
	Reason  Reason
	// History is empty unless the registry was built WithHistory.
	History []Frame
}

// Summary describes a live session for status pages.
type Summary struct {
	GameID   string    `json:"game_id"`
	Ruleset  string    `json:"ruleset"`
	Map      string    `json:"map"`
	Source   string    `json:"source"`
	Turn     int       `json:"turn"`
	YouID    string    `json:"you_id"`
	Health   int       `json:"health"`
	Length   int       `json:"length"`
	Snakes   int       `json:"snakes"`
	LastMove string    `json:"last_move,omitempty"`
	Started  time.Time `json:"started"`
	Updated  time.Time `json:"updated"`
}

// summary is called with e.mu held.
func (e *entry) summary() Summary {
	s := Summary{
		GameID:  e.game.ID,
		Ruleset: e.game.Ruleset.Name,
		Map:     e.game.Map,
		Source:  string(e.game.Source),
		Turn:    e.turn,
		YouID:   e.you.ID,
		Health:  e.you.Health,
		Length:  e.you.Length,
		Snakes:  len(e.board.Snakes),
		Started: e.started,
		Updated: time.Unix(0, e.updated.Load()),
	}
	if e.decided {
		s.LastMove = e.decision.Move.String()
	}
	return s
}
