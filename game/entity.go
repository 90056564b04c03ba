package game

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// ErrMalformedState is returned when decoded state breaks a board or snake
// invariant. Malformed state is rejected, never repaired.
var ErrMalformedState = errors.New("malformed state")

// MaxShoutLength is the longest shout the engine accepts, in characters.
const MaxShoutLength = 256

// Snake is one Battlesnake as seen on a single turn.
type Snake struct {
	ID     string
	Name   string
	Health int
	// Body is ordered head to tail and always has at least one point.
	Body []Point
	Head Point
	// Length always equals len(Body).
	Length int
	// Latency is the previous response time. TimedOut is set when the
	// engine reported "0", meaning the previous turn was not answered.
	Latency       time.Duration
	TimedOut      bool
	Shout         string
	Squad         string
	Customization Customization
}

// Validate checks the snake invariants against a width x height board.
func (s *Snake) Validate(width, height int) error {
	if err := s.ValidateShape(); err != nil {
		return err
	}
	for i, p := range s.Body {
		if !IsWithin(p, width, height) {
			return fmt.Errorf("%w: snake %q body[%d] %v outside %dx%d", ErrMalformedState, s.ID, i, p, width, height)
		}
	}
	return nil
}

// ValidateShape checks the invariants that hold wherever the snake is. An
// eliminated snake may have left the board, so its points are not checked.
func (s *Snake) ValidateShape() error {
	if len(s.Body) == 0 {
		return fmt.Errorf("%w: snake %q has an empty body", ErrMalformedState, s.ID)
	}
	if s.Length != len(s.Body) {
		return fmt.Errorf("%w: snake %q length %d != body length %d", ErrMalformedState, s.ID, s.Length, len(s.Body))
	}
	if s.Head != s.Body[0] {
		return fmt.Errorf("%w: snake %q head %v != body[0] %v", ErrMalformedState, s.ID, s.Head, s.Body[0])
	}
	if s.Health < 0 || s.Health > 100 {
		return fmt.Errorf("%w: snake %q health %d outside [0,100]", ErrMalformedState, s.ID, s.Health)
	}
	if utf8.RuneCountInString(s.Shout) > MaxShoutLength {
		return fmt.Errorf("%w: snake %q shout longer than %d characters", ErrMalformedState, s.ID, MaxShoutLength)
	}
	return nil
}

// Clone performs a deep copy of the snake.
func (s Snake) Clone() Snake {
	out := s
	if s.Body != nil {
		out.Body = make([]Point, len(s.Body))
		copy(out.Body, s.Body)
	}
	return out
}

// Board is the game board on one turn.
type Board struct {
	Width   int
	Height  int
	Food    []Point
	Hazards []Point
	Snakes  []Snake
}

// Validate checks the board dimensions and that every food, hazard and
// snake point lies on the board.
func (b *Board) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: board dimensions %dx%d", ErrMalformedState, b.Width, b.Height)
	}
	for i, p := range b.Food {
		if !IsWithin(p, b.Width, b.Height) {
			return fmt.Errorf("%w: food[%d] %v outside %dx%d", ErrMalformedState, i, p, b.Width, b.Height)
		}
	}
	for i, p := range b.Hazards {
		if !IsWithin(p, b.Width, b.Height) {
			return fmt.Errorf("%w: hazard[%d] %v outside %dx%d", ErrMalformedState, i, p, b.Width, b.Height)
		}
	}
	for i := range b.Snakes {
		if err := b.Snakes[i].Validate(b.Width, b.Height); err != nil {
			return err
		}
	}
	return nil
}

// Snake returns the snake with the given id, or nil.
func (b *Board) Snake(id string) *Snake {
	for i := range b.Snakes {
		if b.Snakes[i].ID == id {
			return &b.Snakes[i]
		}
	}
	return nil
}

// Clone performs a deep copy of the board.
func (b Board) Clone() Board {
	out := Board{Width: b.Width, Height: b.Height}
	if len(b.Food) > 0 {
		out.Food = make([]Point, len(b.Food))
		copy(out.Food, b.Food)
	}
	if len(b.Hazards) > 0 {
		out.Hazards = make([]Point, len(b.Hazards))
		copy(out.Hazards, b.Hazards)
	}
	if len(b.Snakes) > 0 {
		out.Snakes = make([]Snake, len(b.Snakes))
		for i := range b.Snakes {
			out.Snakes[i] = b.Snakes[i].Clone()
		}
	}
	return out
}

// Source says where a game was started from.
type Source string

const (
	SourceTournament Source = "tournament"
	SourceLeague     Source = "league"
	SourceArena      Source = "arena"
	SourceChallenge  Source = "challenge"
	SourceCustom     Source = "custom"
)

// ParseSource maps a wire source tag, treating anything unknown as custom.
func ParseSource(s string) Source {
	switch src := Source(s); src {
	case SourceTournament, SourceLeague, SourceArena, SourceChallenge:
		return src
	}
	return SourceCustom
}

// RoyaleSettings apply to the royale ruleset.
type RoyaleSettings struct {
	ShrinkEveryNTurns int
}

// SquadSettings apply to the squad ruleset.
type SquadSettings struct {
	AllowBodyCollisions bool
	SharedElimination   bool
	SharedHealth        bool
	SharedLength        bool
}

// Settings is opaque rules configuration. The core passes it through to the
// decision function without interpreting it.
type Settings struct {
	FoodSpawnChance     int
	MinimumFood         int
	HazardDamagePerTurn int
	Royale              RoyaleSettings
	Squad               SquadSettings
}

// Ruleset names the rules module running a game.
type Ruleset struct {
	Name     string
	Version  string
	Settings Settings
}

// Game describes the game being played. It does not change between turns.
type Game struct {
	ID      string
	Ruleset Ruleset
	Map     string
	// Timeout is the per-turn response budget.
	Timeout time.Duration
	Source  Source
}
