package api

import (
	"fmt"
	"io"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/fennewald/battle-snakes/game"
)

// Kind is the lifecycle event a request belongs to.
type Kind int

const (
	KindStart Kind = iota
	KindMove
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindMove:
		return "move"
	case KindEnd:
		return "end"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Request is a decoded and validated start, move or end request.
type Request struct {
	Kind  Kind
	Game  game.Game
	Turn  int
	Board game.Board
	You   game.Snake
}

// DecodeStart reads a /start body.
func DecodeStart(r io.Reader) (*Request, error) { return Decode(KindStart, r) }

// DecodeMove reads a /move body.
func DecodeMove(r io.Reader) (*Request, error) { return Decode(KindMove, r) }

// DecodeEnd reads an /end body.
func DecodeEnd(r io.Reader) (*Request, error) { return Decode(KindEnd, r) }

// Decode reads one request body of the given kind. Structural problems are
// reported as game.ErrMalformedState and unknown cosmetic names as
// game.ErrUnknownVariant.
func Decode(kind Kind, r io.Reader) (*Request, error) {
	var wire GameRequest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: decode %s request: %v", game.ErrMalformedState, kind, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: decode %s request: trailing data after object", game.ErrMalformedState, kind)
	}
	req, err := wire.toRequest(kind)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", kind, err)
	}
	return req, nil
}

func (w *GameRequest) toRequest(kind Kind) (*Request, error) {
	if w.Game.ID == "" {
		return nil, fmt.Errorf("%w: missing game id", game.ErrMalformedState)
	}
	if w.Turn < 0 {
		return nil, fmt.Errorf("%w: negative turn %d", game.ErrMalformedState, w.Turn)
	}
	if w.Game.Timeout < 0 {
		return nil, fmt.Errorf("%w: negative timeout %d", game.ErrMalformedState, w.Game.Timeout)
	}

	board, err := w.Board.toBoard()
	if err != nil {
		return nil, err
	}
	you, err := w.You.toSnake()
	if err != nil {
		return nil, err
	}
	// A snake that is no longer on the board has been eliminated and its
	// head may be off the edge (a wall death). Only its shape is checked.
	validate := func() error { return you.Validate(board.Width, board.Height) }
	if board.Snake(you.ID) == nil {
		validate = you.ValidateShape
	}
	if err := validate(); err != nil {
		return nil, fmt.Errorf("you: %w", err)
	}

	return &Request{
		Kind:  kind,
		Game:  w.Game.toGame(),
		Turn:  w.Turn,
		Board: board,
		You:   you,
	}, nil
}

func (g Game) toGame() game.Game {
	s := g.Ruleset.Settings
	return game.Game{
		ID: g.ID,
		Ruleset: game.Ruleset{
			Name:    g.Ruleset.Name,
			Version: g.Ruleset.Version,
			Settings: game.Settings{
				FoodSpawnChance:     s.FoodSpawnChance,
				MinimumFood:         s.MinimumFood,
				HazardDamagePerTurn: s.HazardDamagePerTurn,
				Royale:              game.RoyaleSettings{ShrinkEveryNTurns: s.Royale.ShrinkEveryNTurns},
				Squad: game.SquadSettings{
					AllowBodyCollisions: s.Squad.AllowBodyCollisions,
					SharedElimination:   s.Squad.SharedElimination,
					SharedHealth:        s.Squad.SharedHealth,
					SharedLength:        s.Squad.SharedLength,
				},
			},
		},
		Map:     g.Map,
		Timeout: time.Duration(g.Timeout) * time.Millisecond,
		Source:  game.ParseSource(g.Source),
	}
}

func (b *Board) toBoard() (game.Board, error) {
	out := game.Board{
		Width:   b.Width,
		Height:  b.Height,
		Food:    toPoints(b.Food),
		Hazards: toPoints(b.Hazards),
	}
	out.Snakes = make([]game.Snake, len(b.Snakes))
	for i := range b.Snakes {
		s, err := b.Snakes[i].toSnake()
		if err != nil {
			return game.Board{}, err
		}
		out.Snakes[i] = s
	}
	if err := out.Validate(); err != nil {
		return game.Board{}, err
	}
	return out, nil
}

// toSnake converts the wire snake. Bounds are checked by the caller, which
// knows the board size.
func (s *Battlesnake) toSnake() (game.Snake, error) {
	out := game.Snake{
		ID:     s.ID,
		Name:   s.Name,
		Health: s.Health,
		Body:   toPoints(s.Body),
		Head:   game.Point{X: s.Head.X, Y: s.Head.Y},
		Length: s.Length,
		Shout:  s.Shout,
		Squad:  s.Squad,
	}

	switch s.Latency {
	case "":
	case "0":
		out.TimedOut = true
	default:
		ms, err := strconv.ParseInt(s.Latency, 10, 64)
		if err != nil || ms < 0 {
			return game.Snake{}, fmt.Errorf("%w: snake %q latency %q", game.ErrMalformedState, s.ID, s.Latency)
		}
		out.Latency = time.Duration(ms) * time.Millisecond
	}

	c, err := s.Customizations.toCustomization()
	if err != nil {
		return game.Snake{}, fmt.Errorf("snake %q: %w", s.ID, err)
	}
	out.Customization = c
	return out, nil
}

// toCustomization fills absent fields with the engine defaults (black,
// default head). A name that is present but unknown is an error.
func (c Customizations) toCustomization() (game.Customization, error) {
	out := game.Customization{Head: game.HeadDefault, Tail: game.Tail(c.Tail)}
	if c.Color != "" {
		color, err := game.ParseColor(c.Color)
		if err != nil {
			return game.Customization{}, err
		}
		out.Color = color
	}
	if c.Head != "" {
		head, err := game.ParseHead(c.Head)
		if err != nil {
			return game.Customization{}, err
		}
		out.Head = head
	}
	return out, nil
}

func toPoints(coords []Coord) []game.Point {
	if coords == nil {
		return nil
	}
	out := make([]game.Point, len(coords))
	for i, c := range coords {
		out[i] = game.Point{X: c.X, Y: c.Y}
	}
	return out
}
