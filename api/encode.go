package api

import (
	"strconv"
	"time"

	"github.com/fennewald/battle-snakes/game"
)

// NewRequest projects internal state back onto the wire. Decode of the
// result yields the same state.
func NewRequest(g game.Game, turn int, board *game.Board, you *game.Snake) GameRequest {
	return GameRequest{
		Game:  EncodeGame(g),
		Turn:  turn,
		Board: EncodeBoard(board),
		You:   EncodeSnake(you),
	}
}

func EncodeGame(g game.Game) Game {
	s := g.Ruleset.Settings
	return Game{
		ID: g.ID,
		Ruleset: Ruleset{
			Name:    g.Ruleset.Name,
			Version: g.Ruleset.Version,
			Settings: RulesetSettings{
				FoodSpawnChance:     s.FoodSpawnChance,
				MinimumFood:         s.MinimumFood,
				HazardDamagePerTurn: s.HazardDamagePerTurn,
				Royale:              RoyaleRulesetSettings{ShrinkEveryNTurns: s.Royale.ShrinkEveryNTurns},
				Squad: SquadRulesetSettings{
					AllowBodyCollisions: s.Squad.AllowBodyCollisions,
					SharedElimination:   s.Squad.SharedElimination,
					SharedHealth:        s.Squad.SharedHealth,
					SharedLength:        s.Squad.SharedLength,
				},
			},
		},
		Map:     g.Map,
		Timeout: int(g.Timeout / time.Millisecond),
		Source:  string(g.Source),
	}
}

func EncodeBoard(b *game.Board) Board {
	out := Board{
		Height:  b.Height,
		Width:   b.Width,
		Food:    toCoords(b.Food),
		Hazards: toCoords(b.Hazards),
		Snakes:  make([]Battlesnake, len(b.Snakes)),
	}
	for i := range b.Snakes {
		out.Snakes[i] = EncodeSnake(&b.Snakes[i])
	}
	return out
}

func EncodeSnake(s *game.Snake) Battlesnake {
	out := Battlesnake{
		ID:     s.ID,
		Name:   s.Name,
		Health: s.Health,
		Body:   toCoords(s.Body),
		Head:   Coord{X: s.Head.X, Y: s.Head.Y},
		Length: s.Length,
		Shout:  s.Shout,
		Squad:  s.Squad,
		Customizations: Customizations{
			Color: s.Customization.Color.String(),
			Head:  s.Customization.Head.String(),
			Tail:  string(s.Customization.Tail),
		},
	}
	switch {
	case s.TimedOut:
		out.Latency = "0"
	case s.Latency > 0:
		out.Latency = strconv.FormatInt(s.Latency.Milliseconds(), 10)
	}
	return out
}

func toCoords(ps []game.Point) []Coord {
	out := make([]Coord, len(ps))
	for i, p := range ps {
		out[i] = Coord{X: p.X, Y: p.Y}
	}
	return out
}
