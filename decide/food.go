package decide

import (
	"context"

	"github.com/fennewald/battle-snakes/game"
	"github.com/fennewald/battle-snakes/rules"
)

// Forager is the built-in decider: it walks toward the nearest food along
// legal, hazard-free squares and otherwise behaves like Fallback. It exists
// so the server plays without a real strategy plugged in.
type Forager struct{}

func (Forager) Decide(ctx context.Context, snap *game.Snapshot) (game.Decision, error) {
	if err := ctx.Err(); err != nil {
		return game.Decision{}, err
	}
	you := snap.Board.Snake(snap.You.ID)
	if you == nil {
		you = &snap.You
	}
	if len(snap.Board.Food) == 0 || len(you.Body) == 0 {
		return game.Decision{Move: Fallback(snap)}, nil
	}

	head := you.Body[0]
	best, bestDist := Fallback(snap), -1
	for _, m := range rules.LegalMovesWithTailDecrement(&snap.Board, you) {
		next := head.Add(m)
		if rules.IsHazard(&snap.Board, next) {
			continue
		}
		d := nearest(next, snap.Board.Food)
		if bestDist < 0 || d < bestDist {
			best, bestDist = m, d
		}
	}
	return game.Decision{Move: best}, nil
}

func nearest(p game.Point, targets []game.Point) int {
	best := -1
	for _, t := range targets {
		if d := game.Manhattan(p, t); best < 0 || d < best {
			best = d
		}
	}
	return best
}
