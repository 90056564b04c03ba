// Package rules answers movement questions about a single board: which
// moves are legal for a snake and where a move leads. It does not advance
// the game; the engine owns the rules, we only avoid walking into walls.
package rules

import (
	"github.com/fennewald/battle-snakes/game"
)

// LegalMoves returns the moves that keep you on the board and out of every
// snake body, tails included.
func LegalMoves(board *game.Board, you *game.Snake) []game.Direction {
	return legalMoves(board, you, false)
}

// LegalMovesWithTailDecrement is LegalMoves, except a snake's tail counts as
// free when it will move away this turn. A stacked tail (the last two
// segments equal, i.e. the snake just ate) stays blocked.
func LegalMovesWithTailDecrement(board *game.Board, you *game.Snake) []game.Direction {
	return legalMoves(board, you, true)
}

func legalMoves(board *game.Board, you *game.Snake, tailDecrement bool) []game.Direction {
	if you == nil || you.Health <= 0 || len(you.Body) == 0 {
		return []game.Direction{}
	}

	occupied := occupancy(board, you, tailDecrement)
	head := you.Body[0]
	moves := []game.Direction{}
	for _, d := range game.Directions {
		p := head.Add(d)
		if !game.IsWithin(p, board.Width, board.Height) {
			continue
		}
		if occupied[p] {
			continue
		}
		// Neck check (don't move backwards into own neck). Body collision
		// covers it unless the neck is a vacating tail.
		if len(you.Body) > 1 && p == you.Body[1] {
			continue
		}
		moves = append(moves, d)
	}
	return moves
}

func occupancy(board *game.Board, you *game.Snake, tailDecrement bool) map[game.Point]bool {
	occupied := make(map[game.Point]bool, 64)
	mark := func(s *game.Snake) {
		n := len(s.Body)
		if tailDecrement && n > 1 && s.Body[n-1] != s.Body[n-2] {
			n--
		}
		for _, p := range s.Body[:n] {
			occupied[p] = true
		}
	}

	sawYou := false
	for i := range board.Snakes {
		s := &board.Snakes[i]
		if s.ID == you.ID {
			sawYou = true
		}
		mark(s)
	}
	// you is not always on the board (e.g. the end request after elimination).
	if !sawYou {
		mark(you)
	}
	return occupied
}

// IsHazard reports whether p is a hazard square.
func IsHazard(board *game.Board, p game.Point) bool {
	for _, h := range board.Hazards {
		if h == p {
			return true
		}
	}
	return false
}

// Heading returns the direction you moved last turn, derived from the head
// and neck. ok is false for a snake that has not moved yet.
func Heading(you *game.Snake) (d game.Direction, ok bool) {
	if you == nil || len(you.Body) < 2 {
		return 0, false
	}
	return game.DirectionBetween(you.Body[1], you.Body[0])
}
