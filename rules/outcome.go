package rules

import "github.com/fennewald/battle-snakes/game"

// Outcome is how a finished game went for one snake.
type Outcome string

const (
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
	OutcomeDraw Outcome = "draw"
)

// Result reads the outcome for youID off the final board: still on the
// board means a win, an empty board a draw, anything else a loss.
func Result(board *game.Board, youID string) Outcome {
	if board.Snake(youID) != nil {
		return OutcomeWon
	}
	if len(board.Snakes) == 0 {
		return OutcomeDraw
	}
	return OutcomeLost
}
