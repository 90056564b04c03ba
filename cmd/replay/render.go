package main

import (
	"fmt"
	"strings"

	"github.com/fennewald/battle-snakes/game"
	"github.com/fennewald/battle-snakes/store"
)

// renderTurn draws the board with y growing upwards. O/o is the archived
// snake, S/s everyone else, F food, H hazard.
func renderTurn(r *store.ArchiveTurnRow) string {
	w, h := int(r.Width), int(r.Height)
	grid := make([][]byte, h)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", w))
	}
	put := func(x, y int32, c byte) {
		if int(x) >= 0 && int(x) < w && int(y) >= 0 && int(y) < h {
			grid[y][x] = c
		}
	}

	for i := range r.HazardX {
		put(r.HazardX[i], r.HazardY[i], 'H')
	}
	for i := range r.FoodX {
		put(r.FoodX[i], r.FoodY[i], 'F')
	}
	for _, s := range r.Snakes {
		body, head := byte('s'), byte('S')
		if s.ID == r.YouID {
			body, head = 'o', 'O'
		}
		// Tail first so the head wins on stacked segments.
		for i := len(s.BodyX) - 1; i >= 0; i-- {
			c := body
			if i == 0 {
				c = head
			}
			put(s.BodyX[i], s.BodyY[i], c)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s turn %d  you=%s move=%s ===\n", r.GameID, r.Turn, r.YouID, moveName(r.YouMove))
	for y := h - 1; y >= 0; y-- {
		for x := 0; x < w; x++ {
			sb.WriteByte(grid[y][x])
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	for _, s := range r.Snakes {
		fmt.Fprintf(&sb, "  %-12s health %3d  length %2d  move %-5s  value %+.0f\n", s.ID, s.Health, len(s.BodyX), moveName(s.Move), s.Value)
	}
	return sb.String()
}

func moveName(m int32) string {
	if m == store.NoMove {
		return "-"
	}
	return game.Direction(m).String()
}
