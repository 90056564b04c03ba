package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fennewald/battle-snakes/game"
	"github.com/fennewald/battle-snakes/store"
)

func row(gameID string, turn int32) store.ArchiveTurnRow {
	return store.ArchiveTurnRow{
		GameID:  gameID,
		Turn:    turn,
		Width:   4,
		Height:  3,
		Ruleset: "standard",
		FoodX:   []int32{0},
		FoodY:   []int32{2},
		HazardX: []int32{3},
		HazardY: []int32{0},
		YouID:   "me",
		YouMove: int32(game.MoveRight),
		Reason:  "end",
		Snakes: []store.ArchiveSnake{
			{ID: "me", Alive: true, Health: 90, BodyX: []int32{1, 1}, BodyY: []int32{1, 0}, Move: int32(game.MoveRight), Value: 1},
			{ID: "them", Alive: true, Health: 50, BodyX: []int32{3}, BodyY: []int32{2}, Move: store.NoMove, Value: -1},
		},
	}
}

func TestRenderTurn(t *testing.T) {
	r := row("g1", 7)
	out := renderTurn(&r)
	lines := strings.Split(out, "\n")

	assert.Equal(t, "=== g1 turn 7  you=me move=right ===", lines[0])
	assert.Equal(t, "F . . S ", lines[1])
	assert.Equal(t, ". O . . ", lines[2])
	assert.Equal(t, ". o . H ", lines[3])
	assert.Contains(t, out, "move -    ")
	assert.Contains(t, out, "value +1")
}

func TestGameRowsAndList(t *testing.T) {
	rows := []store.ArchiveTurnRow{row("b", 1), row("a", 2), row("b", 0), row("a", 0)}
	got := gameRows(rows, "b")
	require.Len(t, got, 2)
	assert.Equal(t, int32(0), got[0].Turn)
	assert.Equal(t, int32(1), got[1].Turn)
	assert.Empty(t, gameRows(rows, "missing"))

	var buf bytes.Buffer
	listGames(&buf, rows)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "b "))
	assert.Contains(t, lines[1], "2 turns")
}
