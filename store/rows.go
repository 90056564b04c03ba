// Package store archives finished games as parquet, one row per turn, and
// keeps an append-only log of the games already archived.
package store

import (
	"github.com/fennewald/battle-snakes/game"
	"github.com/fennewald/battle-snakes/rules"
	"github.com/fennewald/battle-snakes/session"
)

// Schema is written to each file's key/value metadata.
const Schema = "archive_turn_v2"

// NoMove marks a move that is unknown for that turn (the last turn, a snake
// that died, or a turn nobody answered).
const NoMove int32 = -1

// ArchiveTurnRow is a single (game, turn) snapshot.
//
// Food, hazards and bodies are stored as parallel x/y columns, which
// compress far better than nested points.
type ArchiveTurnRow struct {
	GameID string `parquet:"game_id,dict"`
	Turn   int32  `parquet:"turn"`
	Width  int32  `parquet:"width"`
	Height int32  `parquet:"height"`

	Ruleset string `parquet:"ruleset,dict"`
	Map     string `parquet:"map,dict,optional"`
	Source  string `parquet:"source,dict"`

	FoodX []int32 `parquet:"food_x"`
	FoodY []int32 `parquet:"food_y"`

	HazardX []int32 `parquet:"hazard_x"`
	HazardY []int32 `parquet:"hazard_y"`

	Snakes []ArchiveSnake `parquet:"snakes"`

	YouID string `parquet:"you_id,dict"`
	// YouMove is what this server answered for the turn, NoMove if none.
	YouMove  int32  `parquet:"you_move"`
	YouShout string `parquet:"you_shout,optional"`

	// Reason is why the game left the registry (end or idle).
	Reason string `parquet:"reason,dict"`
}

type ArchiveSnake struct {
	ID     string `parquet:"id,dict"`
	Name   string `parquet:"name,dict"`
	Squad  string `parquet:"squad,dict,optional"`
	// Alive is false for a snake eliminated this turn: missing from the
	// next frame, or out of health on the last one.
	Alive  bool  `parquet:"alive"`
	Health int32 `parquet:"health"`

	BodyX []int32 `parquet:"body_x"`
	BodyY []int32 `parquet:"body_y"`

	// Move is read off the next turn's head, NoMove if not known.
	Move int32 `parquet:"move"`
	// Value is the final outcome for this snake: 1 won, -1 lost, 0 draw.
	Value float32 `parquet:"value"`
}

// RowsFromRecord flattens a finished session into turn rows. Frames that
// repeat a turn (start and the first move both carry turn 0) collapse into
// the later one. A record without history yields a single row for its final
// board.
func RowsFromRecord(rec session.Record) []ArchiveTurnRow {
	frames := dedupeFrames(rec.History)
	if len(frames) == 0 {
		frames = []session.Frame{{Turn: rec.Turn, Board: rec.Board}}
	}

	final := frames[len(frames)-1].Board
	values := make(map[string]float32)
	for _, f := range frames {
		for _, s := range f.Board.Snakes {
			if _, ok := values[s.ID]; !ok {
				values[s.ID] = outcomeValue(rules.Result(&final, s.ID))
			}
		}
	}

	rows := make([]ArchiveTurnRow, 0, len(frames))
	for i, f := range frames {
		var next *game.Board
		if i+1 < len(frames) {
			next = &frames[i+1].Board
		}
		row := ArchiveTurnRow{
			GameID:  rec.Game.ID,
			Turn:    int32(f.Turn),
			Width:   int32(f.Board.Width),
			Height:  int32(f.Board.Height),
			Ruleset: rec.Game.Ruleset.Name,
			Map:     rec.Game.Map,
			Source:  string(rec.Game.Source),
			YouID:   rec.You.ID,
			YouMove: NoMove,
			Reason:  string(rec.Reason),
		}
		row.FoodX, row.FoodY = splitPoints(f.Board.Food)
		row.HazardX, row.HazardY = splitPoints(f.Board.Hazards)
		if f.Decided {
			row.YouMove = int32(f.Decision.Move)
			row.YouShout = f.Decision.Shout
		}

		row.Snakes = make([]ArchiveSnake, len(f.Board.Snakes))
		for j, s := range f.Board.Snakes {
			as := ArchiveSnake{
				ID:     s.ID,
				Name:   s.Name,
				Squad:  s.Squad,
				Alive:  s.Health > 0,
				Health: int32(s.Health),
				Move:   NoMove,
				Value:  values[s.ID],
			}
			as.BodyX, as.BodyY = splitPoints(s.Body)
			if next != nil {
				ns := next.Snake(s.ID)
				as.Alive = ns != nil
				if ns != nil && len(ns.Body) > 0 && len(s.Body) > 0 {
					if d, ok := game.DirectionBetween(s.Body[0], ns.Body[0]); ok {
						as.Move = int32(d)
					}
				}
			}
			row.Snakes[j] = as
		}
		rows = append(rows, row)
	}
	return rows
}

func dedupeFrames(frames []session.Frame) []session.Frame {
	out := make([]session.Frame, 0, len(frames))
	for _, f := range frames {
		if n := len(out); n > 0 && out[n-1].Turn == f.Turn {
			out[n-1] = f
			continue
		}
		out = append(out, f)
	}
	return out
}

func splitPoints(ps []game.Point) (xs, ys []int32) {
	xs = make([]int32, len(ps))
	ys = make([]int32, len(ps))
	for i, p := range ps {
		xs[i] = int32(p.X)
		ys[i] = int32(p.Y)
	}
	return xs, ys
}

func outcomeValue(o rules.Outcome) float32 {
	switch o {
	case rules.OutcomeWon:
		return 1
	case rules.OutcomeLost:
		return -1
	}
	return 0
}
