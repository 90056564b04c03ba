// Command replay prints archived games turn by turn from a parquet batch.
//
// Without -game it lists the games in the batch.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/fennewald/battle-snakes/store"
)

func main() {
	file := flag.String("file", "", "Archive batch (.parquet) to read")
	gameID := flag.String("game", "", "Game to replay; empty lists the games in the batch")
	from := flag.Int("from", 0, "First turn to print")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	rows, err := store.ReadBatch(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}

	if *gameID == "" {
		listGames(os.Stdout, rows)
		return
	}

	turns := gameRows(rows, *gameID)
	if len(turns) == 0 {
		log.Fatalf("game %s not in %s", *gameID, *file)
	}
	for i := range turns {
		if int(turns[i].Turn) < *from {
			continue
		}
		fmt.Fprint(os.Stdout, renderTurn(&turns[i]))
	}
}

// gameRows returns gameID's rows ordered by turn.
func gameRows(rows []store.ArchiveTurnRow, gameID string) []store.ArchiveTurnRow {
	var out []store.ArchiveTurnRow
	for _, r := range rows {
		if r.GameID == gameID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Turn < out[j].Turn })
	return out
}

func listGames(w io.Writer, rows []store.ArchiveTurnRow) {
	type summary struct {
		id, ruleset, reason string
		turns               int32
	}
	byID := map[string]*summary{}
	var order []string
	for _, r := range rows {
		s, ok := byID[r.GameID]
		if !ok {
			s = &summary{id: r.GameID, ruleset: r.Ruleset, reason: r.Reason}
			byID[r.GameID] = s
			order = append(order, r.GameID)
		}
		s.turns = max(s.turns, r.Turn)
	}
	for _, id := range order {
		s := byID[id]
		fmt.Fprintf(w, "%-36s %-10s %5d turns  %s\n", s.id, s.ruleset, s.turns, s.reason)
	}
}
