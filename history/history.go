// Package history reads the parquet archive back through DuckDB.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// GameSummary is one archived game.
type GameSummary struct {
	GameID    string `json:"game_id"`
	Ruleset   string `json:"ruleset"`
	Map       string `json:"map,omitempty"`
	Source    string `json:"source"`
	Reason    string `json:"reason"`
	MinTurn   int32  `json:"min_turn"`
	MaxTurn   int32  `json:"max_turn"`
	TurnCount int32  `json:"turn_count"`
	Width     int32  `json:"width"`
	Height    int32  `json:"height"`
	YouID     string `json:"you_id"`
	// Outcome is won, lost or draw for YouID.
	Outcome string `json:"outcome"`
	File    string `json:"file"`
}

// GamesPage is a sorted, paginated slice of the index.
type GamesPage struct {
	Total int           `json:"total"`
	Games []GameSummary `json:"games"`
}

type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

type Snake struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Alive  bool    `json:"alive"`
	Health int32   `json:"health"`
	Body   []Point `json:"body"`
	Move   int32   `json:"move"`
	Value  float32 `json:"value"`
}

// Turn is one archived turn of a game.
type Turn struct {
	GameID  string  `json:"game_id"`
	Turn    int32   `json:"turn"`
	Width   int32   `json:"width"`
	Height  int32   `json:"height"`
	Food    []Point `json:"food"`
	Hazards []Point `json:"hazards"`
	Snakes  []Snake `json:"snakes"`
	YouMove int32   `json:"you_move"`
}

// DB keeps a DuckDB view over the archive directory. The games index is
// cached and rebuilt after Invalidate or once the view is older than
// refreshRate.
type DB struct {
	root        string
	refreshRate time.Duration
	logger      *slog.Logger

	mu          sync.RWMutex
	cur         *view
	lastRefresh time.Time
	gamesIndex  []GameSummary
}

// view is one opened DuckDB handle. A replaced view is closed only once
// every query that acquired it has released it.
type view struct {
	db    *sql.DB
	users sync.WaitGroup
}

func (v *view) release() { v.users.Done() }

// retire closes v after its last user. v must already be unreachable from
// DB so no new user can acquire it.
func (v *view) retire(wait bool) error {
	if wait {
		v.users.Wait()
		return v.db.Close()
	}
	go func() {
		v.users.Wait()
		_ = v.db.Close()
	}()
	return nil
}

func Open(root string, refreshRate time.Duration, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{root: root, refreshRate: refreshRate, logger: logger.With("component", "history")}
}

// Invalidate makes the next query reopen the view, picking up new files.
func (c *DB) Invalidate() {
	c.mu.Lock()
	c.lastRefresh = time.Time{}
	c.gamesIndex = nil
	c.mu.Unlock()
}

// acquire returns the current view, refreshing it if stale. The caller
// must release it.
func (c *DB) acquire() (*view, error) {
	c.mu.RLock()
	if c.cur != nil && time.Since(c.lastRefresh) < c.refreshRate {
		v := c.cur
		v.users.Add(1)
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil || time.Since(c.lastRefresh) >= c.refreshRate {
		if err := c.refreshLocked(); err != nil {
			return nil, err
		}
	}
	c.cur.users.Add(1)
	return c.cur, nil
}

func (c *DB) refreshLocked() error {
	start := time.Now()
	newDB, err := openView(c.root)
	if err != nil {
		return err
	}
	if c.cur != nil {
		_ = c.cur.retire(false)
	}
	c.cur = &view{db: newDB}
	c.lastRefresh = time.Now()
	c.gamesIndex = nil
	c.logger.Debug("view refreshed", "elapsed", time.Since(start))
	return nil
}

// Games returns one page of the archived games index sorted by sortKey
// (turns, game_id, ruleset, source; default most recent file first).
func (c *DB) Games(ctx context.Context, limit, offset int, sortKey, sortDir string) (GamesPage, error) {
	idx, err := c.index(ctx)
	if err != nil {
		return GamesPage{}, err
	}
	return GamesPage{Total: len(idx), Games: paginate(idx, limit, offset, sortKey, sortDir)}, nil
}

func (c *DB) index(ctx context.Context) ([]GameSummary, error) {
	v, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer v.release()
	c.mu.RLock()
	idx := c.gamesIndex
	c.mu.RUnlock()
	if idx != nil {
		return idx, nil
	}

	start := time.Now()
	games, err := queryAllGames(ctx, v.db, c.root)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.cur == v {
		c.gamesIndex = games
	}
	c.mu.Unlock()
	c.logger.Debug("games index rebuilt", "games", len(games), "elapsed", time.Since(start))
	return games, nil
}

// Turns returns every archived turn of gameID in order.
func (c *DB) Turns(ctx context.Context, gameID string) ([]Turn, error) {
	v, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer v.release()
	rows, err := v.db.QueryContext(ctx,
		`SELECT game_id, turn::INTEGER, width::INTEGER, height::INTEGER, food_x, food_y, hazard_x, hazard_y, snakes, you_move::INTEGER
		 FROM turns
		 WHERE game_id = ?
		 ORDER BY turn ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var foodX, foodY, hazX, hazY, snakes any
		if err := rows.Scan(&t.GameID, &t.Turn, &t.Width, &t.Height, &foodX, &foodY, &hazX, &hazY, &snakes, &t.YouMove); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Food = zipPoints(asInt32Slice(foodX), asInt32Slice(foodY))
		t.Hazards = zipPoints(asInt32Slice(hazX), asInt32Slice(hazY))
		t.Snakes = asSnakes(snakes)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Close waits for running queries and closes the current view.
func (c *DB) Close() error {
	c.mu.Lock()
	v := c.cur
	c.cur = nil
	c.mu.Unlock()
	if v == nil {
		return nil
	}
	return v.retire(true)
}

// openView opens an in-memory DuckDB with a "turns" view over the parquet
// files directly in root. Batches being written live in root/tmp and are
// not matched.
func openView(root string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	matches, _ := filepath.Glob(filepath.Join(root, "*.parquet"))
	var stmt string
	if len(matches) == 0 {
		stmt = emptyView
	} else {
		glob := filepath.Join(root, "*.parquet")
		stmt = `CREATE OR REPLACE VIEW turns AS
			SELECT * FROM read_parquet('` + escapeSQLString(glob) + `', filename=true, union_by_name=true)`
	}
	if _, err := db.Exec(stmt); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create view: %w", err)
	}
	return db, nil
}

// read_parquet fails on a glob with no matches, so an empty archive gets a
// typed empty view instead.
const emptyView = `CREATE OR REPLACE VIEW turns AS
	SELECT * FROM (
		SELECT
			NULL::VARCHAR AS game_id,
			NULL::INTEGER AS turn,
			NULL::INTEGER AS width,
			NULL::INTEGER AS height,
			NULL::VARCHAR AS ruleset,
			NULL::VARCHAR AS "map",
			NULL::VARCHAR AS source,
			NULL::INTEGER[] AS food_x,
			NULL::INTEGER[] AS food_y,
			NULL::INTEGER[] AS hazard_x,
			NULL::INTEGER[] AS hazard_y,
			NULL::STRUCT(
				id VARCHAR,
				name VARCHAR,
				squad VARCHAR,
				alive BOOLEAN,
				health INTEGER,
				body_x INTEGER[],
				body_y INTEGER[],
				move INTEGER,
				value REAL
			)[] AS snakes,
			NULL::VARCHAR AS you_id,
			NULL::INTEGER AS you_move,
			NULL::VARCHAR AS you_shout,
			NULL::VARCHAR AS reason,
			NULL::VARCHAR AS filename
	) WHERE 1=0`

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func queryAllGames(ctx context.Context, db *sql.DB, root string) ([]GameSummary, error) {
	const query = `WITH game_stats AS (
		SELECT
			game_id,
			MIN(turn)::INTEGER AS min_turn,
			MAX(turn)::INTEGER AS max_turn,
			COUNT(*)::INTEGER AS turn_count,
			MIN(width)::INTEGER AS width,
			MIN(height)::INTEGER AS height,
			MIN(ruleset)::VARCHAR AS ruleset,
			COALESCE(MIN("map"), '')::VARCHAR AS "map",
			MIN(source)::VARCHAR AS source,
			MIN(reason)::VARCHAR AS reason,
			MIN(you_id)::VARCHAR AS you_id,
			MIN(filename)::VARCHAR AS file
		FROM turns
		GROUP BY game_id
	),
	last_turns AS (
		SELECT game_id, snakes
		FROM (
			SELECT game_id, snakes,
				row_number() OVER (PARTITION BY game_id ORDER BY turn DESC) AS rn
			FROM turns
		)
		WHERE rn = 1
	)
	SELECT g.game_id, g.min_turn, g.max_turn, g.turn_count, g.width, g.height,
		g.ruleset, g."map", g.source, g.reason, g.you_id, g.file, lt.snakes
	FROM game_stats g
	LEFT JOIN last_turns lt ON g.game_id = lt.game_id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	out := make([]GameSummary, 0, 256)
	for rows.Next() {
		var g GameSummary
		var file string
		var snakes any
		if err := rows.Scan(&g.GameID, &g.MinTurn, &g.MaxTurn, &g.TurnCount, &g.Width, &g.Height,
			&g.Ruleset, &g.Map, &g.Source, &g.Reason, &g.YouID, &file, &snakes); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		g.File = relativeTo(file, root)
		g.Outcome = outcome(asSnakes(snakes), g.YouID)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Batch files are named by creation time, so file order is archive order.
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File > out[j].File
		}
		return out[i].GameID > out[j].GameID
	})
	return out, nil
}

// outcome mirrors the archive's value column: the final board decides.
func outcome(final []Snake, youID string) string {
	if len(final) == 0 {
		return "draw"
	}
	for _, s := range final {
		if s.ID == youID {
			return "won"
		}
	}
	return "lost"
}

// MaxPageSize bounds the games returned by one Games call.
const MaxPageSize = 500

func paginate(games []GameSummary, limit, offset int, sortKey, sortDir string) []GameSummary {
	if limit <= 0 {
		limit = 50
	}
	limit = min(limit, MaxPageSize)
	offset = max(offset, 0)
	desc := !strings.EqualFold(strings.TrimSpace(sortDir), "asc")

	sorted := make([]GameSummary, len(games))
	copy(sorted, games)

	var less func(a, b GameSummary) bool
	switch strings.ToLower(strings.TrimSpace(sortKey)) {
	case "turns", "turn_count":
		less = func(a, b GameSummary) bool { return a.TurnCount < b.TurnCount }
	case "id", "game_id":
		less = func(a, b GameSummary) bool { return a.GameID < b.GameID }
	case "ruleset":
		less = func(a, b GameSummary) bool { return a.Ruleset < b.Ruleset }
	case "source":
		less = func(a, b GameSummary) bool { return a.Source < b.Source }
	default:
		// Index order is already newest first.
		if !desc {
			for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
		less = nil
	}
	if less != nil {
		sort.SliceStable(sorted, func(i, j int) bool {
			if desc {
				return less(sorted[j], sorted[i])
			}
			return less(sorted[i], sorted[j])
		})
	}

	if offset >= len(sorted) {
		return []GameSummary{}
	}
	if limit > len(sorted)-offset {
		limit = len(sorted) - offset
	}
	return sorted[offset : offset+limit]
}

func relativeTo(filename, root string) string {
	fn := strings.TrimSpace(filename)
	if fn == "" || root == "" {
		return fn
	}
	rel, err := filepath.Rel(root, fn)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fn
	}
	return filepath.ToSlash(rel)
}
