package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/fennewald/battle-snakes/game"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func testSnake(id string, body ...game.Point) game.Snake {
	return game.Snake{ID: id, Health: 100, Body: body, Head: body[0], Length: len(body)}
}

func testBoard(you game.Snake) game.Board {
	return game.Board{Width: 11, Height: 11, Snakes: []game.Snake{you}}
}

func start(t *testing.T, r *Registry, id string) (game.Game, game.Snake) {
	t.Helper()
	g := game.Game{ID: id, Ruleset: game.Ruleset{Name: "standard"}, Timeout: 500 * time.Millisecond}
	you := testSnake("s1", game.Point{X: 5, Y: 5})
	require.NoError(t, r.Start(g, 0, testBoard(you), you))
	return g, you
}

func TestRegistry_EndToEnd(t *testing.T) {
	r := New()
	_, you := start(t, r, "g1")
	assert.Equal(t, 1, r.Len())

	snap, err := r.Update("g1", 1, testBoard(you), you)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Turn)
	assert.Equal(t, "s1", snap.YouID())
	assert.Equal(t, "g1", snap.Game.ID)

	rec, err := r.End("g1", 2, testBoard(you))
	require.NoError(t, err)
	assert.Equal(t, ReasonEnded, rec.Reason)
	assert.Equal(t, 2, rec.Turn)
	assert.Equal(t, 0, r.Len())

	_, err = r.Update("g1", 3, testBoard(you), you)
	require.ErrorIs(t, err, ErrUnknownSession)
}

func TestRegistry_FirstMoveMayRepeatStartTurn(t *testing.T) {
	r := New()
	_, you := start(t, r, "g")

	_, err := r.Update("g", 0, testBoard(you), you)
	require.NoError(t, err)

	_, err = r.Update("g", 0, testBoard(you), you)
	require.ErrorIs(t, err, ErrStaleTurn)
}

func TestRegistry_StaleTurnDoesNotRollBack(t *testing.T) {
	r := New()
	_, you := start(t, r, "g")

	_, err := r.Update("g", 5, testBoard(you), you)
	require.NoError(t, err)

	moved := testSnake("s1", game.Point{X: 0, Y: 0})
	_, err = r.Update("g", 3, testBoard(moved), moved)
	require.ErrorIs(t, err, ErrStaleTurn)

	var stale *StaleTurnError
	require.True(t, errors.As(err, &stale))
	assert.Equal(t, 5, stale.Last)
	assert.Equal(t, 3, stale.Got)

	snap, err := r.Snapshot("g")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Turn)
	assert.Equal(t, game.Point{X: 5, Y: 5}, snap.You.Head)
}

func TestRegistry_Lifecycle(t *testing.T) {
	r := New()
	you := testSnake("s1", game.Point{X: 1, Y: 1})

	_, err := r.Update("nope", 1, testBoard(you), you)
	require.ErrorIs(t, err, ErrUnknownSession)
	_, err = r.End("nope", 1, testBoard(you))
	require.ErrorIs(t, err, ErrUnknownSession)

	g, _ := start(t, r, "g")
	require.ErrorIs(t, r.Start(g, 0, testBoard(you), you), ErrDuplicateStart)

	_, err = r.End("g", 0, testBoard(you))
	require.NoError(t, err)

	_, err = r.End("g", 1, testBoard(you))
	require.ErrorIs(t, err, ErrUnknownSession)
	_, err = r.Update("g", 1, testBoard(you), you)
	require.ErrorIs(t, err, ErrUnknownSession)
	require.ErrorIs(t, r.Start(g, 0, testBoard(you), you), ErrDuplicateStart)
	_, err = r.Snapshot("g")
	require.ErrorIs(t, err, ErrUnknownSession)
}

func TestRegistry_EndDoesNotRollBack(t *testing.T) {
	r := New(WithHistory())
	_, you := start(t, r, "g")
	_, err := r.Update("g", 7, testBoard(you), you)
	require.NoError(t, err)

	rec, err := r.End("g", 4, game.Board{Width: 1, Height: 1})
	require.NoError(t, err)
	assert.Equal(t, 7, rec.Turn)
	assert.Equal(t, 11, rec.Board.Width)
	require.Len(t, rec.History, 2)
}

func TestRegistry_SnapshotIsIsolatedFromRegistry(t *testing.T) {
	r := New()
	_, you := start(t, r, "g")
	board := testBoard(you)
	board.Food = []game.Point{{X: 1, Y: 1}}

	snap, err := r.Update("g", 1, board, you)
	require.NoError(t, err)

	snap.Board.Food[0] = game.Point{X: 9, Y: 9}
	snap.You.Body[0] = game.Point{X: 9, Y: 9}
	board.Food[0] = game.Point{X: 8, Y: 8}

	again, err := r.Snapshot("g")
	require.NoError(t, err)
	assert.Equal(t, game.Point{X: 1, Y: 1}, again.Board.Food[0])
	assert.Equal(t, game.Point{X: 5, Y: 5}, again.You.Body[0])
}

func TestRegistry_Decisions(t *testing.T) {
	r := New(WithHistory())
	_, you := start(t, r, "g")

	_, _, ok := r.LastDecision("g")
	assert.False(t, ok)

	_, err := r.Update("g", 0, testBoard(you), you)
	require.NoError(t, err)
	r.RecordDecision("g", 0, game.Decision{Move: game.MoveLeft, Shout: "hi"})

	turn, d, ok := r.LastDecision("g")
	require.True(t, ok)
	assert.Equal(t, 0, turn)
	assert.Equal(t, game.MoveLeft, d.Move)

	// A decision for a turn the session has already left is dropped.
	_, err = r.Update("g", 1, testBoard(you), you)
	require.NoError(t, err)
	r.RecordDecision("g", 0, game.Decision{Move: game.MoveRight})
	turn, d, _ = r.LastDecision("g")
	assert.Equal(t, 0, turn)
	assert.Equal(t, game.MoveLeft, d.Move)

	sums := r.List()
	require.Len(t, sums, 1)
	assert.Equal(t, "left", sums[0].LastMove)
	assert.Equal(t, 1, sums[0].Turn)
	assert.Equal(t, "s1", sums[0].YouID)

	rec, err := r.End("g", 2, testBoard(you))
	require.NoError(t, err)
	require.Len(t, rec.History, 4)
	assert.False(t, rec.History[0].Decided, "start frame")
	assert.True(t, rec.History[1].Decided)
	assert.Equal(t, game.MoveLeft, rec.History[1].Decision.Move)
	assert.False(t, rec.History[2].Decided)
	assert.Equal(t, 2, rec.History[3].Turn)

	_, _, ok = r.LastDecision("g")
	assert.False(t, ok)
}

func TestRegistry_Sweep(t *testing.T) {
	clock := newClock()
	r := New(WithClock(clock.Now))
	_, you := start(t, r, "idle")
	start(t, r, "busy")

	clock.Advance(40 * time.Second)
	_, err := r.Update("busy", 1, testBoard(you), you)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	recs := r.Sweep(time.Minute)
	require.Len(t, recs, 1)
	assert.Equal(t, "idle", recs[0].Game.ID)
	assert.Equal(t, ReasonIdle, recs[0].Reason)
	assert.Equal(t, 1, r.Len())

	// The reclaimed game is tombstoned.
	_, err = r.Update("idle", 1, testBoard(you), you)
	require.ErrorIs(t, err, ErrUnknownSession)
	require.ErrorIs(t, r.Start(recs[0].Game, 0, testBoard(you), you), ErrDuplicateStart)

	// Tombstones expire after another idle period.
	clock.Advance(2 * time.Minute)
	recs = r.Sweep(time.Minute)
	require.Len(t, recs, 1)
	assert.Equal(t, "busy", recs[0].Game.ID)
	clock.Advance(2 * time.Minute)
	r.Sweep(time.Minute)
	start(t, r, "idle")
}

// Concurrent updates for distinct games never observe each other: every
// snapshot carries its own game's id and snake, and turns never go back.
func TestRegistry_ConcurrentIsolation(t *testing.T) {
	r := New()
	const games = 16
	const turns = 200

	for i := 0; i < games; i++ {
		g := game.Game{ID: fmt.Sprintf("g%d", i)}
		you := testSnake(fmt.Sprintf("s%d", i), game.Point{X: i % 11, Y: 0})
		require.NoError(t, r.Start(g, 0, testBoard(you), you))
	}

	var eg errgroup.Group
	for i := 0; i < games; i++ {
		gameID := fmt.Sprintf("g%d", i)
		you := testSnake(fmt.Sprintf("s%d", i), game.Point{X: i % 11, Y: 0})
		// Two writers per game race each other with the same turn sequence.
		for w := 0; w < 2; w++ {
			eg.Go(func() error {
				last := -1
				for turn := 1; turn <= turns; turn++ {
					snap, err := r.Update(gameID, turn, testBoard(you), you)
					if errors.Is(err, ErrStaleTurn) {
						continue
					}
					if err != nil {
						return err
					}
					if snap.Game.ID != gameID || snap.YouID() != you.ID {
						return fmt.Errorf("game %s saw snapshot of %s/%s", gameID, snap.Game.ID, snap.YouID())
					}
					if snap.Turn <= last {
						return fmt.Errorf("game %s turn went from %d to %d", gameID, last, snap.Turn)
					}
					last = snap.Turn
				}
				return nil
			})
		}
	}
	require.NoError(t, eg.Wait())

	for i := 0; i < games; i++ {
		snap, err := r.Snapshot(fmt.Sprintf("g%d", i))
		require.NoError(t, err)
		assert.Equal(t, turns, snap.Turn)
	}
}

func TestRegistry_ConcurrentEndAndUpdate(t *testing.T) {
	r := New()
	_, you := start(t, r, "g")

	var eg errgroup.Group
	var mu sync.Mutex
	accepted := 0
	for i := 1; i <= 50; i++ {
		turn := i
		eg.Go(func() error {
			_, err := r.Update("g", turn, testBoard(you), you)
			switch {
			case err == nil:
				mu.Lock()
				accepted++
				mu.Unlock()
			case errors.Is(err, ErrStaleTurn), errors.Is(err, ErrUnknownSession):
			default:
				return err
			}
			return nil
		})
	}
	eg.Go(func() error {
		_, err := r.End("g", 100, testBoard(you))
		return err
	})
	require.NoError(t, eg.Wait())
	assert.Equal(t, 0, r.Len())
	_, err := r.Update("g", 101, testBoard(you), you)
	require.ErrorIs(t, err, ErrUnknownSession)
}
