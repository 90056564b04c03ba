// Package decide runs the pluggable move decision for one turn.
//
// A Decider turns a snapshot into a move. Run gives it the turn's time
// budget and replaces a late, failed or panicking decision with a fallback
// move so the engine always gets an answer.
package decide

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fennewald/battle-snakes/game"
	"github.com/fennewald/battle-snakes/rules"
)

// ErrDecisionTimeout is returned when the decider misses the turn deadline.
var ErrDecisionTimeout = errors.New("decision timeout")

// Decider chooses a move. Implementations must be safe for concurrent use
// by different games, must not modify the snapshot and should return once
// ctx is done.
type Decider interface {
	Decide(ctx context.Context, snap *game.Snapshot) (game.Decision, error)
}

// Func adapts a function to a Decider.
type Func func(ctx context.Context, snap *game.Snapshot) (game.Decision, error)

func (f Func) Decide(ctx context.Context, snap *game.Snapshot) (game.Decision, error) {
	return f(ctx, snap)
}

// Budget turns a game's advertised timeout into compute time.
type Budget struct {
	// Default is used when the game does not advertise a timeout.
	Default time.Duration
	// Reserve is kept back for network latency and encoding.
	Reserve time.Duration
	// Minimum is the least compute time ever granted.
	Minimum time.Duration
}

// DefaultBudget leaves 200ms of a 500ms turn for the round trip.
var DefaultBudget = Budget{
	Default: 500 * time.Millisecond,
	Reserve: 200 * time.Millisecond,
	Minimum: 50 * time.Millisecond,
}

// For returns the compute time for a turn with the given timeout.
func (b Budget) For(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		timeout = b.Default
	}
	compute := timeout - b.Reserve
	if compute < b.Minimum {
		compute = b.Minimum
	}
	return compute
}

// Result is the outcome of Run.
type Result struct {
	Decision game.Decision
	// Degraded is set when Decision is the fallback move, Err says why.
	Degraded bool
	Err      error
	Elapsed  time.Duration
}

// Run asks d for a move within budget. The snapshot handed to d is a copy;
// d keeps running in the background if it ignores ctx, but its answer is
// discarded.
func Run(ctx context.Context, d Decider, snap game.Snapshot, budget time.Duration) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type answer struct {
		decision game.Decision
		err      error
	}
	done := make(chan answer, 1)
	own := snap.Clone()
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- answer{err: fmt.Errorf("decider panic: %v", p)}
			}
		}()
		dec, err := d.Decide(ctx, &own)
		done <- answer{decision: dec, err: err}
	}()

	var res Result
	select {
	case a := <-done:
		res.Decision, res.Err = a.decision, a.err
		if res.Err == nil && (a.decision.Move < game.MoveUp || a.decision.Move > game.MoveRight) {
			res.Err = fmt.Errorf("decider returned invalid move %d", int(a.decision.Move))
		}
		if errors.Is(res.Err, context.DeadlineExceeded) {
			res.Err = fmt.Errorf("%w: %v", ErrDecisionTimeout, res.Err)
		}
	case <-ctx.Done():
		res.Err = fmt.Errorf("%w after %v", ErrDecisionTimeout, budget)
		if parent := context.Cause(ctx); parent != nil && !errors.Is(parent, context.DeadlineExceeded) {
			res.Err = fmt.Errorf("%w: %v", ErrDecisionTimeout, parent)
		}
	}

	if res.Err != nil {
		res.Decision = game.Decision{Move: Fallback(&snap)}
		res.Degraded = true
	}
	res.Elapsed = time.Since(start)
	return res
}

// Fallback picks a move without searching: keep going straight when that is
// legal and hazard free, otherwise any legal hazard-free move, otherwise any
// legal move, otherwise up.
func Fallback(snap *game.Snapshot) game.Direction {
	you := snap.Board.Snake(snap.You.ID)
	if you == nil {
		you = &snap.You
	}
	legal := rules.LegalMovesWithTailDecrement(&snap.Board, you)
	if len(legal) == 0 {
		return game.MoveUp // No legal moves, return up (will die anyway)
	}

	safe := legal[:0:0]
	for _, m := range legal {
		if !rules.IsHazard(&snap.Board, you.Body[0].Add(m)) {
			safe = append(safe, m)
		}
	}
	if len(safe) == 0 {
		safe = legal
	}

	if heading, ok := rules.Heading(you); ok {
		for _, m := range safe {
			if m == heading {
				return m
			}
		}
	}
	return safe[0]
}
