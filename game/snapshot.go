package game

// Snapshot is a read-only copy of one game's latest state.
// It owns all of its slices, so a decision function may keep it after the
// registry call that produced it returns.
type Snapshot struct {
	Game  Game
	Turn  int
	Board Board
	You   Snake
}

// YouID is the id of the snake being controlled.
func (s *Snapshot) YouID() string { return s.You.ID }

// NewSnapshot deep-copies board and you into a snapshot.
func NewSnapshot(g Game, turn int, board Board, you Snake) Snapshot {
	return Snapshot{
		Game:  g,
		Turn:  turn,
		Board: board.Clone(),
		You:   you.Clone(),
	}
}

// Clone performs a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	return NewSnapshot(s.Game, s.Turn, s.Board, s.You)
}
