package game

// Decision is a decision function's answer for one turn.
type Decision struct {
	Move  Direction
	Shout string
}
