package game

import "fmt"

// Direction is a move a snake can make on its turn.
type Direction int

const (
	MoveUp Direction = iota
	MoveDown
	MoveLeft
	MoveRight
)

// Directions lists every move in wire order.
var Directions = [...]Direction{MoveUp, MoveDown, MoveLeft, MoveRight}

var directionNames = [...]string{"up", "down", "left", "right"}

func (d Direction) String() string {
	if d < MoveUp || d > MoveRight {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// Delta is the coordinate change of one step in direction d.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case MoveUp:
		return 0, 1
	case MoveDown:
		return 0, -1
	case MoveLeft:
		return -1, 0
	case MoveRight:
		return 1, 0
	}
	return 0, 0
}

// Opposite returns the reverse of d.
func (d Direction) Opposite() Direction {
	switch d {
	case MoveUp:
		return MoveDown
	case MoveDown:
		return MoveUp
	case MoveLeft:
		return MoveRight
	default:
		return MoveLeft
	}
}

// ParseDirection maps a wire move name to a Direction.
func ParseDirection(name string) (Direction, error) {
	for i, n := range directionNames {
		if n == name {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", name)
}

// DirectionBetween returns the direction of a single step from a to b.
// ok is false if b is not orthogonally adjacent to a.
func DirectionBetween(a, b Point) (d Direction, ok bool) {
	for _, d := range Directions {
		if a.Add(d) == b {
			return d, true
		}
	}
	return 0, false
}
