// Package game defines the core game state types for Battlesnake.
//
// These types hold one consistent snapshot of a game turn as the engine
// described it. They are decoded from the wire by package api, validated on
// construction and deep-copied before being handed to a decision function.
package game

// Point is a board coordinate.
// Coordinates follow Battlesnake conventions: (0,0) is bottom-left, +x is
// right and +y is up. Nothing in this module inverts the y-axis.
type Point struct {
	X int
	Y int
}

// Add returns the point one step away from p in direction d.
func (p Point) Add(d Direction) Point {
	dx, dy := d.Delta()
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// IsWithin reports whether p lies on a width x height board.
func IsWithin(p Point, width, height int) bool {
	return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height
}

// Manhattan is the grid distance between a and b.
func Manhattan(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
