package game

import (
	"errors"
	"strings"
	"testing"
)

// dumpBoard is a test helper to visualize board state, top row first.
func dumpBoard(b *Board) string {
	grid := make([][]byte, b.Height)
	for y := 0; y < b.Height; y++ {
		grid[y] = make([]byte, b.Width)
		for x := 0; x < b.Width; x++ {
			grid[y][x] = '.'
		}
	}
	for _, h := range b.Hazards {
		if IsWithin(h, b.Width, b.Height) {
			grid[h.Y][h.X] = '#'
		}
	}
	for _, f := range b.Food {
		if IsWithin(f, b.Width, b.Height) {
			grid[f.Y][f.X] = '*'
		}
	}
	for i, s := range b.Snakes {
		sym := byte('a' + i)
		for j, p := range s.Body {
			if !IsWithin(p, b.Width, b.Height) {
				continue
			}
			if j == 0 {
				grid[p.Y][p.X] = sym - 32 // uppercase head
			} else {
				grid[p.Y][p.X] = sym
			}
		}
	}
	var sb strings.Builder
	for y := b.Height - 1; y >= 0; y-- {
		sb.WriteString(string(grid[y]))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func newSnake(id string, body ...Point) Snake {
	return Snake{ID: id, Health: 100, Body: body, Head: body[0], Length: len(body)}
}

func TestIsWithin(t *testing.T) {
	cases := []struct {
		p    Point
		want bool
	}{
		{Point{0, 0}, true},
		{Point{10, 10}, true},
		{Point{11, 0}, false},
		{Point{0, 11}, false},
		{Point{-1, 5}, false},
		{Point{5, -1}, false},
	}
	for _, c := range cases {
		if got := IsWithin(c.p, 11, 11); got != c.want {
			t.Fatalf("IsWithin(%v)=%v want=%v", c.p, got, c.want)
		}
	}
}

func TestManhattan(t *testing.T) {
	if got := Manhattan(Point{0, 0}, Point{3, 4}); got != 7 {
		t.Fatalf("manhattan=%d want=7", got)
	}
	if got := Manhattan(Point{5, 1}, Point{2, 6}); got != 8 {
		t.Fatalf("manhattan=%d want=8", got)
	}
}

// Up must increase y: the origin is bottom-left.
func TestPointAdd_AxisConvention(t *testing.T) {
	p := Point{X: 5, Y: 5}
	want := map[Direction]Point{
		MoveUp:    {5, 6},
		MoveDown:  {5, 4},
		MoveLeft:  {4, 5},
		MoveRight: {6, 5},
	}
	for d, w := range want {
		if got := p.Add(d); got != w {
			t.Fatalf("%v.Add(%s)=%v want=%v", p, d, got, w)
		}
		back, ok := DirectionBetween(p, w)
		if !ok || back != d {
			t.Fatalf("DirectionBetween(%v,%v)=%s,%v want=%s", p, w, back, ok, d)
		}
		if got := w.Add(d.Opposite()); got != p {
			t.Fatalf("opposite of %s does not return to origin", d)
		}
	}
}

func TestParseDirection(t *testing.T) {
	for _, d := range Directions {
		got, err := ParseDirection(d.String())
		if err != nil || got != d {
			t.Fatalf("ParseDirection(%q)=%v,%v", d.String(), got, err)
		}
	}
	if _, err := ParseDirection("UP"); err == nil {
		t.Fatalf("expected error for UP")
	}
}

func TestSnakeValidate_Rejects(t *testing.T) {
	cases := map[string]Snake{
		"empty body":      {ID: "s", Health: 100, Length: 0},
		"length mismatch": {ID: "s", Health: 100, Body: []Point{{1, 1}, {1, 0}}, Head: Point{1, 1}, Length: 3},
		"head mismatch":   {ID: "s", Health: 100, Body: []Point{{1, 1}, {1, 0}}, Head: Point{1, 0}, Length: 2},
		"health high":     {ID: "s", Health: 101, Body: []Point{{1, 1}}, Head: Point{1, 1}, Length: 1},
		"health negative": {ID: "s", Health: -1, Body: []Point{{1, 1}}, Head: Point{1, 1}, Length: 1},
		"body off board":  {ID: "s", Health: 100, Body: []Point{{1, 1}, {1, 0}, {1, -1}}, Head: Point{1, 1}, Length: 3},
		"shout too long":  {ID: "s", Health: 100, Body: []Point{{1, 1}}, Head: Point{1, 1}, Length: 1, Shout: strings.Repeat("a", MaxShoutLength+1)},
	}
	for name, s := range cases {
		if err := s.Validate(11, 11); !errors.Is(err, ErrMalformedState) {
			t.Fatalf("%s: err=%v want ErrMalformedState", name, err)
		}
	}

	ok := newSnake("s", Point{0, 0}, Point{0, 0}, Point{0, 0})
	ok.Health = 0
	if err := ok.Validate(11, 11); err != nil {
		t.Fatalf("stacked spawn with zero health rejected: %v", err)
	}
}

func TestSnakeValidateShape_IgnoresBounds(t *testing.T) {
	dead := newSnake("s", Point{5, 11}, Point{5, 10})
	if err := dead.Validate(11, 11); !errors.Is(err, ErrMalformedState) {
		t.Fatalf("Validate accepted off-board head: %v", err)
	}
	if err := dead.ValidateShape(); err != nil {
		t.Fatalf("ValidateShape rejected off-board head: %v", err)
	}
	dead.Length = 5
	if err := dead.ValidateShape(); !errors.Is(err, ErrMalformedState) {
		t.Fatalf("ValidateShape accepted length mismatch: %v", err)
	}
}

func TestBoardValidate_Bounds(t *testing.T) {
	base := func() Board {
		return Board{
			Width:  7,
			Height: 5,
			Food:   []Point{{6, 4}},
			Snakes: []Snake{newSnake("a", Point{3, 3}, Point{3, 2})},
		}
	}

	b := base()
	if err := b.Validate(); err != nil {
		t.Fatalf("valid board rejected: %v\n%s", err, dumpBoard(&b))
	}

	mutations := map[string]func(*Board){
		"food x":     func(b *Board) { b.Food = append(b.Food, Point{7, 0}) },
		"food y":     func(b *Board) { b.Food = append(b.Food, Point{0, 5}) },
		"hazard x":   func(b *Board) { b.Hazards = []Point{{7, 1}} },
		"hazard y":   func(b *Board) { b.Hazards = []Point{{1, 5}} },
		"body y":     func(b *Board) { b.Snakes[0] = newSnake("a", Point{3, 4}, Point{3, 5}) },
		"zero width": func(b *Board) { b.Width = 0 },
		"neg height": func(b *Board) { b.Height = -1 },
	}
	for name, mutate := range mutations {
		b := base()
		mutate(&b)
		if err := b.Validate(); !errors.Is(err, ErrMalformedState) {
			t.Fatalf("%s: err=%v want ErrMalformedState", name, err)
		}
	}
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	board := Board{
		Width:   11,
		Height:  11,
		Food:    []Point{{1, 1}},
		Hazards: []Point{{0, 0}},
		Snakes:  []Snake{newSnake("me", Point{5, 5}, Point{5, 4})},
	}
	snap := NewSnapshot(Game{ID: "g"}, 3, board, board.Snakes[0])
	t.Logf("snapshot board:\n%s", dumpBoard(&snap.Board))

	board.Food[0] = Point{9, 9}
	board.Hazards[0] = Point{9, 9}
	board.Snakes[0].Body[0] = Point{9, 9}

	if snap.Board.Food[0] != (Point{1, 1}) {
		t.Fatalf("food shared with source board")
	}
	if snap.Board.Hazards[0] != (Point{0, 0}) {
		t.Fatalf("hazards shared with source board")
	}
	if snap.Board.Snakes[0].Body[0] != (Point{5, 5}) || snap.You.Body[0] != (Point{5, 5}) {
		t.Fatalf("snake body shared with source board")
	}
	if snap.YouID() != "me" {
		t.Fatalf("you id=%q want=me", snap.YouID())
	}
}

func TestParseSource(t *testing.T) {
	for _, s := range []string{"tournament", "league", "arena", "challenge", "custom"} {
		if got := ParseSource(s); string(got) != s {
			t.Fatalf("ParseSource(%q)=%q", s, got)
		}
	}
	for _, s := range []string{"", "ladder", "Arena"} {
		if got := ParseSource(s); got != SourceCustom {
			t.Fatalf("ParseSource(%q)=%q want custom", s, got)
		}
	}
}
