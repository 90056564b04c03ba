package game

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownVariant is returned when a cosmetic name is not in the catalog.
var ErrUnknownVariant = errors.New("unknown customization variant")

// Color is a 24-bit RGB color. The zero value is black.
type Color struct {
	R, G, B uint8
}

// ParseColor parses a "#rrggbb" hex color.
func ParseColor(s string) (Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return Color{}, fmt.Errorf("%w: color %q is not #rrggbb", ErrMalformedState, s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: color %q: %v", ErrMalformedState, s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Head is a head style from the engine's customization catalog.
type Head int

const (
	HeadDefault Head = iota
	HeadBeluga
	HeadBendr
	HeadDead
	HeadEvil
	HeadFang
	HeadPixel
	HeadSafe
	HeadSandWorm
	HeadShades
	HeadSilly
	HeadSmile
	HeadTongue
	HeadBowler
	HeadMark
	HeadAllSeeing
	HeadSmartCaterpillar
	HeadTransRights
	HeadBonhomme
	HeadEarmuffs
	HeadRudolph
	HeadScarf
	HeadSki
	HeadSnowman
	HeadSnowWorm
	HeadCaffeine
	HeadGamer
	HeadTigerKing
	HeadWorkout

	headCount
)

// headNames is indexed by Head. The misspellings are the engine's own
// catalog keys and must stay verbatim.
var headNames = [headCount]string{
	HeadDefault:          "default",
	HeadBeluga:           "beluga",
	HeadBendr:            "bendr",
	HeadDead:             "dead",
	HeadEvil:             "evil",
	HeadFang:             "fang",
	HeadPixel:            "pixel",
	HeadSafe:             "safe",
	HeadSandWorm:         "sand-worm",
	HeadShades:           "shades",
	HeadSilly:            "silly",
	HeadSmile:            "smile",
	HeadTongue:           "tounge",
	HeadBowler:           "rbc-bowler",
	HeadMark:             "replit-mark",
	HeadAllSeeing:        "all-seeing",
	HeadSmartCaterpillar: "smart-caterpillar",
	HeadTransRights:      "trans-rights-scarf",
	HeadBonhomme:         "bonhomme",
	HeadEarmuffs:         "earmuffs",
	HeadRudolph:          "rudolph",
	HeadScarf:            "scarf",
	HeadSki:              "ski",
	HeadSnowman:          "snowman",
	HeadSnowWorm:         "snow-worm",
	HeadCaffeine:         "caffine",
	HeadGamer:            "gamer",
	HeadTigerKing:        "tiger-king",
	HeadWorkout:          "workout",
}

var headsByName = func() map[string]Head {
	m := make(map[string]Head, len(headNames))
	for i, name := range headNames {
		m[name] = Head(i)
	}
	return m
}()

// Heads returns every catalog variant in declaration order.
func Heads() []Head {
	out := make([]Head, headCount)
	for i := range out {
		out[i] = Head(i)
	}
	return out
}

// ParseHead maps a wire name to its Head. Matching is exact and
// case-sensitive; unknown names are an error, never HeadDefault.
func ParseHead(name string) (Head, error) {
	h, ok := headsByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: head %q", ErrUnknownVariant, name)
	}
	return h, nil
}

// String returns the wire name of h.
func (h Head) String() string {
	if h < 0 || h >= headCount {
		return fmt.Sprintf("Head(%d)", int(h))
	}
	return headNames[h]
}

// Tail is an opaque tail catalog key. The engine's tail catalog is not
// modelled here, so the value is passed through verbatim.
type Tail string

// Customization is how a snake is drawn. It is copied by value into each
// Snake and never shared.
type Customization struct {
	Color Color
	Head  Head
	Tail  Tail
}
