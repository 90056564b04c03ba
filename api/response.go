package api

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"github.com/fennewald/battle-snakes/game"
)

// APIVersion is the only Battlesnake API version the engine accepts.
const APIVersion = "1"

// ErrShoutTooLong is returned under ShoutReject for shouts over
// game.MaxShoutLength characters.
var ErrShoutTooLong = errors.New("shout too long")

// Battlesnake API response types

type InfoResponse struct {
	APIVersion string `json:"apiversion"`
	Author     string `json:"author,omitempty"`
	Color      string `json:"color,omitempty"`
	Head       string `json:"head,omitempty"`
	Tail       string `json:"tail,omitempty"`
	Version    string `json:"version,omitempty"`
}

type MoveResponse struct {
	Move  string `json:"move"`
	Shout string `json:"shout,omitempty"`
}

// Appearance is how the snake presents itself to the engine. Nil and empty
// fields are left off the wire so the engine applies its own defaults.
type Appearance struct {
	Author  string
	Color   *game.Color
	Head    *game.Head
	Tail    game.Tail
	Version string
}

// NewInfo builds the info response for a.
func NewInfo(a Appearance) InfoResponse {
	info := InfoResponse{
		APIVersion: APIVersion,
		Author:     a.Author,
		Tail:       string(a.Tail),
		Version:    a.Version,
	}
	if a.Color != nil {
		info.Color = a.Color.String()
	}
	if a.Head != nil {
		info.Head = a.Head.String()
	}
	return info
}

// ShoutPolicy says what to do with a shout over the length limit.
type ShoutPolicy int

const (
	ShoutTruncate ShoutPolicy = iota
	ShoutReject
)

// ParseShoutPolicy accepts "truncate" or "reject".
func ParseShoutPolicy(s string) (ShoutPolicy, error) {
	switch s {
	case "truncate":
		return ShoutTruncate, nil
	case "reject":
		return ShoutReject, nil
	}
	return 0, fmt.Errorf("unknown shout policy %q", s)
}

func (p ShoutPolicy) String() string {
	if p == ShoutReject {
		return "reject"
	}
	return "truncate"
}

// NewMove builds a move response. truncated reports that the shout was cut
// to fit; under ShoutReject an oversized shout is an ErrShoutTooLong instead.
func NewMove(d game.Direction, shout string, policy ShoutPolicy) (resp MoveResponse, truncated bool, err error) {
	if d < game.MoveUp || d > game.MoveRight {
		return MoveResponse{}, false, fmt.Errorf("invalid move %v", d)
	}
	if utf8.RuneCountInString(shout) > game.MaxShoutLength {
		if policy == ShoutReject {
			return MoveResponse{}, false, fmt.Errorf("%w: %d characters", ErrShoutTooLong, utf8.RuneCountInString(shout))
		}
		shout = truncateRunes(shout, game.MaxShoutLength)
		truncated = true
	}
	return MoveResponse{Move: d.String(), Shout: shout}, truncated, nil
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Encode writes v as a single JSON document.
func Encode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
