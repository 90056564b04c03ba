// Package api is the Battlesnake wire protocol: the JSON shapes the engine
// sends to /start, /move and /end, the info and move responses, and the
// projection between those shapes and package game.
//
// Field names follow the engine's documentation verbatim (camelCase).
package api

// Battlesnake API request types

type GameRequest struct {
	Game  Game        `json:"game"`
	Turn  int         `json:"turn"`
	Board Board       `json:"board"`
	You   Battlesnake `json:"you"`
}

type Game struct {
	ID      string  `json:"id"`
	Ruleset Ruleset `json:"ruleset"`
	Map     string  `json:"map"`
	Timeout int     `json:"timeout"`
	Source  string  `json:"source"`
}

type Ruleset struct {
	Name     string          `json:"name"`
	Version  string          `json:"version"`
	Settings RulesetSettings `json:"settings"`
}

type RulesetSettings struct {
	FoodSpawnChance     int                   `json:"foodSpawnChance"`
	MinimumFood         int                   `json:"minimumFood"`
	HazardDamagePerTurn int                   `json:"hazardDamagePerTurn"`
	Royale              RoyaleRulesetSettings `json:"royale"`
	Squad               SquadRulesetSettings  `json:"squad"`
}

type RoyaleRulesetSettings struct {
	ShrinkEveryNTurns int `json:"shrinkEveryNTurns"`
}

type SquadRulesetSettings struct {
	AllowBodyCollisions bool `json:"allowBodyCollisions"`
	SharedElimination   bool `json:"sharedElimination"`
	SharedHealth        bool `json:"sharedHealth"`
	SharedLength        bool `json:"sharedLength"`
}

type Board struct {
	Height  int           `json:"height"`
	Width   int           `json:"width"`
	Food    []Coord       `json:"food"`
	Hazards []Coord       `json:"hazards"`
	Snakes  []Battlesnake `json:"snakes"`
}

type Battlesnake struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Health         int            `json:"health"`
	Body           []Coord        `json:"body"`
	Latency        string         `json:"latency"`
	Head           Coord          `json:"head"`
	Length         int            `json:"length"`
	Shout          string         `json:"shout"`
	Squad          string         `json:"squad"`
	Customizations Customizations `json:"customizations"`
}

type Customizations struct {
	Color string `json:"color"`
	Head  string `json:"head"`
	Tail  string `json:"tail"`
}

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}
