// Package config loads the server configuration from flags, environment
// variables and an optional .env file. Flags win over the environment, the
// environment wins over the built-in defaults.
package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/fennewald/battle-snakes/api"
	"github.com/fennewald/battle-snakes/decide"
	"github.com/fennewald/battle-snakes/game"
	"github.com/fennewald/battle-snakes/logging"
)

type Config struct {
	Listen string

	// Info response. Empty values are left out of GET /.
	Author  string
	Color   string
	Head    string
	Tail    string
	Version string

	ShoutPolicy api.ShoutPolicy
	Budget      decide.Budget

	IdleTimeout   time.Duration
	SweepInterval time.Duration
	History       bool

	// ArchiveDir disables archiving when empty.
	ArchiveDir string
	ArchiveLog string
	FlushGames int
	FlushEvery time.Duration

	LogLevel  slog.Level
	LogFormat logging.Format
}

// Load reads an optional env file (missing is fine), then parses args.
func Load(args []string, envFile string, stderr io.Writer) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return Parse(args, stderr)
}

// Parse builds a Config from args, using environment variables as defaults.
func Parse(args []string, stderr io.Writer) (Config, error) {
	fs := flag.NewFlagSet("battlesnake", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var c Config
	fs.StringVar(&c.Listen, "listen", getEnvOrDefault("LISTEN", ":8080"), "HTTP listen address")
	fs.StringVar(&c.Author, "author", getEnvOrDefault("SNAKE_AUTHOR", ""), "Author reported by GET /")
	fs.StringVar(&c.Color, "color", getEnvOrDefault("SNAKE_COLOR", ""), "Snake color (#rrggbb)")
	fs.StringVar(&c.Head, "head", getEnvOrDefault("SNAKE_HEAD", ""), "Snake head variant")
	fs.StringVar(&c.Tail, "tail", getEnvOrDefault("SNAKE_TAIL", ""), "Snake tail variant")
	fs.StringVar(&c.Version, "version", getEnvOrDefault("SNAKE_VERSION", ""), "Version reported by GET /")
	shout := fs.String("shout-policy", getEnvOrDefault("SHOUT_POLICY", api.ShoutTruncate.String()), "Over-long shouts: truncate or reject")

	fs.DurationVar(&c.Budget.Default, "move-timeout", getEnvDurationOrDefault("MOVE_TIMEOUT", decide.DefaultBudget.Default), "Turn timeout assumed when a game does not send one")
	fs.DurationVar(&c.Budget.Reserve, "latency-reserve", getEnvDurationOrDefault("LATENCY_RESERVE", decide.DefaultBudget.Reserve), "Time kept back from each turn for the network")
	fs.DurationVar(&c.Budget.Minimum, "min-compute", getEnvDurationOrDefault("MIN_COMPUTE", decide.DefaultBudget.Minimum), "Least compute time granted per turn")

	fs.DurationVar(&c.IdleTimeout, "idle-timeout", getEnvDurationOrDefault("IDLE_TIMEOUT", 5*time.Minute), "Reclaim sessions with no message for this long")
	fs.DurationVar(&c.SweepInterval, "sweep-every", getEnvDurationOrDefault("SWEEP_EVERY", 30*time.Second), "Idle sweep interval")
	fs.BoolVar(&c.History, "history", getEnvBoolOrDefault("HISTORY", false), "Keep every turn of each game in memory (implied by -archive-dir)")

	fs.StringVar(&c.ArchiveDir, "archive-dir", getEnvOrDefault("ARCHIVE_DIR", ""), "Directory to write finished games as parquet (empty disables)")
	fs.StringVar(&c.ArchiveLog, "archive-log", getEnvOrDefault("ARCHIVE_LOG", ""), "Append-only log of archived game IDs (default <archive-dir>/archived_games.log)")
	fs.IntVar(&c.FlushGames, "flush-games", getEnvIntOrDefault("FLUSH_GAMES", 100), "Flush when buffered games reaches this count")
	fs.DurationVar(&c.FlushEvery, "flush-every", getEnvDurationOrDefault("FLUSH_EVERY", 10*time.Minute), "Flush at this interval regardless of buffered count")

	level := fs.String("log-level", getEnvOrDefault("LOG_LEVEL", "info"), "debug, info, warn or error")
	format := fs.String("log-format", getEnvOrDefault("LOG_FORMAT", string(logging.FormatJSON)), "pretty, json or text")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var err error
	if c.ShoutPolicy, err = api.ParseShoutPolicy(*shout); err != nil {
		return Config{}, err
	}
	if c.LogLevel, err = logging.ParseLevel(*level); err != nil {
		return Config{}, err
	}
	c.LogFormat = logging.Format(strings.ToLower(strings.TrimSpace(*format)))
	if c.ArchiveDir != "" {
		c.History = true
		if c.ArchiveLog == "" {
			c.ArchiveLog = strings.TrimRight(c.ArchiveDir, "/") + "/archived_games.log"
		}
	}
	return c, c.Validate()
}

// Validate checks values that flag parsing alone cannot.
func (c Config) Validate() error {
	if c.Color != "" {
		if _, err := game.ParseColor(c.Color); err != nil {
			return fmt.Errorf("color: %w", err)
		}
	}
	if c.Head != "" {
		if _, err := game.ParseHead(c.Head); err != nil {
			return fmt.Errorf("head: %w", err)
		}
	}
	switch c.LogFormat {
	case logging.FormatPretty, logging.FormatJSON, logging.FormatText:
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.Budget.Minimum <= 0 {
		return fmt.Errorf("min-compute must be positive, got %v", c.Budget.Minimum)
	}
	if c.Budget.Reserve < 0 {
		return fmt.Errorf("latency-reserve must not be negative, got %v", c.Budget.Reserve)
	}
	if c.IdleTimeout <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("idle-timeout and sweep-every must be positive")
	}
	if c.ArchiveDir != "" && (c.FlushGames <= 0 || c.FlushEvery <= 0) {
		return fmt.Errorf("flush-games and flush-every must be positive when archiving")
	}
	return nil
}

// Appearance builds the GET / payload, leaving unset fields absent.
func (c Config) Appearance() api.Appearance {
	a := api.Appearance{Author: c.Author, Tail: game.Tail(c.Tail), Version: c.Version}
	if c.Color != "" {
		col, _ := game.ParseColor(c.Color)
		a.Color = &col
	}
	if c.Head != "" {
		h, _ := game.ParseHead(c.Head)
		a.Head = &h
	}
	return a
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
