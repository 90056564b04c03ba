package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fennewald/battle-snakes/api"
	"github.com/fennewald/battle-snakes/decide"
	"github.com/fennewald/battle-snakes/game"
	"github.com/fennewald/battle-snakes/logging"
)

func TestParse_Defaults(t *testing.T) {
	c, err := Parse(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Listen)
	assert.Equal(t, api.ShoutTruncate, c.ShoutPolicy)
	assert.Equal(t, decide.DefaultBudget, c.Budget)
	assert.Equal(t, slog.LevelInfo, c.LogLevel)
	assert.Equal(t, logging.FormatJSON, c.LogFormat)
	assert.Empty(t, c.ArchiveDir)
	assert.False(t, c.History)

	info := api.NewInfo(c.Appearance())
	assert.Equal(t, api.InfoResponse{APIVersion: "1"}, info, "unset appearance stays absent")
}

func TestParse_FlagBeatsEnv(t *testing.T) {
	t.Setenv("LISTEN", ":9000")
	t.Setenv("SHOUT_POLICY", "reject")
	t.Setenv("LATENCY_RESERVE", "150ms")
	t.Setenv("FLUSH_GAMES", "notanumber")

	c, err := Parse([]string{"-listen", ":7000"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, ":7000", c.Listen)
	assert.Equal(t, api.ShoutReject, c.ShoutPolicy)
	assert.Equal(t, 150*time.Millisecond, c.Budget.Reserve)
	assert.Equal(t, 100, c.FlushGames, "bad env value falls back to default")
}

func TestParse_ArchiveImpliesHistory(t *testing.T) {
	c, err := Parse([]string{"-archive-dir", "data/"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, c.History)
	assert.Equal(t, "data/archived_games.log", c.ArchiveLog)
}

func TestParse_Appearance(t *testing.T) {
	c, err := Parse([]string{"-color", "#FF8800", "-head", "smart-caterpillar", "-tail", "bolt", "-author", "fen"}, io.Discard)
	require.NoError(t, err)
	info := api.NewInfo(c.Appearance())
	assert.Equal(t, "#ff8800", info.Color)
	assert.Equal(t, "smart-caterpillar", info.Head)
	assert.Equal(t, "bolt", info.Tail)
	assert.Equal(t, "fen", info.Author)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string][]string{
		"color":        {"-color", "orange"},
		"head":         {"-head", "not-a-head"},
		"shout policy": {"-shout-policy", "ignore"},
		"log level":    {"-log-level", "loud"},
		"log format":   {"-log-format", "xml"},
		"min compute":  {"-min-compute", "0s"},
		"flush":        {"-archive-dir", "d", "-flush-games", "0"},
		"unknown flag": {"-nope"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(args, io.Discard)
			require.Error(t, err)
		})
	}

	_, err := Parse([]string{"-head", "nope"}, io.Discard)
	require.ErrorIs(t, err, game.ErrUnknownVariant)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SNAKE_AUTHOR=dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SNAKE_AUTHOR") })

	c, err := Load(nil, path, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "dotenv", c.Author)

	_, err = Load(nil, filepath.Join(dir, "missing.env"), io.Discard)
	require.NoError(t, err, "missing env file is not an error")
}
