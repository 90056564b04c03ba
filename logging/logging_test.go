package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.With("game_id", "g1").WithGroup("turn").Debug("moved",
		"n", 4,
		"elapsed", 120*time.Millisecond,
		"err", errors.New("late"),
		slog.Group("decision", "move", "up"),
	)

	assert.True(t, strings.Contains(buf.String(), "\n  "), "output is indented")

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "moved", got["msg"])
	assert.Equal(t, "DEBUG", got["level"])
	assert.Equal(t, "g1", got["game_id"])

	turn, ok := got["turn"].(map[string]any)
	require.True(t, ok, "turn group: %v", got)
	assert.EqualValues(t, 4, turn["n"])
	assert.Equal(t, "120ms", turn["elapsed"])
	assert.Equal(t, "late", turn["err"])
	assert.Equal(t, map[string]any{"move": "up"}, turn["decision"])
}

func TestPrettyHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil))
	log.Debug("hidden")
	assert.Empty(t, buf.String())
	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew(t *testing.T) {
	for _, f := range []Format{FormatPretty, FormatJSON, FormatText, ""} {
		var buf bytes.Buffer
		l, err := New(&buf, f, slog.LevelInfo)
		require.NoError(t, err, f)
		l.Info("hello", "k", "v")
		assert.Contains(t, buf.String(), "hello", f)
	}
	_, err := New(&bytes.Buffer{}, "xml", slog.LevelInfo)
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)
	l, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestContextLogger(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, l, FromContext(WithLogger(context.Background(), l)))
}
