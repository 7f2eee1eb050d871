package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONOutput(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	l, err := New(Options{Level: "debug", Format: FormatJSON, Output: &buf})
	require.NoError(t, err)
	l.Debug().Str("k", "v").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "v", line["k"])
	assert.Equal(t, "debug", line["level"])
}

func TestSetLevelFilters(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	l, err := New(Options{Level: "warn", Format: FormatJSON, Output: &buf})
	require.NoError(t, err)
	l.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	require.NoError(t, SetLevel("info"))
	l.Info().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestInvalidOptions(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestFileOutput(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	path := filepath.Join(t.TempDir(), "pubdraft.log")
	l, err := New(Options{Path: path})
	require.NoError(t, err)
	l.Info().Msg("to file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"to file"`)
}
