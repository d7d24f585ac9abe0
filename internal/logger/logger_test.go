package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Formats(t *testing.T) {
	t.Run("production defaults to json", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Config{Writer: &buf, Environment: "production"})
		log.Info("started", "port", 8080)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "started", entry["msg"])
		assert.Equal(t, float64(8080), entry["port"])
	})

	t.Run("development defaults to text", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Config{Writer: &buf, Environment: "development"})
		log.Info("started", "port", 8080)

		assert.Contains(t, buf.String(), "msg=started")
		assert.Contains(t, buf.String(), "port=8080")
	})

	t.Run("explicit format wins", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Config{Writer: &buf, Environment: "production", Format: FormatPretty})
		log.Info("hello")
		assert.True(t, strings.HasPrefix(buf.String(), "time="))
	})
}

func TestNew_LevelAndSource(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Level: "warn", Format: FormatJSON, AddSource: true})

	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.Warn("kept")
	var entry struct {
		Msg    string `json:"msg"`
		Source struct {
			File string `json:"file"`
		} `json:"source"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry.Msg)
	assert.Equal(t, "logger_test.go", entry.Source.File)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
