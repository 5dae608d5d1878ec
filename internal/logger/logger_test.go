package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dbsmedya/straycheck/internal/config"
)

// fileLogger returns a JSON logger writing to a temp file and the file path.
func fileLogger(t *testing.T, level string) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "straycheck.log")
	log, err := New(&config.LoggingConfig{Level: level, Format: "json", Output: path})
	require.NoError(t, err)
	return log, path
}

func readEntries(t *testing.T, log *Logger, path string) []map[string]interface{} {
	t.Helper()
	_ = log.Sync()
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestNew_OrphanDiagnosticsNeedDebug(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
	}{
		{level: "info", wantDebug: false},
		{level: "debug", wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, path := fileLogger(t, tt.level)
			log.Debugw("Adding object to missing parent records", "object_id", 102)
			log.Infow("Check completed", "orphans", 1)

			entries := readEntries(t, log, path)
			var msgs []string
			for _, e := range entries {
				msgs = append(msgs, e["msg"].(string))
			}
			assert.Contains(t, msgs, "Check completed")
			if tt.wantDebug {
				assert.Contains(t, msgs, "Adding object to missing parent records")
			} else {
				assert.NotContains(t, msgs, "Adding object to missing parent records")
			}
		})
	}
}

func TestNew_JSONCarriesCheckAndLayer(t *testing.T) {
	log, path := fileLogger(t, "info")
	log.WithCheck("bird_nests").WithLayer("nest_points").Infow("Fetched page", "count", 2)

	entries := readEntries(t, log, path)
	require.Len(t, entries, 1)
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "Fetched page", entries[0]["msg"])
	assert.Equal(t, "bird_nests", entries[0]["check"])
	assert.Equal(t, "nest_points", entries[0]["layer"])
	assert.Equal(t, float64(2), entries[0]["count"])
}

func TestNew_UnwritableFileFallsBackToStdout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "straycheck.log")
	log, err := New(&config.LoggingConfig{Level: "info", Format: "text", Output: path})
	require.NoError(t, err)
	require.NotNil(t, log)

	log.Info("still logging")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewDefault(t *testing.T) {
	log := NewDefault()
	require.NotNil(t, log)
	assert.True(t, log.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Desugar().Core().Enabled(zapcore.DebugLevel))
}

func TestNewFromCore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewFromCore(core)

	log.WithCheck("bird_nests").Debugw("observed", "object_id", 7)

	entries := logs.FilterMessage("observed").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "bird_nests", ctx["check"])
	assert.Equal(t, int64(7), ctx["object_id"])
}

func TestWithCheck_DoesNotMutateParent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewFromCore(core)

	checkLog := log.WithCheck("bird_nests")
	assert.NotSame(t, log, checkLog)

	log.Info("plain")
	entries := logs.FilterMessage("plain").All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "check")
}
