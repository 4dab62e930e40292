package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Logger = (*MeshLogger)(nil)
	_ Logger = (*SlogAdapter)(nil)
	_ Logger = NoOpLogger{}
)

func newBufferLogger(level LogLevel) (*MeshLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return NewLogger(&LoggerConfig{Level: level, Format: "json", Output: buf}), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestMeshLoggerScopes(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	l.WithComponent("engine").WithRun("run-1").WithContext("tier", "medium").Info("hello", "round", 2)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "hello", lines[0]["msg"])
	assert.Equal(t, "engine", lines[0]["component"])
	assert.Equal(t, "run-1", lines[0]["run_id"])
	assert.Equal(t, "medium", lines[0]["tier"])
	assert.EqualValues(t, 2, lines[0]["round"])
}

func TestMeshLoggerLevelFilter(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "w", lines[0]["msg"])
	assert.Equal(t, "e", lines[1]["msg"])
}

func TestMeshLoggerWithDoesNotMutate(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	_ = l.WithContext("k", "v")

	l.Info("plain")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	_, ok := lines[0]["k"]
	assert.False(t, ok)
}

func TestLogGenerationDegraded(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)

	l.LogGeneration("agent-1", time.Millisecond, true, nil)
	l.LogGeneration("agent-2", time.Millisecond, false, errors.New("timeout"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "Generation degraded", lines[0]["msg"])
	assert.Equal(t, "agent-2", lines[0]["agent_id"])
	assert.Equal(t, "timeout", lines[0]["error"])
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LogLevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
