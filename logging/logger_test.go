package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertions)
var (
	_ Logger = (*SlogAdapter)(nil)
	_ Logger = (*SimLogger)(nil)
	_ Logger = NoOpLogger{}
)

func newBufLogger(level LogLevel) (*SimLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: level, Format: "json", Output: &buf, Component: "test"})
	return l, &buf
}

func TestSimLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufLogger(LogLevelWarn)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("visible warning")
	l.Error("visible error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible warning")
	assert.Contains(t, out, "visible error")
}

func TestSimLogger_ContextAttrs(t *testing.T) {
	l, buf := newBufLogger(LogLevelInfo)
	l = l.WithTask("proj-1", "task-9").WithContext("round", 3)

	l.Info("round update")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.Split(strings.TrimSpace(buf.String()), "\n")[0]), &entry))
	assert.Equal(t, "proj-1", entry["project_id"])
	assert.Equal(t, "task-9", entry["task_id"])
	assert.Equal(t, "test", entry["component"])
	assert.EqualValues(t, 3, entry["round"])
}

func TestSimLogger_KeyValueArgs(t *testing.T) {
	l, buf := newBufLogger(LogLevelInfo)

	l.Warn("task unassignable", "task_id", "t1", "reason", "no candidate")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.Split(strings.TrimSpace(buf.String()), "\n")[0]), &entry))
	assert.Equal(t, "task unassignable", entry["msg"])
	assert.Equal(t, "t1", entry["task_id"])
	assert.Equal(t, "no candidate", entry["reason"])
	assert.NotContains(t, entry["msg"], "EXTRA")
}

func TestSimLogger_OddTrailingArgKept(t *testing.T) {
	l, buf := newBufLogger(LogLevelInfo)

	l.Info("partial pair", "task_id", "t1", "dangling")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.Split(strings.TrimSpace(buf.String()), "\n")[0]), &entry))
	assert.Equal(t, "t1", entry["task_id"])
	assert.Equal(t, "dangling", entry["extra"])
}

func TestSimLogger_WithDoesNotMutateParent(t *testing.T) {
	l, buf := newBufLogger(LogLevelInfo)
	child := l.WithComponent("scheduler")

	l.Info("from parent")
	child.Info("from child")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"component":"test"`)
	assert.Contains(t, lines[1], `"component":"scheduler"`)
}

func TestSimLogger_DomainHelpers(t *testing.T) {
	l, buf := newBufLogger(LogLevelInfo)

	l.LogBehaviorCall("ana", 120*time.Millisecond, true, nil)
	l.LogBehaviorCall("ben", 50*time.Millisecond, false, errors.New("timeout"))
	l.LogRound(2, 3, 1, time.Second)
	l.LogAssignment("task-1", "ana", 27.5)

	out := buf.String()
	assert.Contains(t, out, "Behavior call completed")
	assert.Contains(t, out, "Behavior call failed")
	assert.Contains(t, out, "Round completed")
	assert.Contains(t, out, "Task assigned")
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))
	l.Info("adapted", "key", "value")
	assert.Contains(t, buf.String(), "adapted")
	assert.Contains(t, buf.String(), "key=value")
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "INFO", LogLevelInfo.String())
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
}
