package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ asynq.Logger = (*AsynqLogger)(nil)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("dropped")
	logger.Warn("kept", "episode_id", "ep-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "ep-1", entry["episode_id"])
}

func TestNewLoggerTextDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "loud", "text")

	logger.Debug("hidden")
	logger.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestAsynqLogger(t *testing.T) {
	var buf bytes.Buffer
	a := &AsynqLogger{Logger: newLogger(&buf, "debug", "text")}

	a.Info("worker ", "started")
	assert.Contains(t, buf.String(), "worker started")
	assert.Panics(t, func() { a.Fatal("boom") })
}
