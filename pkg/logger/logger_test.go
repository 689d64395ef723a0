package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel)

	l.Info("plan",
		String("exchange", "NYQ"),
		Int("ranges", 2),
		Bool("hit", true),
		Duration("took", 1500*time.Millisecond),
		Strings("symbols", []string{"AAPL", "MSFT"}),
		Error(errors.New("boom")),
	)
	m := decodeLine(t, &buf)
	assert.Equal(t, "info", m["level"])
	assert.Equal(t, "plan", m["message"])
	assert.Equal(t, "NYQ", m["exchange"])
	assert.Equal(t, 2.0, m["ranges"])
	assert.Equal(t, true, m["hit"])
	assert.Equal(t, 1500.0, m["took"])
	assert.Equal(t, "AAPL, MSFT", m["symbols"])
	assert.Equal(t, "boom", m["error"])
	assert.Contains(t, m, "caller")
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.WarnLevel)

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Equal(t, "warn", decodeLine(t, &buf)["level"])
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel).With(String("component", "api"))

	l.Error("failed", Int("status", 500))
	m := decodeLine(t, &buf)
	assert.Equal(t, "api", m["component"])
	assert.Equal(t, 500.0, m["status"])
}

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	l.Info("hello")

	_, err = New(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error("nothing", String("k", "v")) })
}
