package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" WARNING "))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestLogger_WritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelInfo, Format: "json"})

	log.With(Component("risk")).Info("risk detected", UserID("u-1"), RiskType("attention_decline"))
	log.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "risk detected", entry["message"])
	assert.Equal(t, "risk", entry["component"])
	assert.Equal(t, "u-1", entry["user_id"])
	assert.Equal(t, "attention_decline", entry["risk_type"])
}

func TestFromContext(t *testing.T) {
	nop := NewNop()
	ctx := WithContext(context.Background(), nop)
	assert.Same(t, nop, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestErrField(t *testing.T) {
	assert.Nil(t, Err(nil).Value)
	assert.Equal(t, "boom", Err(errString("boom")).Value)
}

type errString string

func (e errString) Error() string { return string(e) }
