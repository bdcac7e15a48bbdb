package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSONWithFields(t *testing.T) {
	require.NoError(t, Init("debug", "json"))

	var buf bytes.Buffer
	SetOutput(&buf)

	WithFields(map[string]interface{}{"session_id": "s1"}).Info("transcript archived")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "s1", entry["session_id"])
	assert.Equal(t, "transcript archived", entry["msg"])
	assert.Equal(t, "info", entry["level"])
}

func TestInitUnknownLevelFallsBackToInfo(t *testing.T) {
	require.NoError(t, Init("verbose", "text"))

	var buf bytes.Buffer
	SetOutput(&buf)

	Debugf("hidden %d", 1)
	assert.Empty(t, buf.String())

	Infof("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
}
