package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerJSONCarriesServiceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "staging", LogFormat: "json"})
	logger.Info("posted", "journal_entry_id", 7)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "odyssey-gl", record["service"])
	require.Equal(t, "staging", record["env"])
	require.Equal(t, float64(7), record["journal_entry_id"])
}

func TestLoggerProductionDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "production"})
	logger.Debug("noisy")
	require.Zero(t, buf.Len())
	logger.Info("kept")
	require.Contains(t, buf.String(), "kept")
}
