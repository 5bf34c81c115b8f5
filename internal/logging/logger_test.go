package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/crowdfund-backend/internal/logging"
)

func TestJSONLoggerAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, "json", slog.LevelInfo).WithComponent("ledger")

	logger.Info("pledge accepted", logging.Campaign("c1"), logging.Amount(600), logging.Err(errors.New("boom")))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ledger", entry["component"])
	assert.Equal(t, "c1", entry["campaign"])
	assert.Equal(t, float64(600), entry["lamports"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, "text", slog.LevelWarn)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNopLogger(t *testing.T) {
	logger := logging.NewNopLogger()
	assert.NotPanics(t, func() { logger.With("k", "v").Error("ignored") })
}
