package logger_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventml/pkg/logger"
)

func TestNew_WritesRunLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := logger.New("debug", dir)
	require.NoError(t, err)
	log.Debug("stage done")
	_ = log.Sync()

	raw, err := os.ReadFile(filepath.Join(dir, logger.FileName))
	require.NoError(t, err)
	line := strings.TrimSpace(string(raw))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "stage done", entry["msg"])
	assert.Contains(t, entry, "time")
}

func TestNew_LevelFilter(t *testing.T) {
	dir := t.TempDir()
	log, err := logger.New("warn", dir)
	require.NoError(t, err)
	log.Info("hidden")
	_ = log.Sync()

	raw, err := os.ReadFile(filepath.Join(dir, logger.FileName))
	require.NoError(t, err)
	assert.Empty(t, raw)
}
