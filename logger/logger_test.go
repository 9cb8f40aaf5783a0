package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-planner/logger"
)

func TestInit_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	require.NoError(t, logger.Init(logger.Config{Dir: dir}))
	require.NotNil(t, logger.Logger)
	assert.Equal(t, log.InfoLevel, logger.Logger.GetLevel())

	logger.Info("run finished", "command", "conflicts", "conflicts", 3)
	logger.Warn("employee skipped", "employee", "e9")

	data, err := os.ReadFile(filepath.Join(dir, "planner.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "run finished")
	assert.Contains(t, string(data), "employee=e9")
}

func TestInit_Debug(t *testing.T) {
	require.NoError(t, logger.Init(logger.Config{Debug: true, Dir: t.TempDir()}))
	assert.Equal(t, log.DebugLevel, logger.Logger.GetLevel())
	logger.Debug("debug message")
}

func TestInit_StderrOnly(t *testing.T) {
	require.NoError(t, logger.Init(logger.Config{}))
	assert.Equal(t, log.WarnLevel, logger.Logger.GetLevel())
}

func TestLogFunctionsWithoutInit(t *testing.T) {
	logger.Logger = nil

	assert.NotPanics(t, func() {
		logger.Debug("Test debug message")
		logger.Info("Test info message")
		logger.Warn("Test warning message")
		logger.Error("Test error message")
	})
}
