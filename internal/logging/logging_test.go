package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesToStdoutAndFile(t *testing.T) {
	var buf bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "holdem.log")
	lb, err := NewLogBackend(LogConfig{LogFile: logFile, DebugLevel: "debug", Stdout: &buf})
	require.NoError(t, err)

	log := lb.Logger("ROOM")
	require.Equal(t, log, lb.Logger("ROOM"))
	log.Debugf("hand %d dealt", 1)
	log.Tracef("not shown")
	require.NoError(t, lb.Close())

	require.Contains(t, buf.String(), "[DBG] ROOM: hand 1 dealt")
	require.NotContains(t, buf.String(), "not shown")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "hand 1 dealt")
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	lb, err := NewLogBackend(LogConfig{DebugLevel: "info", Stdout: &buf})
	require.NoError(t, err)

	log := lb.Logger("SRVR")
	log.Debugf("hidden")
	lb.SetLevel(slog.LevelDebug)
	log.Debugf("visible")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "visible")
}

func TestInvalidLevel(t *testing.T) {
	_, err := NewLogBackend(LogConfig{DebugLevel: "loud"})
	require.Error(t, err)
}

func TestNilBackendIsDisabled(t *testing.T) {
	var lb *LogBackend
	require.Equal(t, slog.Disabled, lb.Logger("X"))
	require.NoError(t, lb.Close())
}
