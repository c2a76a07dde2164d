package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, parseLogLevel("DEBUG"))
	assert.Equal(t, log.WarnLevel, parseLogLevel("warn"))
	assert.Equal(t, log.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, log.InfoLevel, parseLogLevel("bogus"))
}

func TestConfigureToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "mesher.log")
	require.NoError(t, Configure("debug", logFile))
	defer func() { _ = Configure("info", "") }()

	Debug("feeding boundary", "elements", 12)
	Timing("importMesh", 1500*time.Millisecond)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "feeding boundary")
	assert.Contains(t, string(data), "elements=12")
	assert.Contains(t, string(data), "Time for importMesh")
	assert.Contains(t, string(data), "seconds=1.5")
}

func TestConfigureBadFile(t *testing.T) {
	err := Configure("info", filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}

func TestWithRun(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	WithRun("abc").Info("meshing")
	assert.Contains(t, buf.String(), "run=abc")
}
