package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel("INFO")
		SetFormat("text")
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("WARN")

	Info("hidden %d", 1)
	Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 2")
}

func TestSetLevel_IgnoresUnknown(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("debug")
	SetLevel("verbose")

	Debug("still debug")
	assert.Contains(t, buf.String(), "[DEBUG] still debug")
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("json")

	Error("disk %s", "gone")

	var line map[string]string
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line))
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "disk gone", line["msg"])
}

func TestSetOutputPath_File(t *testing.T) {
	t.Cleanup(func() { SetOutput(os.Stdout) })

	path := t.TempDir() + "/out.log"
	closer, err := SetOutputPath(path)
	require.NoError(t, err)

	Info("to file")
	require.NoError(t, closer.Close())
	SetOutput(os.Stdout)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] to file")
}
