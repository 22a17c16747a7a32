package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	Info("Test log.Info", "value", 10)
	Infof("Test log.Infof %d", 10)
	Debugf("Test log.Debugf %d", 10)
	Warnf("Test log.Warnf %d", 10)
	Infow("Test log.Infow", "value", 10)
	Debugw("Test log.Debugw", "value", 10)
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init("chatty", ""))
}

func TestErrorsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.log")
	require.NoError(t, Init("debug", path))
	defer func() { require.NoError(t, Init("info", "")) }()

	Error("first failure")
	Errorf("second failure %d", 2)
	Errorw("third failure", "script", "w.js")
	Info("not an error")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(b)
	assert.Contains(t, content, "first failure")
	assert.Contains(t, content, "second failure 2")
	assert.Contains(t, content, "third failure")
	assert.Contains(t, content, "w.js")
	assert.NotContains(t, content, "not an error")
}
