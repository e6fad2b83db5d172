package logger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLoggerGetLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notification.log")
	l := NewIsolatedLogger(path)

	l.Info("SessionTimer", "session started", map[string]interface{}{"subject_id": "p1"})
	l.Warn("TabManager", "switch rejected", nil)
	l.Error("Dispatcher", "analysis failed", map[string]interface{}{"error": errors.New("boom")})
	l.Debug("Dispatcher", "below file level", nil)
	require.NoError(t, l.Sync())

	all, err := l.GetLogs("", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "analysis failed", all[0].Message)
	assert.Equal(t, "Dispatcher", all[0].Module)
	assert.Equal(t, "boom", all[0].Details["error"])
	assert.NotEmpty(t, all[0].Id)

	warns, err := l.GetLogs("WARN", 10, 0)
	require.NoError(t, err)
	require.Len(t, warns, 1)
	assert.Equal(t, "switch rejected", warns[0].Message)

	page, err := l.GetLogs("", 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "session started", page[0].Message)
}

func TestGetLogsMissingFile(t *testing.T) {
	l := &ZapLogger{filePath: filepath.Join(t.TempDir(), "absent.log")}
	logs, err := l.GetLogs("", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Info("x", "y", nil)
	logs, err := l.GetLogs("", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
}
