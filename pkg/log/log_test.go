package log

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultLoggerIsNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Infof("[Test] %d", 1)
		Warnf("[Test] %s", "warn")
		Error("[Test] failed", errors.New("boom"))
	})
}

func TestInitWritesJSONFile(t *testing.T) {
	t.Cleanup(func() { sugar = zap.NewNop().Sugar() })
	dir := t.TempDir()

	Init("warn", "json", dir)
	Infof("[SearchService] dropped %s", "info")
	Warnf("[SearchService] kept %s", "warn")
	Infow("[SearchService] dropped structured", "query", "nic")
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"[SearchService] kept warn"`)
	assert.NotContains(t, string(data), "dropped")
}
