package logsvc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnyourwings/wings/core"
)

func TestNewZapLogger_OutputPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wings.log")
	conf := &core.Config{TestMode: true, AppName: "wings", Env: "TEST", Build: "abc"}

	local, err := NewZapLogger(conf, path)
	require.NoError(t, err)
	local.Info("hidden below warn level")
	local.Warnw("backend slow", "op", "tasks")
	_ = local.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"backend slow"`)
	assert.Contains(t, out, `"op":"tasks"`)
	assert.Contains(t, out, `"build":"abc"`)
	assert.NotContains(t, out, "hidden below warn level")
}
