package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaults(t *testing.T) {
	cfg, err := FromVars(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 30.0, cfg.TextCPS)
}

func TestLoadLayersFilesThenEnvironment(t *testing.T) {
	base := writeEnv(t, "TMO_WIDTH=1280\nTMO_HEIGHT=720\nTMO_TITLE=\"From file\"\n")
	local := writeEnv(t, "TMO_HEIGHT=800\nTMO_DEBUG=true\n")
	t.Setenv("TMO_TITLE", "From env")
	t.Setenv("TMO_TEXT_CPS", "0")

	cfg, err := Load(base, filepath.Join(t.TempDir(), "missing.env"), local)
	require.NoError(t, err)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 800, cfg.Height)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "From env", cfg.Title)
	assert.Equal(t, 30.0, cfg.TextCPS, "zero is empty and keeps the default")
	assert.Equal(t, 60, cfg.TPS)
	assert.Equal(t, "intro", cfg.Cutscene)
}

func TestInvalidValuesNameTheVariable(t *testing.T) {
	_, err := FromVars(map[string]string{"TMO_WIDTH": "wide", "TMO_DEBUG": "maybe"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "TMO_WIDTH")
	assert.ErrorContains(t, err, "TMO_DEBUG")

	_, err = FromVars(map[string]string{"TMO_TPS": "-5"})
	assert.ErrorContains(t, err, "TMO_TPS")
}
