package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_PassValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFileUsesDefaultsAndEnv(t *testing.T) {
	t.Setenv("ANNLITE_INDEX_M", "32")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Index.M)
	assert.Equal(t, Defaults().Storage.Backend, cfg.Storage.Backend)
}

func TestLoad_YAMLOverlayThenEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "annlite.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index:\n  kind: flat\n  m: 8\nstorage:\n  backend: badger\n"), 0o644))

	t.Setenv("ANNLITE_INDEX_M", "64")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "flat", cfg.Index.Kind)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, 64, cfg.Index.M, "env var must win over file value")
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Backend = "nope"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownIndexKind(t *testing.T) {
	cfg := Defaults()
	cfg.Index.Kind = "nope"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsZeroBlockSize(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.BlockSize = 0
	assert.Error(t, cfg.Validate())
}

func TestParseMemorySize(t *testing.T) {
	assert.EqualValues(t, 0, parseMemorySize("0"))
	assert.EqualValues(t, 0, parseMemorySize("unlimited"))
	assert.EqualValues(t, 1024, parseMemorySize("1KB"))
	assert.EqualValues(t, 2*1024*1024, parseMemorySize("2MB"))
	assert.EqualValues(t, 3*1024*1024*1024, parseMemorySize("3GB"))
}

func TestRuntimeConfig_ApplyRuntimeMemoryDoesNotPanic(t *testing.T) {
	rc := RuntimeConfig{MemoryLimitStr: "128MB", GCPercent: 50}
	assert.NotPanics(t, func() { rc.ApplyRuntimeMemory() })
}
