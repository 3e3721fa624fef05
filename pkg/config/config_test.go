package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamryczkowski/cachemanager/pkg/config"
)

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "cachemanager-node-1", cfg.Node.ID)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ParsesYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cachemanager.yaml")
	yaml := `
node:
  id: test-node
  data_dir: /tmp/test-cache
metastore:
  backend: memory
objstore:
  backend: local
  dir: /tmp/test-cache/objects
cache:
  reserved_free_space: 1024
  cost_of_minute_compute_rel_to_cost_of_1gb: 30
  half_life_of_accesses: 168h
  min_utility_to_keep: 0.1
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-node", cfg.Node.ID)
	assert.Equal(t, "memory", cfg.MetaStore.Backend)
	assert.Equal(t, int64(1024), cfg.Cache.ReservedFreeSpace)

	itemCfg, err := cfg.Cache.ToCacheItemConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.1, itemCfg.MinUtilityToKeep)
}

func TestConfig_ValidateRejectsUnknownBackend(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.MetaStore.Backend = "mongodb"
	assert.Error(t, cfg.Validate())
}

func TestConfig_ValidateRejectsBadCacheConfig(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Cache.ReservedFreeSpace = -1
	assert.Error(t, cfg.Validate())
}
