package gotensor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gotensor"
)

// ============================================================
// Config tests
// ============================================================

func TestParseConfig_KeepsDefaults(t *testing.T) {
	cfg, err := gotensor.ParseConfig([]byte(`
mapping:
  strict_self_contraction: true
parallel:
  workers: 3
`))
	require.NoError(t, err)
	assert.True(t, cfg.Mapping.StrictSelfContraction)
	assert.Equal(t, 3, cfg.Parallel.Workers)
	assert.Equal(t, gotensor.DefaultConfig().Parallel.Threshold, cfg.Parallel.Threshold)
	assert.Equal(t, 5040, cfg.Symmetry.MaxGroupOrder)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestParseConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"workers":   "parallel:\n  workers: 0\n",
		"threshold": "parallel:\n  threshold: -1\n",
		"order":     "symmetry:\n  max_group_order: 0\n",
		"level":     "log:\n  level: loud\n",
		"format":    "log:\n  format: xml\n",
		"syntax":    "mapping: [\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := gotensor.ParseConfig([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "gotensor.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"log": {"level": "debug", "format": "json"}}`), 0o600))
	cfg, err := gotensor.LoadConfig(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 5040, cfg.Symmetry.MaxGroupOrder)

	yamlPath := filepath.Join(dir, "gotensor.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("symmetry:\n  max_group_order: 24\n"), 0o600))
	cfg, err = gotensor.LoadConfig(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.Symmetry.MaxGroupOrder)

	_, err = gotensor.LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestNewEngine_RejectsInvalidConfig(t *testing.T) {
	cfg := gotensor.DefaultConfig()
	cfg.Parallel.Workers = 0
	_, err := gotensor.NewEngine(cfg)
	assert.Error(t, err)
	assert.Panics(t, func() { gotensor.MustEngine(cfg) })
}
