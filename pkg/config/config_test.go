package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "dtk.yaml")
	content := `
substrate:
  kind: local
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 32, cfg.Rendezvous.MaxLeafSize)
	assert.Equal(t, 1e-6, cfg.Location.GeometricTolerance)
	assert.Equal(t, "rank-ascending", cfg.Location.TieBreak)
	assert.Equal(t, "local", cfg.Substrate.Kind)
}

func TestLoad_CustomValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "dtk.yaml")
	content := `
rendezvous:
  max_leaf_size: 64
location:
  geometric_tolerance: 1e-9
  tie_break: rank-descending
substrate:
  kind: grpc
  rank: 1
  peers:
    - "127.0.0.1:9001"
    - "127.0.0.1:9002"
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Rendezvous.MaxLeafSize)
	assert.Equal(t, 1e-9, cfg.Location.GeometricTolerance)
	assert.Equal(t, "rank-descending", cfg.Location.TieBreak)
	assert.True(t, cfg.TieBreakDescending())
	assert.Equal(t, "grpc", cfg.Substrate.Kind)
	assert.Equal(t, 1, cfg.Substrate.Rank)
	assert.Len(t, cfg.Substrate.Peers, 2)
}

func TestValidate_RejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "non-positive max leaf size", yaml: "rendezvous:\n  max_leaf_size: 0\n"},
		{name: "negative tolerance", yaml: "location:\n  geometric_tolerance: -1\n"},
		{name: "unknown tie-break", yaml: "location:\n  tie_break: first-come\n"},
		{name: "unknown substrate kind", yaml: "substrate:\n  kind: carrier-pigeon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromReader("yaml", []byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Rendezvous.MaxLeafSize)
}
