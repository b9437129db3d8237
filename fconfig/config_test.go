package fconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"), nil)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facet.toml")
	content := `
[diff]
similarity_threshold = 0.75
min_height = 2

[log]
level = "debug"
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.Equal(t, 0.75, cfg.Diff.SimilarityThreshold)
	require.Equal(t, 2, cfg.Diff.MinHeight)
	require.Equal(t, LogFormatJSON, cfg.Log.Format)
}

func TestLoadRejectsInvalidThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "facet.toml")
	require.NoError(t, os.WriteFile(path, []byte("[diff]\nsimilarity_threshold = 2.0\n"), 0o644))

	_, err := Load(path, nil)
	require.Error(t, err)
}

func TestOverridesTakePrecedence(t *testing.T) {
	cfg, err := Load("", &Config{Deser: DeserConfig{DenyUnknownFieldsDefault: true}})
	require.NoError(t, err)
	require.True(t, cfg.Deser.DenyUnknownFieldsDefault)
}
