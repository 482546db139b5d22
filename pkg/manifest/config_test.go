package manifest

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modpack-run/modsync/pkg/errors"
)

func TestParseBuildConfig(t *testing.T) {
	fs = afero.NewMemMapFs()
	doc := `name: My Modpack
version: 2.1.0
categories:
  - name: mods
    root: /repo/mods
    extensions: [".jar"]
    prune: true
    baseURL: https://example.com/mods/
  - name: configs
    root: /repo/config
    recursive: true
    prune: true
`
	require.NoError(t, afero.WriteFile(fs, "/repo/modsync.yaml", []byte(doc), 0644))

	cfg, err := ParseBuildConfig("/repo/modsync.yaml")
	require.NoError(t, err)

	assert.Equal(t, "My Modpack", cfg.Name)
	assert.Equal(t, "2.1.0", cfg.Version)
	require.Len(t, cfg.Categories, 2)
	assert.Equal(t, []string{".jar"}, cfg.Categories[0].Extensions)
	assert.True(t, cfg.Categories[1].Recursive)
}

func TestParseBuildConfigDefaultCategories(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/modsync.yaml",
		[]byte("name: My Modpack\nversion: 1.0.0\n"), 0644))

	cfg, err := ParseBuildConfig("/repo/modsync.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultBuildConfig().Categories, cfg.Categories)
}

func TestParseBuildConfigMissing(t *testing.T) {
	fs = afero.NewMemMapFs()

	_, err := ParseBuildConfig("/repo/modsync.yaml")
	require.Error(t, err)
	_, ok := errors.RootCause(err).(errors.FileNotFound)
	assert.True(t, ok, "expected FileNotFound, got %v", err)
}

func TestParseBuildConfigExtraFields(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/modsync.yaml",
		[]byte("name: My Modpack\nnotAField: true\n"), 0644))

	_, err := ParseBuildConfig("/repo/modsync.yaml")
	assert.Error(t, err)
}
