package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigDir(t *testing.T) {
	dir := DefaultConfigDir()
	assert.NotEmpty(t, dir)
	assert.Contains(t, dir, ".scaffold")
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, "config.yaml")
}

func TestLoadConfig_NotFound(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, "overwrite", cfg.Mode)
	assert.False(t, cfg.History.Enabled)
	assert.Contains(t, cfg.History.Path, "history.db")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644))

	_, err := LoadConfig(configPath)
	assert.Error(t, err)
}

func TestLoadConfig_Valid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
output_dir: /srv/projects
mode: skip
template_dir: /srv/templates
history:
  enabled: false
  path: /var/lib/scaffold/history.db
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "/srv/projects", cfg.OutputDir)
	assert.Equal(t, "skip", cfg.Mode)
	assert.Equal(t, "/srv/templates", cfg.TemplateDir)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "/var/lib/scaffold/history.db", cfg.History.Path)
}

func TestLoadConfig_PartialKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("mode: if-changed\n"), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "if-changed", cfg.Mode)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.False(t, cfg.History.Enabled)
}

func TestWriteDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, WriteDefaultConfig(configPath))
	assert.FileExists(t, configPath)

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	want := DefaultConfig()
	want.History.Enabled = true
	assert.Equal(t, want, cfg)
}

func TestWriteDefaultConfig_KeepsExisting(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("mode: skip\n"), 0644))

	require.NoError(t, WriteDefaultConfig(configPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "mode: skip\n", string(data))
}
