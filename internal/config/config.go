package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	OutputDir   string        `yaml:"output_dir"`
	Mode        string        `yaml:"mode"`
	TemplateDir string        `yaml:"template_dir"`
	History     HistoryConfig `yaml:"history"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

func DefaultConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".scaffold"
	}
	return filepath.Join(homeDir, ".scaffold")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultConfig is the configuration used when no file exists. History is
// off so that a bare run writes nothing outside the generated tree.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:   ".",
		Mode:        "overwrite",
		TemplateDir: filepath.Join(DefaultConfigDir(), "templates"),
		History: HistoryConfig{
			Enabled: false,
			Path:    filepath.Join(DefaultConfigDir(), "history.db"),
		},
	}
}

// LoadConfig reads configPath, or the default location when it is empty.
// A missing file yields the defaults; fields left out of the file keep their
// default values.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.Mode == "" {
		cfg.Mode = "overwrite"
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(DefaultConfigDir(), "history.db")
	}

	return cfg, nil
}

// WriteDefaultConfig writes the defaults to configPath unless a file is
// already there. The written file turns run history on.
func WriteDefaultConfig(configPath string) error {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	cfg := DefaultConfig()
	cfg.History.Enabled = true
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}
