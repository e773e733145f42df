package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// LoadUserConfig reads a config file, creating a commented default at the
// path on first run.
func LoadUserConfig(path string) (*UserConfig, error) {
	if !FileExists(path) {
		if err := writeDefaultUserConfig(path); err != nil {
			return nil, fmt.Errorf("failed to create config: %w", err)
		}
		return DefaultUserConfig(), nil
	}

	cfg := &UserConfig{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// SaveUserConfig writes the configuration back to disk (0600 - provider
// settings are user-private).
func SaveUserConfig(path string, cfg *UserConfig) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config for writing: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

func writeDefaultUserConfig(path string) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(GenerateUserConfigTemplate()), 0600)
}
