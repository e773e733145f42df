// Package config is the settings store for polychat.
//
// Configuration lives in a TOML file (~/.config/polychat/config.toml) holding
// one [[providers]] record per backend, while API credentials live in a
// separate 0600 file under the data directory, optionally encrypted with a
// passphrase. The Store resolves both into runtime Platform records; the
// chat engine only ever reads resolved Platforms and never writes settings.
package config

import (
	"fmt"
	"os"
	"sync"

	"polychat/model"
)

// PlatformConfig is the serialized [[providers]] record for one backend.
// Temperature and TopP are pointers so that "not configured" is distinct
// from zero; unset sampling parameters are omitted from wire requests.
type PlatformConfig struct {
	ID           string   `toml:"id"`
	Enabled      bool     `toml:"enabled"`
	BaseURL      string   `toml:"base_url,omitempty"`
	Model        string   `toml:"model,omitempty"`
	Temperature  *float64 `toml:"temperature,omitempty"`
	TopP         *float64 `toml:"top_p,omitempty"`
	SystemPrompt string   `toml:"system_prompt,omitempty"`
}

// UserConfig is the on-disk configuration file.
type UserConfig struct {
	DataDirectory string           `toml:"data_directory,omitempty"`
	LogLevel      string           `toml:"log_level,omitempty"`
	Providers     []PlatformConfig `toml:"providers"`
}

// Platform is one backend's fully resolved runtime configuration: defaults
// applied, credential attached. Adapters require a resolved Platform and do
// not consult the store themselves.
type Platform struct {
	Type         model.ProviderType
	Enabled      bool
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  *float64
	TopP         *float64
	SystemPrompt string
}

// Store combines the user configuration and the credential store behind a
// read-mostly interface.
type Store struct {
	dataDir string

	mu    sync.RWMutex
	user  *UserConfig
	creds *CredentialStore
}

// Load reads the configuration and credential files, creating both with
// defaults on first run.
func Load() (*Store, error) {
	user, err := LoadUserConfig(GetConfigFilePath())
	if err != nil {
		return nil, err
	}

	dataDir := ExpandPath(user.DataDirectory)
	if dataDir == "" {
		dataDir = GetDefaultDataDir()
	}
	if dir := os.Getenv("POLYCHAT_DATA_DIR"); dir != "" {
		dataDir = ExpandPath(dir)
	}
	if err := EnsureDir(dataDir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	creds := NewCredentialStore(credentialMethodFromEnv())
	if err := creds.Load(dataDir); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	return &Store{dataDir: dataDir, user: user, creds: creds}, nil
}

// NewStore builds a store from in-memory parts. Used by tests and by callers
// that manage file locations themselves.
func NewStore(dataDir string, user *UserConfig, creds *CredentialStore) *Store {
	if creds == nil {
		creds = NewCredentialStore(CredentialPlainText)
	}
	return &Store{dataDir: dataDir, user: user, creds: creds}
}

// DataDir returns the resolved data directory.
func (s *Store) DataDir() string { return s.dataDir }

// LogLevel returns the configured log level, defaulting to "info".
func (s *Store) LogLevel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user.LogLevel == "" {
		return "info"
	}
	return s.user.LogLevel
}

// Platforms resolves every supported provider into a Platform record,
// applying base URL and system prompt defaults and attaching credentials.
// Providers missing from the config file come back disabled.
func (s *Store) Platforms() []Platform {
	s.mu.RLock()
	defer s.mu.RUnlock()

	platforms := make([]Platform, 0, len(model.AllProviders()))
	for _, t := range model.AllProviders() {
		platforms = append(platforms, s.resolve(t))
	}
	return platforms
}

// Platform resolves a single provider's configuration.
func (s *Store) Platform(t model.ProviderType) Platform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolve(t)
}

// EnabledProviders returns the providers currently enabled in settings.
func (s *Store) EnabledProviders() []model.ProviderType {
	var enabled []model.ProviderType
	for _, p := range s.Platforms() {
		if p.Enabled {
			enabled = append(enabled, p.Type)
		}
	}
	return enabled
}

func (s *Store) resolve(t model.ProviderType) Platform {
	platform := Platform{
		Type:         t,
		BaseURL:      DefaultBaseURL(t),
		SystemPrompt: DefaultSystemPrompt(t),
		APIKey:       s.creds.Resolve(t),
	}

	for _, pc := range s.user.Providers {
		if pc.ID != string(t) {
			continue
		}
		platform.Enabled = pc.Enabled
		platform.Model = pc.Model
		platform.Temperature = pc.Temperature
		platform.TopP = pc.TopP
		if pc.BaseURL != "" {
			platform.BaseURL = pc.BaseURL
		}
		if pc.SystemPrompt != "" {
			platform.SystemPrompt = pc.SystemPrompt
		}
		break
	}

	return platform
}

// UpdateProvider updates a single provider configuration field and persists
// the config file. Credential updates go through the credential store and do
// not rewrite the config file.
//
// Fields: "enabled", "base_url", "model", "system_prompt", "apikey".
func (s *Store) UpdateProvider(t model.ProviderType, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if field == "apikey" {
		if err := s.creds.Set(t, value); err != nil {
			return err
		}
		return s.creds.Save(s.dataDir)
	}

	pc := s.findOrAddProvider(t)
	switch field {
	case "enabled":
		pc.Enabled = value == "true"
	case "base_url":
		pc.BaseURL = value
	case "model":
		pc.Model = value
	case "system_prompt":
		pc.SystemPrompt = value
	default:
		return fmt.Errorf("unknown field for %s: %s", t, field)
	}

	return SaveUserConfig(GetConfigFilePath(), s.user)
}

func (s *Store) findOrAddProvider(t model.ProviderType) *PlatformConfig {
	for i := range s.user.Providers {
		if s.user.Providers[i].ID == string(t) {
			return &s.user.Providers[i]
		}
	}
	s.user.Providers = append(s.user.Providers, PlatformConfig{
		ID:      string(t),
		BaseURL: DefaultBaseURL(t),
	})
	return &s.user.Providers[len(s.user.Providers)-1]
}

func credentialMethodFromEnv() CredentialMethod {
	if os.Getenv("POLYCHAT_PASSPHRASE") != "" {
		return CredentialPassphrase
	}
	return CredentialPlainText
}
