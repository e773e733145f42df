package config

import (
	"os"
	"path/filepath"
	"testing"

	"polychat/model"
)

func TestLoadUserConfigCreatesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadUserConfig(path)
	if err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	if len(cfg.Providers) != len(model.AllProviders()) {
		t.Errorf("default config has %d providers, want %d", len(cfg.Providers), len(model.AllProviders()))
	}
	if !FileExists(path) {
		t.Fatal("template file was not written")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	// The written template must itself parse.
	parsed, err := LoadUserConfig(path)
	if err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	for _, p := range parsed.Providers {
		if p.Enabled {
			t.Errorf("provider %s enabled by default", p.ID)
		}
	}
}

func TestSaveUserConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	temp := 0.7

	original := &UserConfig{
		LogLevel: "debug",
		Providers: []PlatformConfig{
			{ID: "openai", Enabled: true, Model: "gpt-4o", Temperature: &temp},
			{ID: "ollama", BaseURL: "http://10.0.0.5:11434"},
		},
	}

	if err := SaveUserConfig(path, original); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := LoadUserConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.LogLevel != "debug" {
		t.Errorf("log level = %q", loaded.LogLevel)
	}
	if len(loaded.Providers) != 2 {
		t.Fatalf("loaded %d providers, want 2", len(loaded.Providers))
	}
	if !loaded.Providers[0].Enabled || loaded.Providers[0].Model != "gpt-4o" {
		t.Errorf("openai record = %+v", loaded.Providers[0])
	}
	if loaded.Providers[0].Temperature == nil || *loaded.Providers[0].Temperature != temp {
		t.Error("temperature did not round trip")
	}
	if loaded.Providers[1].Temperature != nil {
		t.Error("unset temperature must stay nil")
	}
}

func TestStoreResolvesDefaults(t *testing.T) {
	store := NewStore(t.TempDir(), &UserConfig{
		Providers: []PlatformConfig{
			{ID: "anthropic", Enabled: true, Model: "claude-3-5-sonnet-20240620"},
		},
	}, nil)

	p := store.Platform(model.ProviderAnthropic)
	if !p.Enabled {
		t.Error("anthropic should be enabled")
	}
	if p.BaseURL != AnthropicBaseURL {
		t.Errorf("base URL = %q, want default", p.BaseURL)
	}
	if p.SystemPrompt != DefaultPrompt {
		t.Errorf("system prompt = %q, want default", p.SystemPrompt)
	}

	openai := store.Platform(model.ProviderOpenAI)
	if openai.Enabled {
		t.Error("unconfigured provider must resolve disabled")
	}
	if openai.SystemPrompt != OpenAIPrompt {
		t.Errorf("openai system prompt = %q", openai.SystemPrompt)
	}

	enabled := store.EnabledProviders()
	if len(enabled) != 1 || enabled[0] != model.ProviderAnthropic {
		t.Errorf("enabled = %v, want [anthropic]", enabled)
	}
}

func TestStoreConfigOverridesDefaults(t *testing.T) {
	store := NewStore(t.TempDir(), &UserConfig{
		Providers: []PlatformConfig{
			{ID: "openai", Enabled: true, BaseURL: "http://proxy:8080/v1", SystemPrompt: "Be terse."},
		},
	}, nil)

	p := store.Platform(model.ProviderOpenAI)
	if p.BaseURL != "http://proxy:8080/v1" {
		t.Errorf("base URL = %q", p.BaseURL)
	}
	if p.SystemPrompt != "Be terse." {
		t.Errorf("system prompt = %q", p.SystemPrompt)
	}
}

func TestCredentialEnvOverride(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	creds := NewCredentialStore(CredentialPlainText)
	creds.Set(model.ProviderOpenAI, "sk-stored")

	if got := creds.Resolve(model.ProviderOpenAI); got != "sk-from-env" {
		t.Errorf("resolved %q, want env value", got)
	}

	t.Setenv("OPENAI_API_KEY", "")
	if got := creds.Resolve(model.ProviderOpenAI); got != "sk-stored" {
		t.Errorf("resolved %q, want stored value", got)
	}
}

func TestCredentialStorePlainTextRoundTrip(t *testing.T) {
	dir := t.TempDir()

	creds := NewCredentialStore(CredentialPlainText)
	creds.Set(model.ProviderOpenAI, "sk-openai")
	creds.Set(model.ProviderGoogle, "sk-google")
	if err := creds.Save(dir); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "credentials.json"))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("credentials file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded := NewCredentialStore(CredentialPlainText)
	if err := loaded.Load(dir); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Get(model.ProviderOpenAI) != "sk-openai" {
		t.Error("openai credential did not round trip")
	}
	if loaded.Get(model.ProviderGoogle) != "sk-google" {
		t.Error("google credential did not round trip")
	}
}

func TestCredentialStoreEncryptedRoundTrip(t *testing.T) {
	dir := t.TempDir()

	creds := NewCredentialStore(CredentialPassphrase)
	creds.SetPassphrase("correct horse")
	creds.Set(model.ProviderAnthropic, "sk-ant")
	if err := creds.Save(dir); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded := NewCredentialStore(CredentialPassphrase)
	loaded.SetPassphrase("correct horse")
	if err := loaded.Load(dir); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Get(model.ProviderAnthropic) != "sk-ant" {
		t.Error("credential did not survive encryption round trip")
	}

	wrong := NewCredentialStore(CredentialPassphrase)
	wrong.SetPassphrase("battery staple")
	if err := wrong.Load(dir); err == nil {
		t.Error("expected error with wrong passphrase")
	}
}

func TestCredentialStoreMissingFile(t *testing.T) {
	creds := NewCredentialStore(CredentialPlainText)
	if err := creds.Load(t.TempDir()); err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if creds.Get(model.ProviderOpenAI) != "" {
		t.Error("store should start empty")
	}
}
