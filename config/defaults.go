package config

import "polychat/model"

// Default API endpoints per provider.
const (
	OpenAIBaseURL    = "https://api.openai.com/v1"
	AnthropicBaseURL = "https://api.anthropic.com"
	GoogleBaseURL    = "https://generativelanguage.googleapis.com"
	OllamaBaseURL    = "http://localhost:11434"
)

// OpenAIPrompt is the default system prompt for OpenAI-protocol backends.
const OpenAIPrompt = "You are a helpful, clever, and very friendly assistant. " +
	"You are familiar with various languages in the world. " +
	"You are to answer my questions precisely. "

// DefaultPrompt is the fallback system prompt for every other backend.
const DefaultPrompt = "Your task is to answer my questions precisely."

// DefaultBaseURL returns the stock API endpoint for a provider.
func DefaultBaseURL(t model.ProviderType) string {
	switch t {
	case model.ProviderOpenAI:
		return OpenAIBaseURL
	case model.ProviderAnthropic:
		return AnthropicBaseURL
	case model.ProviderGoogle:
		return GoogleBaseURL
	case model.ProviderOllama:
		return OllamaBaseURL
	default:
		return ""
	}
}

// DefaultSystemPrompt returns the prompt used when the user configured none.
func DefaultSystemPrompt(t model.ProviderType) string {
	switch t {
	case model.ProviderOpenAI, model.ProviderOllama:
		return OpenAIPrompt
	default:
		return DefaultPrompt
	}
}

// DefaultUserConfig returns the configuration written on first run: every
// provider present but disabled, stock endpoints filled in.
func DefaultUserConfig() *UserConfig {
	cfg := &UserConfig{}
	for _, t := range model.AllProviders() {
		cfg.Providers = append(cfg.Providers, PlatformConfig{
			ID:      string(t),
			BaseURL: DefaultBaseURL(t),
		})
	}
	return cfg
}

// GenerateUserConfigTemplate renders the commented config file written on
// first run.
func GenerateUserConfigTemplate() string {
	return `# polychat configuration
# Location: ~/.config/polychat/config.toml
# This file uses TOML format: https://toml.io

# Directory where chat history and credentials are stored
# data_directory = "~/.local/share/polychat"

# Log level: debug, info, warn, error
# log_level = "info"

# One [[providers]] block per backend. API keys are NOT stored here; use
# the credentials file in the data directory or the standard environment
# variables (OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY).

[[providers]]
id = "openai"
enabled = false
base_url = "https://api.openai.com/v1"
model = "gpt-4o"
# temperature = 0.7
# top_p = 1.0
# system_prompt = ""

[[providers]]
id = "anthropic"
enabled = false
base_url = "https://api.anthropic.com"
model = "claude-3-5-sonnet-20240620"

[[providers]]
id = "google"
enabled = false
base_url = "https://generativelanguage.googleapis.com"
model = "gemini-1.5-pro-latest"

[[providers]]
id = "ollama"
enabled = false
base_url = "http://localhost:11434"
model = "llama3.1:latest"
`
}
