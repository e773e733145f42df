package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"polychat/model"
)

// CredentialMethod defines how API keys are stored on disk.
type CredentialMethod string

const (
	CredentialPlainText  CredentialMethod = "plaintext"
	CredentialPassphrase CredentialMethod = "passphrase"
)

const (
	plainCredentialsFile     = "credentials.json"
	encryptedCredentialsFile = "credentials.enc"
)

// envKeys maps providers to the conventional environment variables that
// override stored credentials.
var envKeys = map[model.ProviderType]string{
	model.ProviderOpenAI:    "OPENAI_API_KEY",
	model.ProviderAnthropic: "ANTHROPIC_API_KEY",
	model.ProviderGoogle:    "GEMINI_API_KEY",
}

// CredentialStore manages per-provider API keys, kept out of the main config
// file so the config can be shared or versioned without leaking secrets.
type CredentialStore struct {
	method      CredentialMethod
	credentials map[string]string
	passphrase  string
}

// NewCredentialStore creates an empty store. For the passphrase method the
// passphrase is read from POLYCHAT_PASSPHRASE.
func NewCredentialStore(method CredentialMethod) *CredentialStore {
	return &CredentialStore{
		method:      method,
		credentials: make(map[string]string),
		passphrase:  os.Getenv("POLYCHAT_PASSPHRASE"),
	}
}

// SetPassphrase overrides the encryption passphrase.
func (c *CredentialStore) SetPassphrase(passphrase string) {
	c.passphrase = passphrase
}

// Get retrieves the stored credential for a provider.
func (c *CredentialStore) Get(t model.ProviderType) string {
	return c.credentials[string(t)]
}

// Resolve returns the effective credential for a provider: environment
// variable first, stored credential second.
func (c *CredentialStore) Resolve(t model.ProviderType) string {
	if env, ok := envKeys[t]; ok {
		if key := os.Getenv(env); key != "" {
			return key
		}
	}
	return c.credentials[string(t)]
}

// Set stores a credential for a provider.
func (c *CredentialStore) Set(t model.ProviderType, apiKey string) error {
	c.credentials[string(t)] = apiKey
	return nil
}

// Delete removes a provider's credential.
func (c *CredentialStore) Delete(t model.ProviderType) error {
	delete(c.credentials, string(t))
	return nil
}

// Load reads credentials from disk. A missing file is not an error: the
// store starts empty.
func (c *CredentialStore) Load(dataDir string) error {
	switch c.method {
	case CredentialPlainText:
		return c.loadPlainText(dataDir)
	case CredentialPassphrase:
		return c.loadEncrypted(dataDir)
	default:
		return fmt.Errorf("unknown credential method: %s", c.method)
	}
}

// Save writes credentials to disk with user-only permissions.
func (c *CredentialStore) Save(dataDir string) error {
	switch c.method {
	case CredentialPlainText:
		return c.savePlainText(dataDir)
	case CredentialPassphrase:
		return c.saveEncrypted(dataDir)
	default:
		return fmt.Errorf("unknown credential method: %s", c.method)
	}
}

func (c *CredentialStore) loadPlainText(dataDir string) error {
	path := filepath.Join(dataDir, plainCredentialsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read credentials file: %w", err)
	}

	if err := json.Unmarshal(data, &c.credentials); err != nil {
		return fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return nil
}

func (c *CredentialStore) savePlainText(dataDir string) error {
	data, err := json.MarshalIndent(c.credentials, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	path := filepath.Join(dataDir, plainCredentialsFile)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

func (c *CredentialStore) loadEncrypted(dataDir string) error {
	path := filepath.Join(dataDir, encryptedCredentialsFile)
	blob, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read credentials file: %w", err)
	}

	if c.passphrase == "" {
		return fmt.Errorf("credentials are encrypted - passphrase required")
	}

	data, err := DecryptWithPassphrase(blob, c.passphrase)
	if err != nil {
		return fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	if err := json.Unmarshal(data, &c.credentials); err != nil {
		return fmt.Errorf("failed to parse credentials: %w", err)
	}
	return nil
}

func (c *CredentialStore) saveEncrypted(dataDir string) error {
	if c.passphrase == "" {
		return fmt.Errorf("passphrase required to encrypt credentials")
	}

	data, err := json.Marshal(c.credentials)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	blob, err := EncryptWithPassphrase(data, c.passphrase)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	path := filepath.Join(dataDir, encryptedCredentialsFile)
	if err := os.WriteFile(path, blob, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}
