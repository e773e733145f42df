package provider

import (
	"errors"
	"fmt"

	"polychat/config"
	"polychat/model"
)

// Precondition failures surfaced before any network dispatch. Callers match
// with errors.Is to distinguish misconfiguration from transport errors.
var (
	ErrProviderDisabled  = errors.New("provider is not enabled")
	ErrModelMissing      = errors.New("no model configured")
	ErrCredentialMissing = errors.New("no API key configured")
)

// ValidatePlatform checks that a resolved platform is dispatchable. Ollama
// talks to a local daemon and needs no credential; every remote backend does.
func ValidatePlatform(p config.Platform) error {
	if !p.Enabled {
		return fmt.Errorf("%s: %w", p.Type, ErrProviderDisabled)
	}
	if p.Model == "" {
		return fmt.Errorf("%s: %w", p.Type, ErrModelMissing)
	}
	if p.APIKey == "" && requiresCredential(p.Type) {
		return fmt.Errorf("%s: %w", p.Type, ErrCredentialMissing)
	}
	return nil
}

func requiresCredential(t model.ProviderType) bool {
	return t != model.ProviderOllama
}
