// Package catalog discovers which models each provider currently offers.
//
// Listings are fetched on explicit refresh, never implicitly, and come back
// as an immutable snapshot: callers keep whatever snapshot they hold while a
// newer refresh runs. Google has no listing endpoint polychat can use with a
// bare API key, so its entry is a curated list.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
	openaioption "github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"polychat/config"
	"polychat/model"
)

// googleModels is the curated Gemini model list.
var googleModels = []string{
	"gemini-1.5-pro-latest",
	"gemini-1.5-flash-latest",
	"gemini-1.0-pro",
}

// ModelInfo describes one available model.
type ModelInfo struct {
	Name     string
	Provider model.ProviderType
	Size     int64
}

// Snapshot is one refresh result. Listings holds the discovered models per
// provider; Errors holds per-provider fetch failures. A provider that failed
// keeps no stale entry in Listings.
type Snapshot struct {
	Listings map[model.ProviderType][]ModelInfo
	Errors   map[model.ProviderType]error
}

// Models returns the discovered models for one provider.
func (s Snapshot) Models(t model.ProviderType) []ModelInfo {
	return s.Listings[t]
}

// PlatformSource resolves provider runtime configuration.
type PlatformSource interface {
	Platform(t model.ProviderType) config.Platform
}

// Service fetches model listings for enabled providers.
type Service struct {
	settings PlatformSource
	log      *zap.Logger
}

// NewService creates a catalog service.
func NewService(settings PlatformSource, log *zap.Logger) *Service {
	return &Service{settings: settings, log: log}
}

// Refresh fetches every enabled provider's listing concurrently and returns
// the combined snapshot. Individual provider failures land in the snapshot's
// Errors map; Refresh itself only fails on a cancelled context.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		Listings: make(map[model.ProviderType][]ModelInfo),
		Errors:   make(map[model.ProviderType]error),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, t := range model.AllProviders() {
		platform := s.settings.Platform(t)
		if !platform.Enabled {
			continue
		}

		wg.Add(1)
		go func(t model.ProviderType, platform config.Platform) {
			defer wg.Done()
			models, err := s.fetch(ctx, t, platform)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				snap.Errors[t] = err
				s.log.Warn("model listing failed",
					zap.String("provider", string(t)),
					zap.Error(err))
				return
			}
			snap.Listings[t] = models
		}(t, platform)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return snap, err
	}
	return snap, nil
}

func (s *Service) fetch(ctx context.Context, t model.ProviderType, platform config.Platform) ([]ModelInfo, error) {
	switch t {
	case model.ProviderOpenAI:
		return fetchOpenAIModels(ctx, platform)
	case model.ProviderAnthropic:
		return fetchAnthropicModels(ctx, platform)
	case model.ProviderGoogle:
		return curatedGoogleModels(), nil
	case model.ProviderOllama:
		return fetchOllamaModels(ctx, platform)
	default:
		return nil, fmt.Errorf("unknown provider: %s", t)
	}
}

func fetchOpenAIModels(ctx context.Context, platform config.Platform) ([]ModelInfo, error) {
	client := openai.NewClient(
		openaioption.WithBaseURL(platform.BaseURL),
		openaioption.WithAPIKey(platform.APIKey),
	)

	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OpenAI models: %w", err)
	}

	models := make([]ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, ModelInfo{Name: m.ID, Provider: model.ProviderOpenAI})
	}
	return models, nil
}

func fetchAnthropicModels(ctx context.Context, platform config.Platform) ([]ModelInfo, error) {
	client := anthropic.NewClient(
		anthropicoption.WithBaseURL(platform.BaseURL),
		anthropicoption.WithAPIKey(platform.APIKey),
	)

	page, err := client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list Anthropic models: %w", err)
	}

	models := make([]ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, ModelInfo{Name: string(m.ID), Provider: model.ProviderAnthropic})
	}
	return models, nil
}

func curatedGoogleModels() []ModelInfo {
	models := make([]ModelInfo, 0, len(googleModels))
	for _, name := range googleModels {
		models = append(models, ModelInfo{Name: name, Provider: model.ProviderGoogle})
	}
	return models
}

func fetchOllamaModels(ctx context.Context, platform config.Platform) ([]ModelInfo, error) {
	baseURL, err := url.Parse(platform.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}
	client := api.NewClient(baseURL, http.DefaultClient)

	resp, err := client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list Ollama models: %w", err)
	}

	models := make([]ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, ModelInfo{Name: m.Name, Provider: model.ProviderOllama, Size: m.Size})
	}
	return models, nil
}
