package provider

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"polychat/config"
	"polychat/model"
)

// OllamaAdapter answers through a local Ollama daemon using the official
// client. The daemon call is made non-streaming and the complete answer is
// synthesized into the normalized chunk sequence, so local models behave like
// every other backend from the orchestrator's side.
type OllamaAdapter struct{}

// NewOllamaAdapter creates the Ollama adapter.
func NewOllamaAdapter() *OllamaAdapter { return &OllamaAdapter{} }

// Type implements Adapter.
func (a *OllamaAdapter) Type() model.ProviderType { return model.ProviderOllama }

// StreamAnswer implements Adapter.
func (a *OllamaAdapter) StreamAnswer(ctx context.Context, platform config.Platform, thread []model.Message, question model.Message) <-chan model.StreamChunk {
	return startStream(ctx, func(emit func(model.StreamChunk) bool) {
		if !emit(model.Start()) {
			return
		}

		baseURL, err := url.Parse(platform.BaseURL)
		if err != nil {
			emit(model.Fail("invalid Ollama URL: " + err.Error()))
			return
		}
		client := api.NewClient(baseURL, http.DefaultClient)

		stream := false
		req := &api.ChatRequest{
			Model:    platform.Model,
			Messages: a.buildMessages(platform, thread, question),
			Stream:   &stream,
			Options:  buildOllamaOptions(platform),
		}

		var answer string
		respFunc := func(resp api.ChatResponse) error {
			answer = resp.Message.Content
			return nil
		}

		if err := client.Chat(ctx, req, respFunc); err != nil {
			emit(model.Fail(err.Error()))
			return
		}

		if answer != "" && !emit(model.Delta(answer)) {
			return
		}
		emit(model.Done())
	})
}

func (a *OllamaAdapter) buildMessages(platform config.Platform, thread []model.Message, question model.Message) []api.Message {
	msgs := make([]api.Message, 0, len(thread)+2)
	if platform.SystemPrompt != "" {
		msgs = append(msgs, api.Message{Role: "system", Content: platform.SystemPrompt})
	}
	for _, m := range thread {
		role, ok := roleFor(a.Type(), m)
		if !ok {
			continue
		}
		msgs = append(msgs, api.Message{Role: role, Content: m.Content})
	}
	return append(msgs, api.Message{Role: "user", Content: question.Content})
}

func buildOllamaOptions(platform config.Platform) map[string]any {
	if platform.Temperature == nil && platform.TopP == nil {
		return nil
	}
	opts := make(map[string]any, 2)
	if platform.Temperature != nil {
		opts["temperature"] = *platform.Temperature
	}
	if platform.TopP != nil {
		opts["top_p"] = *platform.TopP
	}
	return opts
}
