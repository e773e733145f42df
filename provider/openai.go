package provider

import (
	"context"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"polychat/config"
	"polychat/model"
)

// OpenAIAdapter streams chat completions through the official OpenAI Go SDK.
// It also serves OpenAI-compatible endpoints when the platform's base URL
// points elsewhere.
type OpenAIAdapter struct{}

// NewOpenAIAdapter creates the OpenAI adapter.
func NewOpenAIAdapter() *OpenAIAdapter { return &OpenAIAdapter{} }

// Type implements Adapter.
func (a *OpenAIAdapter) Type() model.ProviderType { return model.ProviderOpenAI }

// StreamAnswer implements Adapter.
func (a *OpenAIAdapter) StreamAnswer(ctx context.Context, platform config.Platform, thread []model.Message, question model.Message) <-chan model.StreamChunk {
	return startStream(ctx, func(emit func(model.StreamChunk) bool) {
		if !emit(model.Start()) {
			return
		}

		client := openai.NewClient(
			option.WithBaseURL(platform.BaseURL),
			option.WithAPIKey(platform.APIKey),
		)

		params := openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(platform.Model),
			Messages: a.buildMessages(platform, thread, question),
		}
		if platform.Temperature != nil {
			params.Temperature = openai.Float(*platform.Temperature)
		}
		if platform.TopP != nil {
			params.TopP = openai.Float(*platform.TopP)
		}

		stream := client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if text := chunk.Choices[0].Delta.Content; text != "" {
				if !emit(model.Delta(text)) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			emit(model.Fail(err.Error()))
			return
		}
		emit(model.Done())
	})
}

func (a *OpenAIAdapter) buildMessages(platform config.Platform, thread []model.Message, question model.Message) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(thread)+2)
	if platform.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(platform.SystemPrompt))
	}
	for _, m := range thread {
		role, ok := roleFor(a.Type(), m)
		if !ok {
			continue
		}
		if role == "user" {
			msgs = append(msgs, openai.UserMessage(m.Content))
		} else {
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		}
	}
	return append(msgs, openai.UserMessage(question.Content))
}
