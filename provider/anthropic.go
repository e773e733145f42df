package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"polychat/config"
	"polychat/model"
	"polychat/sse"
)

// AnthropicAdapter streams answers from the Anthropic Messages API over raw
// HTTP and SSE. The stream ends at the message_stop event rather than EOF.
type AnthropicAdapter struct {
	httpClient *http.Client
}

// NewAnthropicAdapter creates the Anthropic adapter.
func NewAnthropicAdapter() *AnthropicAdapter {
	return &AnthropicAdapter{httpClient: http.DefaultClient}
}

// Type implements Adapter.
func (a *AnthropicAdapter) Type() model.ProviderType { return model.ProviderAnthropic }

// StreamAnswer implements Adapter.
func (a *AnthropicAdapter) StreamAnswer(ctx context.Context, platform config.Platform, thread []model.Message, question model.Message) <-chan model.StreamChunk {
	return startStream(ctx, func(emit func(model.StreamChunk) bool) {
		if !emit(model.Start()) {
			return
		}

		resp, err := a.dispatch(ctx, platform, thread, question)
		if err != nil {
			emit(model.Fail(err.Error()))
			return
		}

		if resp.StatusCode != http.StatusOK {
			emit(model.Fail(readAnthropicError(resp)))
			return
		}

		dec := sse.NewDecoder(resp.Body, sse.WithTerminator(anthropicStreamEndEvent))
		defer dec.Close()

		for dec.Next() {
			var event anthropicEvent
			if err := json.Unmarshal(dec.Data(), &event); err != nil {
				emit(model.Fail(fmt.Sprintf("malformed stream payload: %v", err)))
				return
			}

			switch event.Type {
			case anthropicContentBlockMsg:
				if event.Delta.Type == anthropicTextDeltaType && event.Delta.Text != "" {
					if !emit(model.Delta(event.Delta.Text)) {
						return
					}
				}
			case anthropicErrorEvent:
				emit(model.Fail(event.Error.Message))
				return
			}
			// message_start, content_block_start, content_block_stop,
			// message_delta and ping carry nothing we render.
		}

		if err := dec.Err(); err != nil {
			emit(model.Fail(err.Error()))
			return
		}
		emit(model.Done())
	})
}

func (a *AnthropicAdapter) dispatch(ctx context.Context, platform config.Platform, thread []model.Message, question model.Message) (*http.Response, error) {
	reqBody := anthropicRequest{
		Model:       platform.Model,
		Messages:    a.buildMessages(thread, question),
		System:      platform.SystemPrompt,
		MaxTokens:   anthropicMaxTokens,
		Stream:      true,
		Temperature: platform.Temperature,
		TopP:        platform.TopP,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := strings.TrimRight(platform.BaseURL, "/") + anthropicMessagesPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(anthropicAPIKeyHeader, platform.APIKey)
	req.Header.Set(anthropicVersionHeader, anthropicVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func (a *AnthropicAdapter) buildMessages(thread []model.Message, question model.Message) []anthropicMessage {
	msgs := make([]anthropicMessage, 0, len(thread)+1)
	for _, m := range thread {
		role, ok := roleFor(a.Type(), m)
		if !ok {
			continue
		}
		msgs = append(msgs, newAnthropicMessage(role, m.Content))
	}
	return append(msgs, newAnthropicMessage("user", question.Content))
}

func newAnthropicMessage(role, text string) anthropicMessage {
	return anthropicMessage{
		Role:    role,
		Content: []anthropicContent{{Type: "text", Text: text}},
	}
}

func readAnthropicError(resp *http.Response) string {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err == nil {
		var parsed anthropicErrorBody
		if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
			return parsed.Error.Message
		}
	}
	return fmt.Sprintf("unexpected status %d", resp.StatusCode)
}
