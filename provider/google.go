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

const googleAPIKeyHeader = "x-goog-api-key"

// GoogleAdapter streams answers from the Gemini generateContent API over raw
// HTTP and SSE. Unlike Anthropic there is no termination sentinel; the stream
// ends at EOF.
type GoogleAdapter struct {
	httpClient *http.Client
}

// NewGoogleAdapter creates the Google adapter.
func NewGoogleAdapter() *GoogleAdapter {
	return &GoogleAdapter{httpClient: http.DefaultClient}
}

// Type implements Adapter.
func (a *GoogleAdapter) Type() model.ProviderType { return model.ProviderGoogle }

type googleRequest struct {
	SystemInstruction *googleContent   `json:"systemInstruction,omitempty"`
	Contents          []googleContent  `json:"contents"`
	GenerationConfig  *googleGenConfig `json:"generationConfig,omitempty"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleGenConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"topP,omitempty"`
}

type googleResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
}

type googleErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// StreamAnswer implements Adapter.
func (a *GoogleAdapter) StreamAnswer(ctx context.Context, platform config.Platform, thread []model.Message, question model.Message) <-chan model.StreamChunk {
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
			emit(model.Fail(readGoogleError(resp)))
			return
		}

		dec := sse.NewDecoder(resp.Body)
		defer dec.Close()

		for dec.Next() {
			var event googleResponse
			if err := json.Unmarshal(dec.Data(), &event); err != nil {
				emit(model.Fail(fmt.Sprintf("malformed stream payload: %v", err)))
				return
			}
			for _, candidate := range event.Candidates {
				for _, part := range candidate.Content.Parts {
					if part.Text == "" {
						continue
					}
					if !emit(model.Delta(part.Text)) {
						return
					}
				}
			}
		}

		if err := dec.Err(); err != nil {
			emit(model.Fail(err.Error()))
			return
		}
		emit(model.Done())
	})
}

func (a *GoogleAdapter) dispatch(ctx context.Context, platform config.Platform, thread []model.Message, question model.Message) (*http.Response, error) {
	reqBody := googleRequest{
		Contents: a.buildContents(thread, question),
	}
	if platform.SystemPrompt != "" {
		reqBody.SystemInstruction = &googleContent{
			Parts: []googlePart{{Text: platform.SystemPrompt}},
		}
	}
	if platform.Temperature != nil || platform.TopP != nil {
		reqBody.GenerationConfig = &googleGenConfig{
			Temperature: platform.Temperature,
			TopP:        platform.TopP,
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse",
		strings.TrimRight(platform.BaseURL, "/"), platform.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(googleAPIKeyHeader, platform.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// buildContents maps the thread to Gemini's user/model role scheme.
func (a *GoogleAdapter) buildContents(thread []model.Message, question model.Message) []googleContent {
	contents := make([]googleContent, 0, len(thread)+1)
	for _, m := range thread {
		role, ok := roleFor(a.Type(), m)
		if !ok {
			continue
		}
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, googleContent{
			Role:  role,
			Parts: []googlePart{{Text: m.Content}},
		})
	}
	return append(contents, googleContent{
		Role:  "user",
		Parts: []googlePart{{Text: question.Content}},
	})
}

func readGoogleError(resp *http.Response) string {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err == nil {
		var parsed googleErrorBody
		if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
			return parsed.Error.Message
		}
	}
	return fmt.Sprintf("unexpected status %d", resp.StatusCode)
}
