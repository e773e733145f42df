package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"polychat/config"
	"polychat/model"
)

// drain consumes a chunk stream to completion and returns every chunk.
func drain(t *testing.T, ch <-chan model.StreamChunk) []model.StreamChunk {
	t.Helper()
	var chunks []model.StreamChunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	if len(chunks) == 0 || chunks[0].Kind != model.ChunkStart {
		t.Fatalf("stream must begin with a start chunk, got %v", chunks)
	}
	last := chunks[len(chunks)-1]
	if !last.Terminal() {
		t.Fatalf("stream must end with a terminal chunk, got %v", last)
	}
	for _, c := range chunks[:len(chunks)-1] {
		if c.Terminal() {
			t.Fatalf("terminal chunk before end of stream: %v", chunks)
		}
	}
	return chunks
}

func assembled(chunks []model.StreamChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		if c.Kind == model.ChunkDelta {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

func anthropicPlatform(baseURL string) config.Platform {
	return config.Platform{
		Type:         model.ProviderAnthropic,
		Enabled:      true,
		BaseURL:      baseURL,
		APIKey:       "test-key",
		Model:        "claude-3-5-sonnet-20240620",
		SystemPrompt: "Be precise.",
	}
}

func TestAnthropicStreamAnswer(t *testing.T) {
	var gotPath, gotAPIKey, gotVersion string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")

		w.Header().Set("Content-Type", "text/event-stream")
		stream := strings.Join([]string{
			`event: message_start`,
			`data: {"type":"message_start"}`,
			``,
			`event: content_block_start`,
			`data: {"type":"content_block_start"}`,
			``,
			`event: content_block_delta`,
			`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Hello"}}`,
			``,
			`event: ping`,
			`data: {"type":"ping"}`,
			``,
			`event: content_block_delta`,
			`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":" world"}}`,
			``,
			`event: content_block_stop`,
			`data: {"type":"content_block_stop"}`,
			``,
			`event: message_stop`,
			`data: {"type":"message_stop"}`,
			``,
		}, "\n")
		w.Write([]byte(stream))
	}))
	defer server.Close()

	adapter := NewAnthropicAdapter()
	chunks := drain(t, adapter.StreamAnswer(context.Background(), anthropicPlatform(server.URL),
		nil, model.NewUserMessage(0, "hi")))

	if chunks[len(chunks)-1].Kind != model.ChunkDone {
		t.Fatalf("expected done, got %v", chunks[len(chunks)-1])
	}
	if got := assembled(chunks); got != "Hello world" {
		t.Errorf("assembled answer = %q, want %q", got, "Hello world")
	}
	if gotPath != "/v1/messages" {
		t.Errorf("path = %q, want /v1/messages", gotPath)
	}
	if gotAPIKey != "test-key" {
		t.Errorf("x-api-key = %q, want test-key", gotAPIKey)
	}
	if gotVersion != "2023-06-01" {
		t.Errorf("anthropic-version = %q, want 2023-06-01", gotVersion)
	}
}

func TestAnthropicStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		stream := strings.Join([]string{
			`event: message_start`,
			`data: {"type":"message_start"}`,
			``,
			`event: error`,
			`data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
			``,
		}, "\n")
		w.Write([]byte(stream))
	}))
	defer server.Close()

	adapter := NewAnthropicAdapter()
	chunks := drain(t, adapter.StreamAnswer(context.Background(), anthropicPlatform(server.URL),
		nil, model.NewUserMessage(0, "hi")))

	last := chunks[len(chunks)-1]
	if last.Kind != model.ChunkError {
		t.Fatalf("expected error chunk, got %v", last)
	}
	if last.Err != "Overloaded" {
		t.Errorf("error = %q, want %q", last.Err, "Overloaded")
	}
}

func TestAnthropicNonOKResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	adapter := NewAnthropicAdapter()
	chunks := drain(t, adapter.StreamAnswer(context.Background(), anthropicPlatform(server.URL),
		nil, model.NewUserMessage(0, "hi")))

	last := chunks[len(chunks)-1]
	if last.Kind != model.ChunkError {
		t.Fatalf("expected error chunk, got %v", last)
	}
	if last.Err != "invalid x-api-key" {
		t.Errorf("error = %q, want %q", last.Err, "invalid x-api-key")
	}
}

func TestAnthropicMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {not json\n\n"))
	}))
	defer server.Close()

	adapter := NewAnthropicAdapter()
	chunks := drain(t, adapter.StreamAnswer(context.Background(), anthropicPlatform(server.URL),
		nil, model.NewUserMessage(0, "hi")))

	if chunks[len(chunks)-1].Kind != model.ChunkError {
		t.Fatalf("expected error chunk for malformed payload, got %v", chunks[len(chunks)-1])
	}
}

func TestAnthropicCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"partial"}}` + "\n\n"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	adapter := NewAnthropicAdapter()
	ch := adapter.StreamAnswer(ctx, anthropicPlatform(server.URL), nil, model.NewUserMessage(0, "hi"))

	for c := range ch {
		if c.Kind == model.ChunkDelta {
			cancel()
		}
	}
	// Reaching here means the channel closed after cancellation.
}
