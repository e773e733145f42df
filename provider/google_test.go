package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"polychat/config"
	"polychat/model"
)

func googlePlatform(baseURL string) config.Platform {
	return config.Platform{
		Type:    model.ProviderGoogle,
		Enabled: true,
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   "gemini-1.5-pro-latest",
	}
}

func TestGoogleStreamAnswer(t *testing.T) {
	var gotPath, gotQuery, gotAPIKey string
	var gotBody googleRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAPIKey = r.Header.Get("x-goog-api-key")
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "text/event-stream")
		stream := strings.Join([]string{
			`data: {"candidates":[{"content":{"role":"model","parts":[{"text":"Once"}]}}]}`,
			``,
			`data: {"candidates":[{"content":{"role":"model","parts":[{"text":" upon"},{"text":" a time"}]}}]}`,
			``,
		}, "\n")
		w.Write([]byte(stream))
	}))
	defer server.Close()

	thread := []model.Message{
		{Content: "earlier question"},
		{Content: "earlier answer", Origin: model.ProviderGoogle},
		{Content: "ignored", Origin: model.ProviderOpenAI},
	}

	adapter := NewGoogleAdapter()
	chunks := drain(t, adapter.StreamAnswer(context.Background(), googlePlatform(server.URL),
		thread, model.NewUserMessage(0, "tell a story")))

	if chunks[len(chunks)-1].Kind != model.ChunkDone {
		t.Fatalf("expected done, got %v", chunks[len(chunks)-1])
	}
	if got := assembled(chunks); got != "Once upon a time" {
		t.Errorf("assembled answer = %q, want %q", got, "Once upon a time")
	}

	if gotPath != "/v1beta/models/gemini-1.5-pro-latest:streamGenerateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "alt=sse" {
		t.Errorf("query = %q, want alt=sse", gotQuery)
	}
	if gotAPIKey != "test-key" {
		t.Errorf("x-goog-api-key = %q, want test-key", gotAPIKey)
	}

	wantRoles := []string{"user", "model", "user"}
	if len(gotBody.Contents) != len(wantRoles) {
		t.Fatalf("request has %d contents, want %d", len(gotBody.Contents), len(wantRoles))
	}
	for i, role := range wantRoles {
		if gotBody.Contents[i].Role != role {
			t.Errorf("contents[%d].role = %q, want %q", i, gotBody.Contents[i].Role, role)
		}
	}
}

func TestGoogleNonOKResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	adapter := NewGoogleAdapter()
	chunks := drain(t, adapter.StreamAnswer(context.Background(), googlePlatform(server.URL),
		nil, model.NewUserMessage(0, "hi")))

	last := chunks[len(chunks)-1]
	if last.Kind != model.ChunkError {
		t.Fatalf("expected error chunk, got %v", last)
	}
	if last.Err != "Resource has been exhausted" {
		t.Errorf("error = %q, want %q", last.Err, "Resource has been exhausted")
	}
}

func TestGoogleMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: <html>\n\n"))
	}))
	defer server.Close()

	adapter := NewGoogleAdapter()
	chunks := drain(t, adapter.StreamAnswer(context.Background(), googlePlatform(server.URL),
		nil, model.NewUserMessage(0, "hi")))

	if chunks[len(chunks)-1].Kind != model.ChunkError {
		t.Fatalf("expected error chunk for malformed payload, got %v", chunks[len(chunks)-1])
	}
}

func TestGoogleSamplingParameters(t *testing.T) {
	var gotBody googleRequest
	var hasGenConfig bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		hasGenConfig = strings.Contains(string(raw), "generationConfig")
		json.Unmarshal(raw, &gotBody)
		w.Write([]byte("data: {\"candidates\":[]}\n\n"))
	}))
	defer server.Close()

	adapter := NewGoogleAdapter()

	// No sampling parameters configured: generationConfig stays off the wire.
	drain(t, adapter.StreamAnswer(context.Background(), googlePlatform(server.URL),
		nil, model.NewUserMessage(0, "hi")))
	if hasGenConfig {
		t.Error("generationConfig should be omitted when unset")
	}

	temp := 0.2
	platform := googlePlatform(server.URL)
	platform.Temperature = &temp
	drain(t, adapter.StreamAnswer(context.Background(), platform,
		nil, model.NewUserMessage(0, "hi")))
	if gotBody.GenerationConfig == nil || gotBody.GenerationConfig.Temperature == nil {
		t.Fatal("temperature should be sent when configured")
	}
	if *gotBody.GenerationConfig.Temperature != temp {
		t.Errorf("temperature = %v, want %v", *gotBody.GenerationConfig.Temperature, temp)
	}
	if gotBody.GenerationConfig.TopP != nil {
		t.Error("top_p should stay unset when not configured")
	}
}
