package provider

// Anthropic Messages API wire types, limited to the fields polychat sends
// and reads. https://docs.anthropic.com/en/api/messages
const (
	anthropicAPIKeyHeader    = "x-api-key"
	anthropicVersionHeader   = "anthropic-version"
	anthropicVersion         = "2023-06-01"
	anthropicMaxTokens       = 4096
	anthropicStreamEndEvent  = "event: message_stop"
	anthropicMessagesPath    = "/v1/messages"
	anthropicTextDeltaType   = "text_delta"
	anthropicContentBlockMsg = "content_block_delta"
	anthropicErrorEvent      = "error"
)

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Stream      bool               `json:"stream"`
	Temperature *float64           `json:"temperature,omitempty"`
	TopP        *float64           `json:"top_p,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// anthropicEvent is the envelope every streamed data payload decodes into.
// Only the event types polychat acts on carry fields here; the rest
// (message_start, content_block_start, ping, ...) decode to a bare Type and
// are skipped.
type anthropicEvent struct {
	Type  string              `json:"type"`
	Delta anthropicEventDelta `json:"delta"`
	Error anthropicAPIError   `json:"error"`
}

type anthropicEventDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicAPIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// anthropicErrorBody is the JSON shape of non-2xx responses.
type anthropicErrorBody struct {
	Error anthropicAPIError `json:"error"`
}
