// Package model defines polychat's provider-agnostic domain types.
//
// A conversation is a Chat plus an ordered list of Messages. Messages are
// origin-tagged: a message without an origin was written by the user, a
// message with an origin is one provider's answer. All provider adapters and
// the orchestrator exchange these types; provider-specific wire formats never
// leave the provider package.
package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ProviderType identifies one LLM backend.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderGoogle    ProviderType = "google"
	ProviderOllama    ProviderType = "ollama"
)

// AllProviders returns every supported provider in display order.
func AllProviders() []ProviderType {
	return []ProviderType{ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderOllama}
}

// ParseProviderType validates a provider identifier string.
func ParseProviderType(s string) (ProviderType, error) {
	switch t := ProviderType(strings.ToLower(strings.TrimSpace(s))); t {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderOllama:
		return t, nil
	default:
		return "", fmt.Errorf("unknown provider type: %q", s)
	}
}

// JoinProviders serializes a provider set as a comma-joined string, the form
// stored in the chats table.
func JoinProviders(types []ProviderType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

// SplitProviders parses a comma-joined provider set.
func SplitProviders(s string) ([]ProviderType, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	types := make([]ProviderType, 0, len(parts))
	for _, p := range parts {
		t, err := ParseProviderType(p)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// ID identifies a persisted row. The zero ID marks a record that has not been
// saved yet; storage assigns the real value on first save.
type ID int64

// IsNew reports whether the record has not been persisted yet.
func (id ID) IsNew() bool { return id == 0 }

// Message is one entry in a conversation.
//
// Origin is empty for messages authored by the user and holds the producing
// provider otherwise. Content of an in-flight provider message grows while
// the provider streams; a failed provider's content holds an error marker.
type Message struct {
	ID              ID
	ChatID          ID
	Content         string
	ImageData       string
	LinkedMessageID ID
	Origin          ProviderType
	CreatedAt       int64
}

// FromUser reports whether the message was authored by the human user.
func (m Message) FromUser() bool { return m.Origin == "" }

// NewUserMessage builds an unpersisted user message stamped with the current
// time.
func NewUserMessage(chatID ID, content string) Message {
	return Message{ChatID: chatID, Content: content, CreatedAt: time.Now().Unix()}
}

// NewProviderMessage builds an unpersisted answer message for one provider.
func NewProviderMessage(chatID ID, origin ProviderType) Message {
	return Message{ChatID: chatID, Origin: origin, CreatedAt: time.Now().Unix()}
}

// Chat is one conversation thread. The enabled-provider set is fixed when the
// chat is created and never changes afterwards.
type Chat struct {
	ID               ID
	Title            string
	EnabledProviders []ProviderType
	CreatedAt        int64
}

// NewChat creates an unpersisted chat for the given provider set.
func NewChat(enabled []ProviderType) Chat {
	return Chat{
		Title:            "Untitled Chat",
		EnabledProviders: append([]ProviderType(nil), enabled...),
		CreatedAt:        time.Now().Unix(),
	}
}

// Enabled reports whether the given provider participates in this chat.
func (c Chat) Enabled(t ProviderType) bool {
	for _, e := range c.EnabledProviders {
		if e == t {
			return true
		}
	}
	return false
}

// SortByCreation returns a copy of messages ordered by ascending creation
// time. The sort is stable so answers sharing a timestamp keep their
// insertion order.
func SortByCreation(messages []Message) []Message {
	sorted := append([]Message(nil), messages...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt < sorted[j].CreatedAt
	})
	return sorted
}
