// Package testutil provides scripted provider adapters for orchestrator and
// integration tests.
package testutil

import (
	"context"

	"polychat/config"
	"polychat/model"
)

// MockAdapter implements provider.Adapter with a scripted response. By
// default it emits Start, one delta per Deltas entry, then Done (or an Error
// chunk when FailWith is set). StreamFunc overrides the whole behavior.
type MockAdapter struct {
	Provider model.ProviderType

	// Scripted output
	Deltas   []string
	FailWith string

	// Release, when set, gates the terminal chunk: the stream emits its
	// deltas, then blocks until the channel is closed. Lets tests hold one
	// provider in-flight while another finishes.
	Release chan struct{}

	// StreamFunc replaces the scripted behavior entirely.
	StreamFunc func(ctx context.Context, platform config.Platform, thread []model.Message, question model.Message) <-chan model.StreamChunk

	// Captured inputs from the last call
	LastThread   []model.Message
	LastQuestion model.Message
	Calls        int
}

// NewMockAdapter creates a mock for the given provider that answers with the
// given deltas.
func NewMockAdapter(t model.ProviderType, deltas ...string) *MockAdapter {
	return &MockAdapter{Provider: t, Deltas: deltas}
}

// Type implements provider.Adapter.
func (m *MockAdapter) Type() model.ProviderType { return m.Provider }

// StreamAnswer implements provider.Adapter.
func (m *MockAdapter) StreamAnswer(ctx context.Context, platform config.Platform, thread []model.Message, question model.Message) <-chan model.StreamChunk {
	m.Calls++
	m.LastThread = append([]model.Message(nil), thread...)
	m.LastQuestion = question

	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, platform, thread, question)
	}

	out := make(chan model.StreamChunk)
	go func() {
		defer close(out)
		emit := func(c model.StreamChunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit(model.Start()) {
			return
		}
		for _, d := range m.Deltas {
			if !emit(model.Delta(d)) {
				return
			}
		}
		if m.Release != nil {
			select {
			case <-m.Release:
			case <-ctx.Done():
				return
			}
		}
		if m.FailWith != "" {
			emit(model.Fail(m.FailWith))
			return
		}
		emit(model.Done())
	}()
	return out
}
