// Package provider adapts polychat's unified conversation model to each LLM
// backend's wire protocol.
//
// Every backend sits behind the Adapter interface: the caller hands over a
// resolved platform configuration, the conversation thread as this provider
// may see it, and the new question; the adapter answers with a normalized
// chunk stream. Whether the backend streams over SSE (OpenAI, Anthropic,
// Google) or answers in one blocking call (Ollama), consumers see the same
// sequence: Start, deltas, one terminal Done or Error.
//
// # Failure containment
//
// Adapters never return errors through a second path and never panic across
// the channel. Transport failures, non-2xx responses, and malformed payloads
// all become a single Error chunk followed by stream termination, so the
// orchestrator's handling is uniform across backends.
//
// # Thread filtering
//
// The caller filters the conversation before the call: an adapter receives
// only user messages and its own prior answers (see ThreadFor). Adapters
// still skip foreign-origin messages defensively during role mapping.
package provider

import (
	"context"

	"polychat/config"
	"polychat/model"
)

// Adapter is the uniform contract one backend implements.
type Adapter interface {
	// Type identifies the backend this adapter serves.
	Type() model.ProviderType

	// StreamAnswer dispatches the question with the given thread as context
	// and returns a single-consumer channel of normalized chunks. The
	// channel always yields Start first, terminates with exactly one Done
	// or Error chunk, and is closed afterwards. Cancelling ctx tears down
	// the underlying connection.
	StreamAnswer(ctx context.Context, platform config.Platform, thread []model.Message, question model.Message) <-chan model.StreamChunk
}

// startStream runs produce on its own goroutine behind a chunk channel. The
// emit callback delivers a chunk unless ctx is cancelled; produce should
// stop once emit returns false. The channel is closed on every exit path.
func startStream(ctx context.Context, produce func(emit func(model.StreamChunk) bool)) <-chan model.StreamChunk {
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
		produce(emit)
	}()

	return out
}
