package chat

import "polychat/model"

// Phase is one provider's lifecycle stage within the current turn.
type Phase int

const (
	// PhaseIdle means no request is in flight for this provider.
	PhaseIdle Phase = iota
	// PhaseLoading means the provider's answer is streaming in.
	PhaseLoading
)

func (p Phase) String() string {
	if p == PhaseLoading {
		return "loading"
	}
	return "idle"
}

// ProviderState is one provider's runtime view: its phase, the answer buffer
// being filled (or the last finished answer awaiting commit), and the most
// recent failure message, if any.
type ProviderState struct {
	Phase   Phase
	Message model.Message
	LastErr string
}

// providerState is the orchestrator's mutable version, guarded by its mutex.
type providerState struct {
	phase   Phase
	message model.Message
	lastErr string
}

func (s *providerState) view() ProviderState {
	return ProviderState{Phase: s.phase, Message: s.message, LastErr: s.lastErr}
}

// Snapshot is a point-in-time copy of the whole conversation state, safe to
// read without holding any lock.
type Snapshot struct {
	Chat      model.Chat
	Messages  []model.Message
	Question  model.Message
	Providers map[model.ProviderType]ProviderState
	Idle      bool
}
