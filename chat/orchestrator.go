// Package chat orchestrates one conversation across multiple providers.
//
// A question fans out concurrently to every provider enabled for the chat;
// each provider's stream mutates only its own runtime state. Once every
// provider reaches a terminal state the finished turn is committed to storage
// in one batch, so the persisted history never contains half a turn.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"polychat/config"
	"polychat/model"
	"polychat/provider"
)

// ErrBusy is returned by Ask and Retry while a previous turn is in flight.
var ErrBusy = errors.New("a turn is already in progress")

// ErrNoQuestion is returned by Retry when the conversation holds no user
// message to re-ask.
var ErrNoQuestion = errors.New("no question to retry")

// Gateway is the slice of storage the orchestrator needs.
type Gateway interface {
	SaveChat(chat model.Chat, messages []model.Message) (model.Chat, error)
	Messages(chatID model.ID) ([]model.Message, error)
}

// PlatformSource resolves provider runtime configuration.
type PlatformSource interface {
	Platform(t model.ProviderType) config.Platform
}

// Orchestrator drives one conversation. All exported methods are safe for
// concurrent use.
type Orchestrator struct {
	registry *provider.Registry
	settings PlatformSource
	store    Gateway
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	chat     model.Chat
	messages []model.Message
	question model.Message
	states   map[model.ProviderType]*providerState
	busy     bool

	updates chan struct{}
}

// NewOrchestrator builds an orchestrator over an existing conversation.
// messages is the persisted history, empty for a fresh chat.
func NewOrchestrator(registry *provider.Registry, settings PlatformSource, store Gateway, log *zap.Logger, chat model.Chat, messages []model.Message) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	states := make(map[model.ProviderType]*providerState, len(chat.EnabledProviders))
	for _, t := range chat.EnabledProviders {
		states[t] = &providerState{}
	}

	return &Orchestrator{
		registry: registry,
		settings: settings,
		store:    store,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		chat:     chat,
		messages: append([]model.Message(nil), messages...),
		states:   states,
		updates:  make(chan struct{}, 1),
	}
}

// target pairs an adapter with its resolved platform for one dispatch.
type target struct {
	adapter  provider.Adapter
	platform config.Platform
}

// Ask fans the question out to every enabled provider. It rejects a blank
// question, rejects while a turn is in flight, and validates every enabled
// provider's configuration before dispatching anything, so a misconfigured
// provider causes no network traffic at all.
func (o *Orchestrator) Ask(question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return ErrBusy
	}

	targets, err := o.resolveTargets(o.chat.EnabledProviders)
	if err != nil {
		o.mu.Unlock()
		return err
	}

	o.busy = true
	o.question = model.NewUserMessage(o.chat.ID, question)
	for t := range targets {
		o.states[t] = &providerState{
			phase:   PhaseLoading,
			message: model.NewProviderMessage(o.chat.ID, t),
		}
	}
	thread := append([]model.Message(nil), o.messages...)
	q := o.question
	o.mu.Unlock()
	o.notify()

	o.dispatch(uuid.NewString(), targets, thread, q)
	return nil
}

// Retry re-asks the most recent question to a single provider. The question
// and every enabled provider's latest answer are lifted out of the history;
// the providers not being retried get their answers re-seeded untouched, the
// retried provider streams a fresh answer under the same message identity,
// and the commit writes the whole turn back.
func (o *Orchestrator) Retry(retry model.ProviderType) error {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return ErrBusy
	}
	if !o.chat.Enabled(retry) {
		o.mu.Unlock()
		return fmt.Errorf("provider %s is not part of this chat", retry)
	}

	targets, err := o.resolveTargets([]model.ProviderType{retry})
	if err != nil {
		o.mu.Unlock()
		return err
	}

	question, answers, remaining, found := liftLastTurn(o.messages, o.chat.EnabledProviders)
	if !found {
		o.mu.Unlock()
		return ErrNoQuestion
	}

	o.busy = true
	o.messages = remaining
	o.question = question
	for _, t := range o.chat.EnabledProviders {
		prior, ok := answers[t]
		if !ok && t != retry {
			// Nothing of this provider's in the lifted turn, so there is
			// nothing to re-seed or commit for it.
			o.states[t] = &providerState{}
			continue
		}
		if !ok {
			prior = model.NewProviderMessage(o.chat.ID, t)
		}
		if t == retry {
			fresh := model.NewProviderMessage(o.chat.ID, t)
			fresh.ID = prior.ID
			o.states[t] = &providerState{phase: PhaseLoading, message: fresh}
		} else {
			o.states[t] = &providerState{phase: PhaseIdle, message: prior}
		}
	}
	thread := append([]model.Message(nil), o.messages...)
	o.mu.Unlock()
	o.notify()

	o.dispatch(uuid.NewString(), targets, thread, question)
	return nil
}

// resolveTargets validates each provider and looks up its adapter. Called
// with o.mu held; performs no I/O.
func (o *Orchestrator) resolveTargets(types []model.ProviderType) (map[model.ProviderType]target, error) {
	targets := make(map[model.ProviderType]target, len(types))
	for _, t := range types {
		platform := o.settings.Platform(t)
		if err := provider.ValidatePlatform(platform); err != nil {
			return nil, err
		}
		adapter, err := o.registry.Lookup(t)
		if err != nil {
			return nil, err
		}
		targets[t] = target{adapter: adapter, platform: platform}
	}
	return targets, nil
}

// dispatch runs one goroutine per target and a watcher that commits once all
// of them finish.
func (o *Orchestrator) dispatch(turnID string, targets map[model.ProviderType]target, thread []model.Message, question model.Message) {
	o.log.Info("dispatching question",
		zap.String("turn_id", turnID),
		zap.Int("providers", len(targets)))

	var wg sync.WaitGroup
	for t, tgt := range targets {
		wg.Add(1)
		go func(t model.ProviderType, tgt target) {
			defer wg.Done()
			ch := tgt.adapter.StreamAnswer(o.ctx, tgt.platform, provider.ThreadFor(t, thread), question)
			for chunk := range ch {
				o.applyChunk(turnID, t, chunk)
			}
			o.settle(t)
		}(t, tgt)
	}

	go func() {
		wg.Wait()
		o.commit(turnID)
	}()
}

// applyChunk folds one stream chunk into the provider's state.
func (o *Orchestrator) applyChunk(turnID string, t model.ProviderType, chunk model.StreamChunk) {
	o.mu.Lock()
	state, ok := o.states[t]
	if !ok {
		o.mu.Unlock()
		return
	}

	switch chunk.Kind {
	case model.ChunkStart:
		// Already marked loading at dispatch.
	case model.ChunkDelta:
		state.message.Content += chunk.Text
	case model.ChunkError:
		state.lastErr = chunk.Err
		state.message.Content = "Error: " + chunk.Err
		state.message.CreatedAt = nowUnix()
		state.phase = PhaseIdle
	case model.ChunkDone:
		state.lastErr = ""
		state.message.CreatedAt = nowUnix()
		state.phase = PhaseIdle
	}
	o.mu.Unlock()
	o.notify()

	if chunk.Kind == model.ChunkError {
		o.log.Warn("provider stream failed",
			zap.String("turn_id", turnID),
			zap.String("provider", string(t)),
			zap.String("error", chunk.Err))
	}
}

// settle forces a provider idle when its channel closed without a terminal
// chunk, which happens when the context is cancelled mid-stream.
func (o *Orchestrator) settle(t model.ProviderType) {
	o.mu.Lock()
	if state, ok := o.states[t]; ok && state.phase == PhaseLoading {
		state.phase = PhaseIdle
		if state.message.CreatedAt == 0 {
			state.message.CreatedAt = nowUnix()
		}
	}
	o.mu.Unlock()
	o.notify()
}

// commit runs after every dispatched provider has finished. With all enabled
// providers idle, the turn (question plus one answer per provider) moves into
// the message list and is saved in one batch; the persisted rows are read
// back so in-memory messages carry their assigned IDs.
func (o *Orchestrator) commit(turnID string) {
	o.mu.Lock()
	defer func() {
		o.busy = false
		o.mu.Unlock()
		o.notify()
	}()

	// Cancellation closes streams without a terminal chunk; a turn cut off
	// mid-stream is discarded, not saved.
	if o.ctx.Err() != nil {
		return
	}
	if strings.TrimSpace(o.question.Content) == "" {
		return
	}

	o.messages = append(o.messages, o.question)
	for _, t := range o.chat.EnabledProviders {
		if state, ok := o.states[t]; ok && state.message.Content != "" {
			o.messages = append(o.messages, state.message)
		}
	}

	saved, err := o.store.SaveChat(o.chat, o.messages)
	if err != nil {
		o.log.Error("failed to save chat",
			zap.String("turn_id", turnID),
			zap.Error(err))
		return
	}
	o.chat = saved

	persisted, err := o.store.Messages(saved.ID)
	if err != nil {
		o.log.Error("failed to reload messages",
			zap.String("turn_id", turnID),
			zap.Error(err))
		return
	}
	o.messages = persisted

	o.question = model.Message{}
	for _, state := range o.states {
		state.message = model.Message{}
	}

	o.log.Info("turn committed",
		zap.String("turn_id", turnID),
		zap.Int64("chat_id", int64(saved.ID)),
		zap.Int("messages", len(persisted)))
}

// liftLastTurn removes the most recent user message and each enabled
// provider's most recent answer from messages. It returns the question, the
// removed answers keyed by provider, and the remaining history.
func liftLastTurn(messages []model.Message, enabled []model.ProviderType) (model.Message, map[model.ProviderType]model.Message, []model.Message, bool) {
	questionIdx := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].FromUser() {
			questionIdx = i
			break
		}
	}
	if questionIdx < 0 {
		return model.Message{}, nil, nil, false
	}

	removed := map[int]bool{questionIdx: true}
	answers := make(map[model.ProviderType]model.Message, len(enabled))
	for _, t := range enabled {
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i].Origin == t {
				removed[i] = true
				answers[t] = messages[i]
				break
			}
		}
	}

	remaining := make([]model.Message, 0, len(messages)-len(removed))
	for i, m := range messages {
		if !removed[i] {
			remaining = append(remaining, m)
		}
	}
	return messages[questionIdx], answers, remaining, true
}

// Snapshot returns a consistent copy of the conversation state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	providers := make(map[model.ProviderType]ProviderState, len(o.states))
	idle := true
	for t, state := range o.states {
		providers[t] = state.view()
		if state.phase == PhaseLoading {
			idle = false
		}
	}

	return Snapshot{
		Chat:      o.chat,
		Messages:  append([]model.Message(nil), o.messages...),
		Question:  o.question,
		Providers: providers,
		Idle:      idle && !o.busy,
	}
}

// Turns returns the conversation grouped into alternating user and provider
// slots, including the in-flight question and answer buffers of the current
// turn.
func (o *Orchestrator) Turns() map[int][]model.Message {
	o.mu.Lock()
	visible := append([]model.Message(nil), o.messages...)
	if o.question.Content != "" {
		visible = append(visible, o.question)
		for _, t := range o.chat.EnabledProviders {
			if state, ok := o.states[t]; ok {
				visible = append(visible, state.message)
			}
		}
	}
	o.mu.Unlock()

	return model.GroupTurns(model.SortByCreation(visible))
}

// Updates returns a channel that receives a signal after state changes.
// Signals coalesce: a slow reader sees at least one notification for any
// burst of changes, not one per change.
func (o *Orchestrator) Updates() <-chan struct{} {
	return o.updates
}

// Close cancels in-flight provider streams. In-progress turns terminate
// through the usual channel-close path.
func (o *Orchestrator) Close() {
	o.cancel()
}

func nowUnix() int64 { return time.Now().Unix() }

func (o *Orchestrator) notify() {
	select {
	case o.updates <- struct{}{}:
	default:
	}
}
