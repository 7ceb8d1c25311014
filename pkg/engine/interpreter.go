package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kaimana/seachat/internal/config"
)

// Engine is the execution context attached to one session. It is a
// single-writer resource: callers must not run two turns concurrently.
type Engine interface {
	// SetInstructions installs the per-turn instruction preamble.
	SetInstructions(instructions string)

	// Chat dispatches one turn and streams output fragments. The fragment
	// channel is closed when production ends; the error channel carries at
	// most one terminal fault and is closed after it. The conversation
	// state is updated regardless of success or failure.
	Chat(ctx context.Context, message Message) (<-chan Fragment, <-chan error)

	// Messages returns a copy of the full conversation so far.
	Messages() []Message

	// SetMessages replaces the conversation state (used to rehydrate a
	// session from the durable transcript).
	SetMessages(messages []Message)

	// Reset releases all conversation state held by the context.
	Reset()
}

// Interpreter implements Engine on a streaming LLM provider with a fixed
// configuration profile.
type Interpreter struct {
	cfg          config.EngineConfig
	provider     Provider
	systemPrompt string

	mu           sync.Mutex
	instructions string
	messages     []Message
}

// NewInterpreter constructs an execution context with the given profile.
// The system prompt is fixed for the context's lifetime; instructions are
// replaced per turn.
func NewInterpreter(cfg config.EngineConfig, systemPrompt string) (*Interpreter, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	return &Interpreter{
		cfg:          cfg,
		provider:     provider,
		systemPrompt: systemPrompt,
	}, nil
}

// SetInstructions installs the per-turn instruction preamble
func (it *Interpreter) SetInstructions(instructions string) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.instructions = instructions
}

// Messages returns a copy of the conversation so far
func (it *Interpreter) Messages() []Message {
	it.mu.Lock()
	defer it.mu.Unlock()
	out := make([]Message, len(it.messages))
	copy(out, it.messages)
	return out
}

// SetMessages replaces the conversation state
func (it *Interpreter) SetMessages(messages []Message) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.messages = make([]Message, len(messages))
	copy(it.messages, messages)
}

// Reset releases all conversation state
func (it *Interpreter) Reset() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.messages = nil
	it.instructions = ""
}

// Chat dispatches one turn against the provider and forwards deltas as
// fragments. The user message is recorded before dispatch; the assistant
// reply (possibly partial, on fault) is recorded when production ends.
func (it *Interpreter) Chat(ctx context.Context, message Message) (<-chan Fragment, <-chan error) {
	it.mu.Lock()
	if message.Type == "" {
		message.Type = "message"
	}
	it.messages = append(it.messages, message)
	history := make([]Message, len(it.messages))
	copy(history, it.messages)
	system := it.systemPrompt
	if it.instructions != "" {
		system = system + "\n\n" + it.instructions
	}
	it.mu.Unlock()

	fragments := make(chan Fragment)
	errc := make(chan error, 1)

	deltas, providerErrc := it.provider.Stream(ctx, StreamRequest{
		Model:       it.cfg.Model,
		System:      system,
		Messages:    history,
		Temperature: it.cfg.Temperature,
		MaxTokens:   it.cfg.MaxTokens,
	})

	go func() {
		defer close(fragments)
		defer close(errc)

		var reply strings.Builder
		for delta := range deltas {
			reply.WriteString(delta)
			select {
			case fragments <- Fragment{Role: "assistant", Type: "message", Content: delta}:
			case <-ctx.Done():
			}
		}
		fault := <-providerErrc

		// Record whatever the model produced, even on a fault, so the
		// persisted transcript reflects the partial turn.
		if reply.Len() > 0 || fault == nil {
			it.mu.Lock()
			it.messages = append(it.messages, Message{
				Role:    "assistant",
				Type:    "message",
				Content: reply.String(),
			})
			it.mu.Unlock()
		}

		if fault != nil {
			log.Error().Err(fault).Str("provider", it.provider.Name()).Msg("Turn production failed")
			errc <- fault
		}
	}()

	return fragments, errc
}
