package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaimana/seachat/internal/config"
)

// fakeProvider replays scripted deltas and an optional terminal fault
type fakeProvider struct {
	deltas []string
	fault  error

	lastRequest StreamRequest
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Stream(_ context.Context, request StreamRequest) (<-chan string, <-chan error) {
	p.lastRequest = request
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for _, d := range p.deltas {
			out <- d
		}
		if p.fault != nil {
			errc <- p.fault
		}
	}()
	return out, errc
}

func newTestInterpreter(provider Provider) *Interpreter {
	return &Interpreter{
		cfg:          config.DefaultConfig().Engine,
		provider:     provider,
		systemPrompt: "You are a sea level assistant.",
	}
}

func drain(t *testing.T, fragments <-chan Fragment, errc <-chan error) ([]Fragment, error) {
	t.Helper()
	var got []Fragment
	for f := range fragments {
		got = append(got, f)
	}
	return got, <-errc
}

func TestInterpreterChatStreamsFragments(t *testing.T) {
	provider := &fakeProvider{deltas: []string{"Sea ", "level ", "rises."}}
	it := newTestInterpreter(provider)

	fragments, errc := it.Chat(context.Background(), Message{Role: "user", Content: "hello"})
	got, err := drain(t, fragments, errc)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Sea ", got[0].Content)
	assert.Equal(t, "message", got[0].Type)

	messages := it.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Equal(t, "Sea level rises.", messages[1].Content)
}

func TestInterpreterChatInstallsInstructions(t *testing.T) {
	provider := &fakeProvider{deltas: []string{"ok"}}
	it := newTestInterpreter(provider)
	it.SetInstructions("The session_id is abc.")

	fragments, errc := it.Chat(context.Background(), Message{Role: "user", Content: "hi"})
	_, err := drain(t, fragments, errc)
	require.NoError(t, err)

	assert.Contains(t, provider.lastRequest.System, "sea level assistant")
	assert.Contains(t, provider.lastRequest.System, "The session_id is abc.")
}

func TestInterpreterChatFaultKeepsPartialReply(t *testing.T) {
	provider := &fakeProvider{deltas: []string{"partial "}, fault: errors.New("upstream exploded")}
	it := newTestInterpreter(provider)

	fragments, errc := it.Chat(context.Background(), Message{Role: "user", Content: "hi"})
	got, err := drain(t, fragments, errc)

	require.Error(t, err)
	assert.Len(t, got, 1)

	messages := it.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "partial ", messages[1].Content)
}

func TestInterpreterChatFaultWithoutOutput(t *testing.T) {
	provider := &fakeProvider{fault: errors.New("boom")}
	it := newTestInterpreter(provider)

	fragments, errc := it.Chat(context.Background(), Message{Role: "user", Content: "hi"})
	got, err := drain(t, fragments, errc)

	require.Error(t, err)
	assert.Empty(t, got)

	// Only the user message is recorded when nothing was produced
	messages := it.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].Role)
}

func TestInterpreterSetMessagesAndReset(t *testing.T) {
	it := newTestInterpreter(&fakeProvider{})

	it.SetMessages([]Message{{Role: "user", Content: "old turn"}})
	require.Len(t, it.Messages(), 1)

	it.Reset()
	assert.Empty(t, it.Messages())
}

func TestNewProviderUnsupported(t *testing.T) {
	cfg := config.DefaultConfig().Engine
	cfg.Provider = "cohere"
	_, err := NewProvider(cfg)
	assert.Error(t, err)
}

func TestErrorFragment(t *testing.T) {
	f := ErrorFragment(errors.New("boom"))
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, "boom", f.Content)
}
