package engine

import (
	"context"
	"fmt"

	"github.com/kaimana/seachat/internal/config"
)

// StreamRequest contains the request parameters for a streamed completion
type StreamRequest struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Provider is a streaming LLM API provider.
//
// Stream returns a channel of text deltas and a channel carrying at most
// one terminal error. The delta channel is closed when production ends;
// the error channel is closed after the fault, if any, has been sent.
type Provider interface {
	Stream(ctx context.Context, request StreamRequest) (<-chan string, <-chan error)

	// Name returns the provider name
	Name() string
}

// NewProvider creates an LLM provider from the engine configuration
func NewProvider(cfg config.EngineConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg.APIKey), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
