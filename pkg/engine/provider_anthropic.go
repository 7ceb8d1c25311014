package engine

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider for the Anthropic Messages API
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Stream makes a streaming messages call to Anthropic
func (p *AnthropicProvider) Stream(ctx context.Context, request StreamRequest) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		anthropicMessages := []anthropic.MessageParam{}
		for _, msg := range request.Messages {
			switch msg.Role {
			case "system":
				// System prompt handled separately below
			case "user":
				anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
					anthropic.NewTextBlock(msg.Content),
				))
			case "assistant":
				anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
					Role: anthropic.MessageParamRoleAssistant,
					Content: []anthropic.ContentBlockParamUnion{
						anthropic.NewTextBlock(msg.Content),
					},
				})
			}
		}

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(request.Model),
			MaxTokens: int64(request.MaxTokens),
			Messages:  anthropicMessages,
		}
		if request.System != "" {
			params.System = []anthropic.TextBlockParam{
				{Text: request.System},
			}
		}
		if request.Temperature > 0 {
			params.Temperature = anthropic.Float(request.Temperature)
		}

		stream := p.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if deltaVariant.Text == "" {
						continue
					}
					select {
					case out <- deltaVariant.Text:
					case <-ctx.Done():
						errc <- ctx.Err()
						return
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			errc <- err
		}
	}()

	return out, errc
}
