package engine

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements Provider for OpenAI
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Stream makes a streaming chat completion call to OpenAI
func (p *OpenAIProvider) Stream(ctx context.Context, request StreamRequest) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		messages := []openai.ChatCompletionMessageParamUnion{}
		if request.System != "" {
			messages = append(messages, openai.SystemMessage(request.System))
		}

		for _, msg := range request.Messages {
			switch msg.Role {
			case "system":
				// Already handled above
			case "user":
				messages = append(messages, openai.UserMessage(msg.Content))
			case "assistant":
				messages = append(messages, openai.AssistantMessage(msg.Content))
			}
		}

		params := openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(request.Model),
			Messages: messages,
		}
		if request.MaxTokens > 0 {
			params.MaxTokens = openai.Int(int64(request.MaxTokens))
		}
		if request.Temperature > 0 {
			params.Temperature = openai.Float(request.Temperature)
		}

		stream := p.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}

			select {
			case out <- delta:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}

		if err := stream.Err(); err != nil {
			errc <- err
		}
	}()

	return out, errc
}
