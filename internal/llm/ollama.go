package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

type Ollama struct {
	client     *ollama.LLM
	maxRetries int
}

func NewOllama(host, model string, maxRetries int) (*Ollama, error) {
	client, err := ollama.New(ollama.WithServerURL(host), ollama.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("could not create ollama client: %w", err)
	}
	return &Ollama{client: client, maxRetries: maxRetries}, nil
}

func (o *Ollama) Translate(ctx context.Context, req Request) (string, error) {
	messages := make([]llms.MessageContent, 0, 2*len(req.History)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, SystemPrompt(req.SchemaText)))
	for _, ex := range req.History {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, ex.Question))
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, ex.SQL))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Question))

	return translateWithRetry(ctx, o.maxRetries, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		resp, err := o.client.GenerateContent(ctx, messages,
			llms.WithTemperature(temperature), llms.WithMaxTokens(maxTokens))
		if err != nil {
			slog.Error("ollama error: generate content failed", "error", err)
			return "", fmt.Errorf("ollama generation failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("ollama returned no choices")
		}
		return resp.Choices[0].Content, nil
	})
}
