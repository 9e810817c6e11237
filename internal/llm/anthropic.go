package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type Anthropic struct {
	client     anthropic.Client
	model      string
	maxRetries int
}

func NewAnthropic(apiKey, model string, maxRetries int) *Anthropic {
	return &Anthropic{
		client:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:      model,
		maxRetries: maxRetries,
	}
}

func (a *Anthropic) Translate(ctx context.Context, req Request) (string, error) {
	messages := make([]anthropic.MessageParam, 0, 2*len(req.History)+1)
	for _, ex := range req.History {
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(ex.Question)))
		messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(ex.SQL)))
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Question)))

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		System:      []anthropic.TextBlockParam{{Text: SystemPrompt(req.SchemaText)}},
		Messages:    messages,
	}

	return translateWithRetry(ctx, a.maxRetries, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		msg, err := a.client.Messages.New(ctx, params)
		if err != nil {
			slog.Error("anthropic error: message create failed", "error", err)
			return "", fmt.Errorf("anthropic generation failed: %w", err)
		}

		var b strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				b.WriteString(block.Text)
			}
		}
		if b.Len() == 0 {
			return "", fmt.Errorf("anthropic returned no text content")
		}
		return b.String(), nil
	})
}
