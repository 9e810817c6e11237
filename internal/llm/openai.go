package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAI struct {
	client     openai.Client
	model      string
	maxRetries int
}

func NewOpenAI(apiKey, model string, maxRetries int) *OpenAI {
	return &OpenAI{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		model:      model,
		maxRetries: maxRetries,
	}
}

func (o *OpenAI) Translate(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2*len(req.History)+2)
	messages = append(messages, openai.SystemMessage(SystemPrompt(req.SchemaText)))
	for _, ex := range req.History {
		messages = append(messages, openai.UserMessage(ex.Question))
		messages = append(messages, openai.AssistantMessage(ex.SQL))
	}
	messages = append(messages, openai.UserMessage(req.Question))

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       o.model,
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	}

	return translateWithRetry(ctx, o.maxRetries, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		res, err := o.client.Chat.Completions.New(ctx, params)
		if err != nil {
			slog.Error("openai error: chat completions failed", "error", err)
			return "", fmt.Errorf("openai generation failed: %w", err)
		}
		if len(res.Choices) == 0 {
			return "", fmt.Errorf("openai returned no choices")
		}
		return res.Choices[0].Message.Content, nil
	})
}
