package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Compat talks to any server exposing the OpenAI chat completions REST shape,
// such as vLLM, LiteLLM, or llama.cpp.
type Compat struct {
	client     *resty.Client
	model      string
	maxRetries int
}

func NewCompat(baseURL, apiKey, model string, maxRetries int) *Compat {
	client := resty.New().SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &Compat{client: client, model: model, maxRetries: maxRetries}
}

type compatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type compatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Compat) Translate(ctx context.Context, req Request) (string, error) {
	messages := make([]compatMessage, 0, 2*len(req.History)+2)
	messages = append(messages, compatMessage{Role: "system", Content: SystemPrompt(req.SchemaText)})
	for _, ex := range req.History {
		messages = append(messages, compatMessage{Role: "user", Content: ex.Question})
		messages = append(messages, compatMessage{Role: "assistant", Content: ex.SQL})
	}
	messages = append(messages, compatMessage{Role: "user", Content: req.Question})

	body := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}

	return translateWithRetry(ctx, c.maxRetries, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		res, err := c.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post("/chat/completions")
		if err != nil {
			slog.Error("llm gateway error: chat completions failed", "error", err)
			return "", fmt.Errorf("llm gateway request failed: %w", err)
		}
		if !res.IsSuccess() {
			return "", fmt.Errorf("llm gateway returned %d: %s", res.StatusCode(), res.String())
		}

		var parsed compatResponse
		if err := json.Unmarshal(res.Body(), &parsed); err != nil {
			return "", fmt.Errorf("error parsing llm gateway response: %w", err)
		}
		if len(parsed.Choices) == 0 {
			return "", fmt.Errorf("llm gateway returned no choices")
		}
		return parsed.Choices[0].Message.Content, nil
	})
}
