package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type Gemini struct {
	client     *genai.Client
	name       string
	maxRetries int
}

func NewGemini(ctx context.Context, apiKey, model string, maxRetries int) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("error initializing gemini client: %w", err)
	}
	return &Gemini{client: client, name: model, maxRetries: maxRetries}, nil
}

func (g *Gemini) Translate(ctx context.Context, req Request) (string, error) {
	// GenerativeModel carries per-request state (system instruction), so a
	// fresh handle is built for every call.
	model := g.client.GenerativeModel(g.name)
	temp := float32(temperature)
	model.Temperature = &temp
	tokens := int32(maxTokens)
	model.MaxOutputTokens = &tokens
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(SystemPrompt(req.SchemaText))}}

	chat := model.StartChat()
	for _, ex := range req.History {
		chat.History = append(chat.History,
			&genai.Content{Role: "user", Parts: []genai.Part{genai.Text(ex.Question)}},
			&genai.Content{Role: "model", Parts: []genai.Part{genai.Text(ex.SQL)}},
		)
	}

	return translateWithRetry(ctx, g.maxRetries, func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		resp, err := chat.SendMessage(ctx, genai.Text(req.Question))
		if err != nil {
			slog.Error("gemini error: send message failed", "error", err)
			return "", fmt.Errorf("gemini generation failed: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("gemini returned no response candidates")
		}

		text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
		if !ok {
			return "", fmt.Errorf("unexpected gemini response type: %T", resp.Candidates[0].Content.Parts[0])
		}
		return string(text), nil
	})
}
