package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	ProviderOpenAI       = "openai"
	ProviderAnthropic    = "anthropic"
	ProviderGemini       = "gemini"
	ProviderOllama       = "ollama"
	ProviderOpenAICompat = "openai-compat"
)

const (
	temperature    = 0
	maxTokens      = 500
	requestTimeout = 50 * time.Second
)

// Exchange is one completed question/SQL pair. Past exchanges are replayed to
// the model so follow-up questions can build on earlier answers.
type Exchange struct {
	Question string
	SQL      string
}

type Request struct {
	Question   string
	SchemaText string
	History    []Exchange
}

// Translator turns a natural language question into a SQL statement.
type Translator interface {
	Translate(ctx context.Context, req Request) (string, error)
}

type Options struct {
	Provider   string
	Model      string
	MaxRetries int

	OpenAIKey    string
	AnthropicKey string
	GeminiKey    string
	OllamaHost   string

	// BaseURL and APIKey configure the openai-compat provider.
	BaseURL string
	APIKey  string
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-3-5-sonnet-latest"
	case ProviderGemini:
		return "gemini-1.5-flash"
	case ProviderOllama:
		return "llama3"
	default:
		return "gpt-4"
	}
}

// New builds the translator selected by opts.Provider.
func New(ctx context.Context, opts Options) (Translator, error) {
	model := opts.Model
	if model == "" {
		model = DefaultModel(opts.Provider)
	}

	switch opts.Provider {
	case ProviderOpenAI:
		if opts.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		return NewOpenAI(opts.OpenAIKey, model, opts.MaxRetries), nil
	case ProviderAnthropic:
		if opts.AnthropicKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		return NewAnthropic(opts.AnthropicKey, model, opts.MaxRetries), nil
	case ProviderGemini:
		if opts.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
		return NewGemini(ctx, opts.GeminiKey, model, opts.MaxRetries)
	case ProviderOllama:
		return NewOllama(opts.OllamaHost, model, opts.MaxRetries)
	case ProviderOpenAICompat:
		if opts.BaseURL == "" {
			return nil, fmt.Errorf("LLM_BASE_URL is required for the openai-compat provider")
		}
		return NewCompat(opts.BaseURL, opts.APIKey, model, opts.MaxRetries), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", opts.Provider)
	}
}

var backoffSchedule = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// translateWithRetry retries rate-limited calls with exponential backoff.
// Other errors fail immediately.
func translateWithRetry(ctx context.Context, maxRetries int, generate func(context.Context) (string, error)) (string, error) {
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			wait := backoffSchedule[min(attempt-1, len(backoffSchedule)-1)]
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		out, err := generate(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !isRateLimitError(err) {
			return "", err
		}
		slog.Warn("llm rate limited, retrying", "attempt", attempt+1, "error", err)
	}
	return "", fmt.Errorf("all attempts failed, last error: %w", lastErr)
}

func isRateLimitError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota exceeded") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "529")
}
