package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, "gpt-4", DefaultModel(ProviderOpenAI))
	assert.Equal(t, "claude-3-5-sonnet-latest", DefaultModel(ProviderAnthropic))
	assert.Equal(t, "gemini-1.5-flash", DefaultModel(ProviderGemini))
	assert.Equal(t, "llama3", DefaultModel(ProviderOllama))
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Options{Provider: "cohere"})
	assert.ErrorContains(t, err, "unknown LLM provider")
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{Provider: ProviderOpenAI})
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	_, err = New(context.Background(), Options{Provider: ProviderAnthropic})
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")

	_, err = New(context.Background(), Options{Provider: ProviderGemini})
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	_, err = New(context.Background(), Options{Provider: ProviderOpenAICompat})
	assert.ErrorContains(t, err, "LLM_BASE_URL")
}

func TestNew_BuildsProviders(t *testing.T) {
	translator, err := New(context.Background(), Options{Provider: ProviderOpenAI, OpenAIKey: "test-key"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, translator)

	translator, err = New(context.Background(), Options{Provider: ProviderAnthropic, AnthropicKey: "test-key"})
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, translator)

	translator, err = New(context.Background(), Options{Provider: ProviderOllama, OllamaHost: "http://localhost:11434"})
	require.NoError(t, err)
	assert.IsType(t, &Ollama{}, translator)

	translator, err = New(context.Background(), Options{Provider: ProviderOpenAICompat, BaseURL: "http://localhost:8080/v1"})
	require.NoError(t, err)
	assert.IsType(t, &Compat{}, translator)
}

func TestTranslateWithRetry_Success(t *testing.T) {
	calls := 0
	out, err := translateWithRetry(context.Background(), 3, func(ctx context.Context) (string, error) {
		calls++
		return "SELECT 1", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", out)
	assert.Equal(t, 1, calls)
}

func TestTranslateWithRetry_HardErrorFailsFast(t *testing.T) {
	calls := 0
	_, err := translateWithRetry(context.Background(), 3, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("invalid api key")
	})
	assert.ErrorContains(t, err, "invalid api key")
	assert.Equal(t, 1, calls)
}

func TestTranslateWithRetry_RateLimitRetries(t *testing.T) {
	calls := 0
	out, err := translateWithRetry(context.Background(), 3, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("429 Too Many Requests")
		}
		return "SELECT 2", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", out)
	assert.Equal(t, 2, calls)
}

func TestTranslateWithRetry_Exhausted(t *testing.T) {
	calls := 0
	_, err := translateWithRetry(context.Background(), 2, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("rate limit exceeded")
	})
	assert.ErrorContains(t, err, "all attempts failed")
	assert.Equal(t, 2, calls)
}

func TestTranslateWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := translateWithRetry(ctx, 3, func(ctx context.Context) (string, error) {
		return "", errors.New("quota exceeded")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRateLimitError(t *testing.T) {
	assert.True(t, isRateLimitError(errors.New("Rate Limit reached")))
	assert.True(t, isRateLimitError(errors.New("quota exceeded for project")))
	assert.True(t, isRateLimitError(errors.New("HTTP 429: slow down")))
	assert.True(t, isRateLimitError(errors.New("529 Overloaded")))
	assert.False(t, isRateLimitError(errors.New("connection refused")))
}
