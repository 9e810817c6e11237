package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompat_Translate(t *testing.T) {
	var got struct {
		Model       string          `json:"model"`
		Messages    []compatMessage `json:"messages"`
		Temperature float64         `json:"temperature"`
		MaxTokens   int             `json:"max_tokens"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"SELECT name FROM customers LIMIT 5"}}]}`))
	}))
	defer server.Close()

	compat := NewCompat(server.URL+"/v1", "secret", "qwen2.5-coder", 1)
	sql, err := compat.Translate(context.Background(), Request{
		Question:   "top five customers",
		SchemaText: "Table: customers\n",
		History:    []Exchange{{Question: "how many customers?", SQL: "SELECT COUNT(*) FROM customers"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM customers LIMIT 5", sql)

	assert.Equal(t, "qwen2.5-coder", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "Table: customers")
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, compatMessage{Role: "user", Content: "top five customers"}, got.Messages[3])
}

func TestCompat_TranslateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	compat := NewCompat(server.URL, "", "llama3", 1)
	_, err := compat.Translate(context.Background(), Request{Question: "q", SchemaText: "s"})
	assert.ErrorContains(t, err, "llm gateway returned 500")
}

func TestCompat_TranslateRateLimitRetries(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"SELECT 1"}}]}`))
	}))
	defer server.Close()

	compat := NewCompat(server.URL, "", "llama3", 2)
	sql, err := compat.Translate(context.Background(), Request{Question: "q", SchemaText: "s"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", sql)
	assert.Equal(t, 2, requests)
}
