package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt(t *testing.T) {
	schema := "Table: customers\n  - customer_id (INTEGER) NOT NULL\n"
	prompt := SystemPrompt(schema)

	assert.True(t, strings.HasPrefix(prompt, "You are an expert SQL query generator."))
	assert.Contains(t, prompt, "Database Schema:\nTable: customers\n")
	assert.Contains(t, prompt, "5. Only generate SELECT queries")
	assert.True(t, strings.HasSuffix(prompt, "6. Use exact column/table names"))
}

func TestCleanSQL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercase fence",
			in:   "```sql\nSELECT * FROM customers;\n```",
			want: "SELECT * FROM customers",
		},
		{
			name: "uppercase fence",
			in:   "```SQL\nSELECT name FROM products\n```",
			want: "SELECT name FROM products",
		},
		{
			name: "postgresql fence",
			in:   "```postgresql\nSELECT 1\n```",
			want: "SELECT 1",
		},
		{
			name: "bare fence",
			in:   "```\nSELECT 1\n```",
			want: "SELECT 1",
		},
		{
			name: "no fence",
			in:   "  SELECT city, COUNT(*) FROM customers GROUP BY city  ",
			want: "SELECT city, COUNT(*) FROM customers GROUP BY city",
		},
		{
			name: "trailing semicolon",
			in:   "SELECT 1;",
			want: "SELECT 1",
		},
		{
			name: "fence and semicolon",
			in:   "```sql\nSELECT order_id FROM orders LIMIT 5;\n```",
			want: "SELECT order_id FROM orders LIMIT 5",
		},
		{
			name: "stray backticks",
			in:   "SELECT a FROM b```",
			want: "SELECT a FROM b",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanSQL(tc.in))
		})
	}
}
