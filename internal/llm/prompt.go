package llm

import (
	"fmt"
	"strings"
)

const systemPromptTemplate = `You are an expert SQL query generator. Convert natural language questions into valid SQL queries.

Database Schema:
%s

Rules:
1. Generate ONLY the SQL query (no explanation)
2. SQL syntax must be correct
3. Use proper JOINs when referencing multiple tables
4. Add LIMIT clauses when appropriate
5. Only generate SELECT queries
6. Use exact column/table names`

// SystemPrompt renders the generation instructions for the given schema text.
func SystemPrompt(schemaText string) string {
	return fmt.Sprintf(systemPromptTemplate, schemaText)
}

// CleanSQL strips markdown code fences and a trailing semicolon from a model
// response. Models wrap SQL in ```sql, ```SQL, or ```postgresql fences
// depending on provider and mood.
func CleanSQL(raw string) string {
	sql := strings.TrimSpace(raw)

	for _, fence := range []string{"```sql", "```SQL", "```postgresql"} {
		if strings.HasPrefix(sql, fence) {
			sql = strings.TrimPrefix(sql, fence)
			if idx := strings.LastIndex(sql, "```"); idx != -1 {
				sql = sql[:idx]
			}
			break
		}
	}

	sql = strings.ReplaceAll(sql, "```sql", "")
	sql = strings.ReplaceAll(sql, "```", "")
	sql = strings.TrimSpace(sql)
	sql = strings.TrimSuffix(sql, ";")
	return strings.TrimSpace(sql)
}
