package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"easysql-backend/internal/database"
	"easysql-backend/internal/datasource"
	"easysql-backend/internal/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTranslator struct {
	sql     string
	err     error
	lastReq llm.Request
}

func (s *stubTranslator) Translate(ctx context.Context, req llm.Request) (string, error) {
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.sql, nil
}

func setupTestEngine(t *testing.T, translator llm.Translator, rowLimit int) (*Engine, uuid.UUID) {
	t.Helper()
	dir := t.TempDir()

	target := filepath.Join(dir, "target.db")
	db, err := sql.Open("sqlite3", target)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE sales (city TEXT NOT NULL, total REAL NOT NULL)`)
	require.NoError(t, err)
	for i, city := range []string{"Seoul", "Busan", "Incheon"} {
		_, err = db.Exec(`INSERT INTO sales (city, total) VALUES (?, ?)`, city, float64((i+1)*100))
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	source, err := datasource.Open("sqlite:///"+target, rowLimit, 10*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { source.Close() })

	historyDB, err := database.New(fmt.Sprintf("sqlite:///%s", filepath.Join(dir, "history.db")))
	require.NoError(t, err)

	session, err := database.CreateSession(context.Background(), historyDB, "test session")
	require.NoError(t, err)

	return NewEngine(historyDB, source, translator, 10), session.Id
}

func TestEngine_Ask(t *testing.T) {
	translator := &stubTranslator{sql: "```sql\nSELECT city, total FROM sales;\n```"}
	engine, sessionId := setupTestEngine(t, translator, 100)

	answer, err := engine.Ask(context.Background(), sessionId, "total sales by city")
	require.NoError(t, err)

	assert.Equal(t, "SELECT city, total FROM sales", answer.SQL)
	assert.Equal(t, "completed", answer.Status)
	assert.Equal(t, 3, answer.Result.RowCount)
	assert.False(t, answer.Result.Truncated)
	assert.Equal(t, ChartBar, answer.SuggestedChart)

	require.NotNil(t, answer.Chart)
	assert.Equal(t, ChartBar, answer.Chart.Type)
	assert.Equal(t, "city", answer.Chart.XColumn)
	assert.Equal(t, "total", answer.Chart.YColumn)

	require.Len(t, answer.Summary, 1)
	assert.Equal(t, "total", answer.Summary[0].Column)
	assert.Equal(t, 600.0, answer.Summary[0].Sum)

	assert.Contains(t, translator.lastReq.SchemaText, "Table: sales")
	assert.Contains(t, translator.lastReq.SchemaText, "  - city (TEXT) NOT NULL")

	records, err := database.GetQueryHistory(context.Background(), engine.db, sessionId)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, database.QueryCompleted, records[0].Status)
	assert.Equal(t, answer.QueryId, records[0].Id)
	assert.NotEmpty(t, records[0].Result)
	assert.NotEmpty(t, records[0].Chart)
}

func TestEngine_Ask_Metric(t *testing.T) {
	translator := &stubTranslator{sql: "SELECT SUM(total) AS revenue FROM sales"}
	engine, sessionId := setupTestEngine(t, translator, 100)

	answer, err := engine.Ask(context.Background(), sessionId, "what is the total revenue?")
	require.NoError(t, err)

	assert.Equal(t, ChartMetric, answer.SuggestedChart)
	assert.Nil(t, answer.Chart)
	require.Len(t, answer.Summary, 1)
	assert.Equal(t, 600.0, answer.Summary[0].Max)
}

func TestEngine_Ask_RejectedSQL(t *testing.T) {
	translator := &stubTranslator{sql: "DROP TABLE sales"}
	engine, sessionId := setupTestEngine(t, translator, 100)

	_, err := engine.Ask(context.Background(), sessionId, "remove the sales table")
	assert.ErrorIs(t, err, ErrRejected)

	records, err := database.GetQueryHistory(context.Background(), engine.db, sessionId)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, database.QueryFailed, records[0].Status)
	assert.Equal(t, "DROP TABLE sales", records[0].SQL)
	assert.NotEmpty(t, records[0].Error)
}

func TestEngine_Ask_TranslatorError(t *testing.T) {
	translator := &stubTranslator{err: errors.New("model unavailable")}
	engine, sessionId := setupTestEngine(t, translator, 100)

	_, err := engine.Ask(context.Background(), sessionId, "anything")
	assert.ErrorIs(t, err, ErrTranslation)

	records, err := database.GetQueryHistory(context.Background(), engine.db, sessionId)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, database.QueryFailed, records[0].Status)
	assert.Empty(t, records[0].SQL)
}

func TestEngine_Ask_ExecutionError(t *testing.T) {
	translator := &stubTranslator{sql: "SELECT nope FROM missing"}
	engine, sessionId := setupTestEngine(t, translator, 100)

	_, err := engine.Ask(context.Background(), sessionId, "query a missing table")
	assert.ErrorIs(t, err, ErrExecution)

	records, err := database.GetQueryHistory(context.Background(), engine.db, sessionId)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, database.QueryFailed, records[0].Status)
}

func TestEngine_Ask_ReplaysCompletedHistory(t *testing.T) {
	translator := &stubTranslator{sql: "SELECT city FROM sales"}
	engine, sessionId := setupTestEngine(t, translator, 100)

	_, err := engine.Ask(context.Background(), sessionId, "first question")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	translator.sql = "DROP TABLE sales"
	_, err = engine.Ask(context.Background(), sessionId, "bad question")
	require.Error(t, err)
	time.Sleep(5 * time.Millisecond)

	translator.sql = "SELECT total FROM sales"
	_, err = engine.Ask(context.Background(), sessionId, "second question")
	require.NoError(t, err)

	// The failed ask must not appear in the conversation replayed on the
	// third call.
	require.Len(t, translator.lastReq.History, 1)
	assert.Equal(t, llm.Exchange{Question: "first question", SQL: "SELECT city FROM sales"}, translator.lastReq.History[0])
}

func TestEngine_Ask_TruncatesLargeResults(t *testing.T) {
	translator := &stubTranslator{sql: "SELECT city FROM sales"}
	engine, sessionId := setupTestEngine(t, translator, 2)

	answer, err := engine.Ask(context.Background(), sessionId, "list cities")
	require.NoError(t, err)
	assert.Equal(t, 2, answer.Result.RowCount)
	assert.True(t, answer.Result.Truncated)

	records, err := database.GetQueryHistory(context.Background(), engine.db, sessionId)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Truncated)
}

func TestEngine_GenerateSQL_DoesNotExecute(t *testing.T) {
	translator := &stubTranslator{sql: "SELECT city FROM sales"}
	engine, sessionId := setupTestEngine(t, translator, 100)
	ctx := context.Background()

	stmt, err := engine.GenerateSQL(ctx, sessionId, "list cities")
	require.NoError(t, err)
	assert.Equal(t, "SELECT city FROM sales", stmt)

	// Nothing is recorded until the statement actually runs.
	records, err := database.GetQueryHistory(ctx, engine.db, sessionId)
	require.NoError(t, err)
	assert.Empty(t, records)

	answer, err := engine.Execute(ctx, sessionId, "list cities", stmt)
	require.NoError(t, err)
	assert.Equal(t, 3, answer.Result.RowCount)

	records, err = database.GetQueryHistory(ctx, engine.db, sessionId)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, database.QueryCompleted, records[0].Status)
}
