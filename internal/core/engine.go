package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"easysql-backend/internal/database"
	"easysql-backend/internal/datasource"
	"easysql-backend/internal/llm"
	"easysql-backend/pkg/api"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Pipeline failure categories. The API layer maps these to status codes; the
// failing step is also recorded in the session history.
var (
	ErrTranslation = errors.New("sql generation failed")
	ErrRejected    = errors.New("query rejected")
	ErrExecution   = errors.New("query execution failed")
)

// ExampleQuestions seed the suggestion list shown by the UI and the console.
var ExampleQuestions = []string{
	"Show me total sales by category",
	"What are the top 5 customers by order amount?",
	"Show monthly revenue trend",
	"Which products have low stock?",
	"Show customer distribution by city",
}

// Engine runs the question-to-chart pipeline: snapshot the schema, replay
// session history, translate the question to SQL, guard it, execute it, and
// persist the outcome.
type Engine struct {
	db           *gorm.DB
	source       *datasource.Source
	translator   llm.Translator
	historyLimit int
}

func NewEngine(db *gorm.DB, source *datasource.Source, translator llm.Translator, historyLimit int) *Engine {
	return &Engine{db: db, source: source, translator: translator, historyLimit: historyLimit}
}

func (e *Engine) Ask(ctx context.Context, sessionId uuid.UUID, question string) (*api.QueryAnswer, error) {
	sql, err := e.GenerateSQL(ctx, sessionId, question)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, sessionId, question, sql)
}

// GenerateSQL translates a question into a guarded SQL statement without
// running it. The console shows the statement and asks for confirmation
// before handing it to Execute.
func (e *Engine) GenerateSQL(ctx context.Context, sessionId uuid.UUID, question string) (string, error) {
	snap, err := e.source.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("error reading datasource schema: %w", err)
	}

	history, err := e.exchanges(ctx, sessionId)
	if err != nil {
		return "", fmt.Errorf("error loading session history: %w", err)
	}

	raw, err := e.translator.Translate(ctx, llm.Request{
		Question:   question,
		SchemaText: snap.PromptText(),
		History:    history,
	})
	if err != nil {
		e.saveFailure(ctx, sessionId, question, "", err)
		return "", fmt.Errorf("%w: %v", ErrTranslation, err)
	}

	sql := llm.CleanSQL(raw)
	if err := ValidateQuery(sql); err != nil {
		e.saveFailure(ctx, sessionId, question, sql, err)
		return "", fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return sql, nil
}

// Execute runs a statement GenerateSQL produced and persists the outcome.
func (e *Engine) Execute(ctx context.Context, sessionId uuid.UUID, question, sql string) (*api.QueryAnswer, error) {
	result, err := e.source.RunQuery(ctx, sql)
	if err != nil {
		e.saveFailure(ctx, sessionId, question, sql, err)
		return nil, fmt.Errorf("%w: %v", ErrExecution, err)
	}

	payload := ToResultPayload(result)
	suggested := SuggestChart(payload)
	summary := Summarize(payload)

	var chart *api.ChartSpec
	if suggested != ChartTable && suggested != ChartMetric && len(payload.Rows) > 1 {
		if spec, err := BuildChart(payload, api.ChartRequest{Type: suggested}); err == nil {
			chart = spec
		}
	}

	record := database.QueryRecord{
		Id:             uuid.New(),
		SessionId:      sessionId,
		Question:       question,
		SQL:            sql,
		Status:         database.QueryCompleted,
		RowCount:       payload.RowCount,
		Truncated:      payload.Truncated,
		DurationMs:     result.Duration.Milliseconds(),
		SuggestedChart: suggested,
		CreationTime:   time.Now().UTC(),
	}

	resultJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error encoding result payload: %w", err)
	}
	record.Result = datatypes.JSON(resultJSON)

	if chart != nil {
		chartJSON, err := json.Marshal(chart)
		if err != nil {
			return nil, fmt.Errorf("error encoding chart spec: %w", err)
		}
		record.Chart = datatypes.JSON(chartJSON)
	}

	if err := database.SaveRecord(ctx, e.db, &record); err != nil {
		return nil, fmt.Errorf("error saving query record: %w", err)
	}

	return &api.QueryAnswer{
		QueryId:        record.Id,
		SessionId:      sessionId,
		Question:       question,
		SQL:            sql,
		Status:         api.QueryCompleted,
		Result:         payload,
		SuggestedChart: suggested,
		Chart:          chart,
		Summary:        summary,
		DurationMs:     record.DurationMs,
		CreationTime:   record.CreationTime,
	}, nil
}

// exchanges loads the completed question/SQL pairs replayed to the model.
func (e *Engine) exchanges(ctx context.Context, sessionId uuid.UUID) ([]llm.Exchange, error) {
	records, err := database.RecentExchanges(ctx, e.db, sessionId, e.historyLimit)
	if err != nil {
		return nil, err
	}

	exchanges := make([]llm.Exchange, len(records))
	for i, r := range records {
		exchanges[i] = llm.Exchange{Question: r.Question, SQL: r.SQL}
	}
	return exchanges, nil
}

// saveFailure records a failed ask so the session history reflects every
// attempt. Failed records never feed back into the LLM conversation.
func (e *Engine) saveFailure(ctx context.Context, sessionId uuid.UUID, question, sql string, cause error) {
	record := database.QueryRecord{
		Id:           uuid.New(),
		SessionId:    sessionId,
		Question:     question,
		SQL:          sql,
		Status:       database.QueryFailed,
		Error:        cause.Error(),
		CreationTime: time.Now().UTC(),
	}
	if err := database.SaveRecord(ctx, e.db, &record); err != nil {
		slog.Error("could not save failed query record", "session_id", sessionId, "error", err)
	}
}

// ToResultPayload converts a scanned result set into its wire shape.
func ToResultPayload(rs *datasource.ResultSet) *api.ResultPayload {
	payload := &api.ResultPayload{
		Columns:   make([]api.Column, len(rs.Columns)),
		Rows:      rs.Rows,
		RowCount:  rs.RowCount,
		Truncated: rs.Truncated,
	}
	for i, col := range rs.Columns {
		payload.Columns[i] = api.Column{Name: col.Name, DatabaseType: col.DatabaseType, Kind: string(col.Kind)}
	}
	if payload.Rows == nil {
		payload.Rows = [][]any{}
	}
	return payload
}
