package api

import (
	"time"

	"github.com/google/uuid"
)

const (
	QueryCompleted = "completed"
	QueryFailed    = "failed"
)

type CreateSessionRequest struct {
	Title string `json:"title"`
}

type SessionMetadata struct {
	Id           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	CreationTime time.Time `json:"creation_time"`
}

type GetSessionsResponse struct {
	Sessions []SessionMetadata `json:"sessions"`
}

type AskRequest struct {
	Question string `json:"question"`
}

type Column struct {
	Name         string `json:"name"`
	DatabaseType string `json:"database_type"`
	Kind         string `json:"kind"` // "numeric", "text", "time" or "bool"
}

type ResultPayload struct {
	Columns   []Column `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated"`
}

type ChartSpec struct {
	Type         string   `json:"type"`
	Title        string   `json:"title,omitempty"`
	XColumn      string   `json:"x_column,omitempty"`
	YColumn      string   `json:"y_column,omitempty"`
	YColumns     []string `json:"y_columns,omitempty"`
	NamesColumn  string   `json:"names_column,omitempty"`
	ValuesColumn string   `json:"values_column,omitempty"`
	Column       string   `json:"column,omitempty"`
}

type ColumnSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

type QueryAnswer struct {
	QueryId        uuid.UUID       `json:"query_id"`
	SessionId      uuid.UUID       `json:"session_id"`
	Question       string          `json:"question"`
	SQL            string          `json:"sql"`
	Status         string          `json:"status"`
	Error          string          `json:"error,omitempty"`
	Result         *ResultPayload  `json:"result,omitempty"`
	SuggestedChart string          `json:"suggested_chart,omitempty"`
	Chart          *ChartSpec      `json:"chart,omitempty"`
	Summary        []ColumnSummary `json:"summary,omitempty"`
	DurationMs     int64           `json:"duration_ms"`
	CreationTime   time.Time       `json:"creation_time"`
}

type HistoryItem struct {
	Id             uuid.UUID `json:"id"`
	Question       string    `json:"question"`
	SQL            string    `json:"sql"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	RowCount       int       `json:"row_count"`
	Truncated      bool      `json:"truncated"`
	SuggestedChart string    `json:"suggested_chart,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
	CreationTime   time.Time `json:"creation_time"`
}

type GetHistoryResponse struct {
	Queries []HistoryItem `json:"queries"`
}

type ChartRequest struct {
	Type         string   `json:"type"`
	Title        string   `json:"title,omitempty"`
	XColumn      string   `json:"x_column,omitempty"`
	YColumn      string   `json:"y_column,omitempty"`
	YColumns     []string `json:"y_columns,omitempty"`
	NamesColumn  string   `json:"names_column,omitempty"`
	ValuesColumn string   `json:"values_column,omitempty"`
	Column       string   `json:"column,omitempty"`
}

type ExportResponse struct {
	Bucket   string `json:"bucket,omitempty"`
	Key      string `json:"key"`
	Location string `json:"location"`
}
