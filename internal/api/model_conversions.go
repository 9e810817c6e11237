package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"easysql-backend/internal/core"
	"easysql-backend/internal/database"
	"easysql-backend/internal/datasource"
	"easysql-backend/pkg/api"
)

func convertSession(s database.QuerySession) api.SessionMetadata {
	return api.SessionMetadata{
		Id:           s.Id,
		Title:        s.Title,
		CreationTime: s.CreationTime,
	}
}

func convertSessions(ss []database.QuerySession) []api.SessionMetadata {
	sessions := make([]api.SessionMetadata, 0, len(ss))
	for _, s := range ss {
		sessions = append(sessions, convertSession(s))
	}
	return sessions
}

func convertRecord(r database.QueryRecord) (api.QueryAnswer, error) {
	answer := api.QueryAnswer{
		QueryId:        r.Id,
		SessionId:      r.SessionId,
		Question:       r.Question,
		SQL:            r.SQL,
		Status:         r.Status,
		Error:          r.Error,
		SuggestedChart: r.SuggestedChart,
		DurationMs:     r.DurationMs,
		CreationTime:   r.CreationTime,
	}

	if len(r.Result) > 0 {
		var result api.ResultPayload
		if err := json.Unmarshal(r.Result, &result); err != nil {
			return answer, CodedError(http.StatusInternalServerError, fmt.Errorf("error decoding cached result: %w", err))
		}
		answer.Result = &result
		answer.Summary = core.Summarize(&result)
	}

	if len(r.Chart) > 0 {
		var chart api.ChartSpec
		if err := json.Unmarshal(r.Chart, &chart); err != nil {
			return answer, CodedError(http.StatusInternalServerError, fmt.Errorf("error decoding cached chart: %w", err))
		}
		answer.Chart = &chart
	}

	return answer, nil
}

func convertRecords(rs []database.QueryRecord) []api.HistoryItem {
	items := make([]api.HistoryItem, 0, len(rs))
	for _, r := range rs {
		items = append(items, api.HistoryItem{
			Id:             r.Id,
			Question:       r.Question,
			SQL:            r.SQL,
			Status:         r.Status,
			Error:          r.Error,
			RowCount:       r.RowCount,
			Truncated:      r.Truncated,
			SuggestedChart: r.SuggestedChart,
			DurationMs:     r.DurationMs,
			CreationTime:   r.CreationTime,
		})
	}
	return items
}

func convertSnapshot(snap *datasource.Snapshot) api.SchemaResponse {
	tables := make([]api.TableSchema, 0, len(snap.Tables))
	for _, table := range snap.Tables {
		primary := make(map[string]bool, len(table.PrimaryKey))
		for _, col := range table.PrimaryKey {
			primary[col] = true
		}

		columns := make([]api.ColumnSchema, 0, len(table.Columns))
		for _, col := range table.Columns {
			columns = append(columns, api.ColumnSchema{
				Name:       col.Name,
				Type:       col.Type,
				Nullable:   col.Nullable,
				Default:    col.Default,
				PrimaryKey: primary[col.Name],
			})
		}

		var foreignKeys []api.ForeignKey
		for _, fk := range table.ForeignKeys {
			foreignKeys = append(foreignKeys, api.ForeignKey{
				Column:    fk.Column,
				RefTable:  fk.RefTable,
				RefColumn: fk.RefColumn,
			})
		}

		tables = append(tables, api.TableSchema{
			Name:        table.Name,
			Columns:     columns,
			ForeignKeys: foreignKeys,
		})
	}

	return api.SchemaResponse{Tables: tables}
}
