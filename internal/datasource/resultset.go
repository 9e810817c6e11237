package datasource

import (
	"database/sql"
	"strings"
	"time"
)

// Kind buckets a column into the coarse classes the chart picker works with.
type Kind string

const (
	KindNumeric Kind = "numeric"
	KindText    Kind = "text"
	KindTime    Kind = "time"
	KindBool    Kind = "bool"
)

type Column struct {
	Name         string
	DatabaseType string
	Kind         Kind
}

type ResultSet struct {
	Columns   []Column
	Rows      [][]any
	RowCount  int
	Truncated bool
	Duration  time.Duration
}

// scanRows drains rows into a ResultSet, stopping once limit rows have been
// read and marking the result truncated. A limit <= 0 means no cap.
func scanRows(rows *sql.Rows, limit int) (*ResultSet, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Columns: make([]Column, len(types)), Rows: [][]any{}}
	for i, t := range types {
		rs.Columns[i] = Column{
			Name:         t.Name(),
			DatabaseType: t.DatabaseTypeName(),
			Kind:         kindOfType(t.DatabaseTypeName()),
		}
	}

	for rows.Next() {
		if limit > 0 && rs.RowCount >= limit {
			rs.Truncated = true
			break
		}

		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make([]any, len(types))
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			} else {
				row[i] = v
			}
		}
		rs.Rows = append(rs.Rows, row)
		rs.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Drivers report no type name for computed columns like COUNT(*); fall
	// back to inspecting the scanned values.
	for i := range rs.Columns {
		if rs.Columns[i].Kind == "" {
			rs.Columns[i].Kind = kindOfValues(rs.Rows, i)
		}
	}

	return rs, nil
}

func kindOfType(databaseType string) Kind {
	t := strings.ToUpper(databaseType)
	switch {
	case t == "":
		return ""
	case strings.Contains(t, "BOOL"):
		return KindBool
	case strings.Contains(t, "DATE") || strings.Contains(t, "TIME") || t == "YEAR":
		return KindTime
	case strings.Contains(t, "INT") || strings.Contains(t, "REAL") ||
		strings.Contains(t, "FLOAT") || strings.Contains(t, "DOUBLE") ||
		strings.Contains(t, "DECIMAL") || strings.Contains(t, "NUMERIC") ||
		strings.Contains(t, "SERIAL") || strings.Contains(t, "MONEY"):
		return KindNumeric
	default:
		return KindText
	}
}

func kindOfValues(rows [][]any, col int) Kind {
	for _, row := range rows {
		switch row[col].(type) {
		case nil:
			continue
		case int64, int32, int, float64, float32, uint64:
			return KindNumeric
		case bool:
			return KindBool
		case time.Time:
			return KindTime
		default:
			return KindText
		}
	}
	return KindText
}
