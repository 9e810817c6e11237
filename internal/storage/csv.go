package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"easysql-backend/pkg/api"

	"github.com/google/uuid"
)

// ExportKey is where a query's CSV lands in the export bucket.
func ExportKey(queryId uuid.UUID) string {
	return fmt.Sprintf("exports/%s.csv", queryId)
}

// WriteCSV encodes a cached result payload. NULLs become empty cells and
// timestamps RFC 3339 so the files load cleanly in spreadsheets.
func WriteCSV(w io.Writer, result *api.ResultPayload) error {
	writer := csv.NewWriter(w)

	header := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		header[i] = col.Name
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}

	for _, values := range result.Rows {
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = formatCell(v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("error writing csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatCell(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case time.Time:
		return value.UTC().Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}
