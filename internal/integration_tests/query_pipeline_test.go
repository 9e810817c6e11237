package integrationtests

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	backend "easysql-backend/internal/api"
	"easysql-backend/internal/core"
	"easysql-backend/internal/database"
	"easysql-backend/internal/datasource"
	"easysql-backend/internal/llm"
	"easysql-backend/internal/storage"
	"easysql-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedTranslator struct {
	sql string
}

var _ llm.Translator = (*scriptedTranslator)(nil)

func (s *scriptedTranslator) Translate(ctx context.Context, req llm.Request) (string, error) {
	return s.sql, nil
}

// TestQueryPipelineOnPostgres runs the whole ask flow, history store included,
// against a real postgres instead of the sqlite the unit tests use.
func TestQueryPipelineOnPostgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	connStr := setupPostgresContainer(t, ctx)
	seedRetailTables(t, connStr)

	db, err := database.New(connStr)
	require.NoError(t, err)

	source, err := datasource.Open(connStr, 100, 10*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { source.Close() })

	exports, err := storage.NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)

	translator := &scriptedTranslator{
		sql: "SELECT category, SUM(price) AS total FROM products GROUP BY category ORDER BY total DESC",
	}
	service := backend.NewQueryService(db, source, core.NewEngine(db, source, translator, 10), exports, "")

	router := chi.NewRouter()
	service.AddRoutes(router)

	var health api.HealthResponse
	require.NoError(t, httpRequest(router, http.MethodGet, "/health", nil, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "postgres", health.Database)

	var schema api.SchemaResponse
	require.NoError(t, httpRequest(router, http.MethodGet, "/schema", nil, &schema))

	var products *api.TableSchema
	for i := range schema.Tables {
		if schema.Tables[i].Name == "products" {
			products = &schema.Tables[i]
		}
	}
	require.NotNil(t, products, "schema should list the seeded products table")
	assert.Equal(t, []api.ColumnSchema{
		{Name: "product_id", Type: "integer", PrimaryKey: true},
		{Name: "product_name", Type: "text"},
		{Name: "category", Type: "text", Nullable: true},
		{Name: "price", Type: "real"},
		{Name: "stock_quantity", Type: "integer", Nullable: true},
	}, products.Columns)

	var sample api.ResultPayload
	require.NoError(t, httpRequest(router, http.MethodGet, "/tables/products/sample", nil, &sample))
	assert.Equal(t, 4, sample.RowCount)

	var session api.SessionMetadata
	require.NoError(t, httpRequest(router, http.MethodPost, "/sessions", api.CreateSessionRequest{Title: "pg session"}, &session))

	var answer api.QueryAnswer
	require.NoError(t, httpRequest(router, http.MethodPost, fmt.Sprintf("/sessions/%s/queries", session.Id),
		api.AskRequest{Question: "total price by category"}, &answer))

	assert.Equal(t, translator.sql, answer.SQL)
	assert.Equal(t, api.QueryCompleted, answer.Status)
	require.NotNil(t, answer.Result)
	assert.Equal(t, 3, answer.Result.RowCount)
	assert.Equal(t, [][]any{
		{"Electronics", 2000.0},
		{"Books", 30.0},
		{"Clothing", 15.0},
	}, answer.Result.Rows)
	assert.Equal(t, core.ChartBar, answer.SuggestedChart)

	require.Len(t, answer.Summary, 1)
	assert.Equal(t, "total", answer.Summary[0].Column)
	assert.Equal(t, 2045.0, answer.Summary[0].Sum)

	var history api.GetHistoryResponse
	require.NoError(t, httpRequest(router, http.MethodGet, fmt.Sprintf("/sessions/%s/queries", session.Id), nil, &history))
	require.Len(t, history.Queries, 1)
	assert.Equal(t, "total price by category", history.Queries[0].Question)

	var chart api.ChartSpec
	require.NoError(t, httpRequest(router, http.MethodPost, fmt.Sprintf("/queries/%s/chart", answer.QueryId),
		api.ChartRequest{Type: core.ChartPie}, &chart))
	assert.Equal(t, "category", chart.NamesColumn)
	assert.Equal(t, "total", chart.ValuesColumn)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/queries/%s/csv", answer.QueryId), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Equal(t, "category,total\nElectronics,2000\nBooks,30\nClothing,15\n", rr.Body.String())

	var export api.ExportResponse
	require.NoError(t, httpRequest(router, http.MethodPost, fmt.Sprintf("/queries/%s/export", answer.QueryId), nil, &export))
	assert.Equal(t, storage.ExportKey(answer.QueryId), export.Key)

	data, err := os.ReadFile(export.Location)
	require.NoError(t, err)
	assert.Equal(t, rr.Body.String(), string(data))
}
