package api

import (
	"errors"
	"net/http"

	"easysql-backend/internal/core"
	"easysql-backend/internal/datasource"
	"easysql-backend/internal/storage"
	"easysql-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type QueryService struct {
	db           *gorm.DB
	source       *datasource.Source
	engine       *core.Engine
	exports      storage.ObjectStore
	exportBucket string
}

func NewQueryService(db *gorm.DB, source *datasource.Source, engine *core.Engine, exports storage.ObjectStore, exportBucket string) *QueryService {
	return &QueryService{
		db:           db,
		source:       source,
		engine:       engine,
		exports:      exports,
		exportBucket: exportBucket,
	}
}

func (s *QueryService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(s.Health))
	r.Get("/schema", RestHandler(s.GetSchema))
	r.Get("/examples", RestHandler(s.GetExamples))

	r.Route("/tables", func(r chi.Router) {
		r.Get("/", RestHandler(s.GetTables))
		r.Get("/{table}/stats", RestHandler(s.GetTableStats))
		r.Get("/{table}/sample", RestHandler(s.GetTableSample))
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", RestHandler(s.CreateSession))
		r.Get("/", RestHandler(s.GetSessions))
		r.Delete("/{session_id}", RestHandler(s.DeleteSession))
		r.Get("/{session_id}/queries", RestHandler(s.GetSessionQueries))
		r.Post("/{session_id}/queries", RestHandler(s.Ask))
	})

	r.Route("/queries", func(r chi.Router) {
		r.Get("/{query_id}", RestHandler(s.GetQuery))
		r.Post("/{query_id}/chart", RestHandler(s.BuildQueryChart))
		r.Get("/{query_id}/csv", s.DownloadCSV)
		r.Post("/{query_id}/export", RestHandler(s.ExportQuery))
	})
}

func (s *QueryService) Health(r *http.Request) (any, error) {
	if err := s.source.Ping(r.Context()); err != nil {
		return nil, CodedErrorf(http.StatusServiceUnavailable, "datasource unreachable: %v", err)
	}

	return api.HealthResponse{Status: "ok", Database: s.source.Engine()}, nil
}

func (s *QueryService) GetSchema(r *http.Request) (any, error) {
	snap, err := s.source.Snapshot(r.Context())
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error reading datasource schema: %v", err)
	}

	return convertSnapshot(snap), nil
}

func (s *QueryService) GetExamples(r *http.Request) (any, error) {
	return api.GetExamplesResponse{Questions: core.ExampleQuestions}, nil
}

func (s *QueryService) GetTables(r *http.Request) (any, error) {
	ctx := r.Context()

	names, err := s.source.Tables(ctx)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing tables: %v", err)
	}

	tables := make([]api.TableInfo, 0, len(names))
	for _, name := range names {
		stats, err := s.source.TableStats(ctx, name)
		if err != nil {
			return nil, CodedErrorf(http.StatusInternalServerError, "error reading stats for table %s: %v", name, err)
		}
		tables = append(tables, api.TableInfo{
			Name:        name,
			RowCount:    stats.RowCount,
			ColumnCount: stats.ColumnCount,
		})
	}

	return api.GetTablesResponse{Tables: tables}, nil
}

func (s *QueryService) GetTableStats(r *http.Request) (any, error) {
	table, err := URLParamTable(r)
	if err != nil {
		return nil, err
	}

	stats, err := s.source.TableStats(r.Context(), table)
	if err != nil {
		return nil, tableError(table, err)
	}

	return api.TableStats{
		Name:        table,
		RowCount:    stats.RowCount,
		Columns:     stats.Columns,
		ColumnCount: stats.ColumnCount,
	}, nil
}

func (s *QueryService) GetTableSample(r *http.Request) (any, error) {
	table, err := URLParamTable(r)
	if err != nil {
		return nil, err
	}

	params, err := ParseRequestQueryParams[api.SampleParams](r)
	if err != nil {
		return nil, err
	}

	sample, err := s.source.SampleRows(r.Context(), table, params.Limit)
	if err != nil {
		return nil, tableError(table, err)
	}

	return core.ToResultPayload(sample), nil
}

func tableError(table string, err error) error {
	if errors.Is(err, datasource.ErrUnknownTable) {
		return CodedErrorf(http.StatusNotFound, "table %s not found", table)
	}
	return CodedErrorf(http.StatusInternalServerError, "error reading table %s: %v", table, err)
}
