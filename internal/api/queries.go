package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"easysql-backend/internal/core"
	"easysql-backend/internal/database"
	"easysql-backend/internal/storage"
	"easysql-backend/pkg/api"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *QueryService) GetQuery(r *http.Request) (any, error) {
	queryId, err := URLParamUUID(r, "query_id")
	if err != nil {
		return nil, err
	}

	record, err := s.loadRecord(r.Context(), queryId)
	if err != nil {
		return nil, err
	}

	return convertRecord(record)
}

func (s *QueryService) BuildQueryChart(r *http.Request) (any, error) {
	queryId, err := URLParamUUID(r, "query_id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.ChartRequest](r)
	if err != nil {
		return nil, err
	}

	record, err := s.loadRecord(r.Context(), queryId)
	if err != nil {
		return nil, err
	}

	result, err := cachedResult(record)
	if err != nil {
		return nil, err
	}

	spec, err := core.BuildChart(result, req)
	if err != nil {
		return nil, CodedError(http.StatusBadRequest, err)
	}

	return spec, nil
}

// DownloadCSV streams the cached result as an attachment, matching the
// download button of the original UI.
func (s *QueryService) DownloadCSV(w http.ResponseWriter, r *http.Request) {
	queryId, err := URLParamUUID(r, "query_id")
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := s.loadRecord(r.Context(), queryId)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := cachedResult(record)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="query_result.csv"`)
	if err := storage.WriteCSV(w, result); err != nil {
		slog.Error("error writing csv response", "query_id", queryId, "error", err)
	}
}

func (s *QueryService) ExportQuery(r *http.Request) (any, error) {
	queryId, err := URLParamUUID(r, "query_id")
	if err != nil {
		return nil, err
	}

	ctx := r.Context()

	record, err := s.loadRecord(ctx, queryId)
	if err != nil {
		return nil, err
	}

	result, err := cachedResult(record)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := storage.WriteCSV(&buf, result); err != nil {
		slog.Error("error encoding csv export", "query_id", queryId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to encode csv export")
	}

	key := storage.ExportKey(record.Id)
	if err := s.exports.PutObject(ctx, s.exportBucket, key, &buf); err != nil {
		slog.Error("error uploading csv export", "query_id", queryId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to upload csv export")
	}

	return api.ExportResponse{
		Bucket:   s.exportBucket,
		Key:      key,
		Location: s.exports.Location(s.exportBucket, key),
	}, nil
}

func (s *QueryService) loadRecord(ctx context.Context, queryId uuid.UUID) (database.QueryRecord, error) {
	record, err := database.GetRecord(ctx, s.db, queryId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return record, CodedErrorf(http.StatusNotFound, "query not found")
		}
		slog.Error("error getting query record", "query_id", queryId, "error", err)
		return record, CodedErrorf(http.StatusInternalServerError, "error retrieving query record")
	}
	return record, nil
}

// cachedResult decodes the result payload persisted with a completed record.
func cachedResult(record database.QueryRecord) (*api.ResultPayload, error) {
	if record.Status != database.QueryCompleted || len(record.Result) == 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "query %s has no cached result", record.Id)
	}

	var result api.ResultPayload
	if err := json.Unmarshal(record.Result, &result); err != nil {
		return nil, CodedError(http.StatusInternalServerError, fmt.Errorf("error decoding cached result: %w", err))
	}

	return &result, nil
}
