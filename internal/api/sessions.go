package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"easysql-backend/internal/core"
	"easysql-backend/internal/database"
	"easysql-backend/pkg/api"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *QueryService) CreateSession(r *http.Request) (any, error) {
	req, err := ParseRequest[api.CreateSessionRequest](r)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New session"
	}

	session, err := database.CreateSession(r.Context(), s.db, title)
	if err != nil {
		slog.Error("error creating session", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create session")
	}

	return convertSession(session), nil
}

func (s *QueryService) GetSessions(r *http.Request) (any, error) {
	sessions, err := database.GetSessions(r.Context(), s.db)
	if err != nil {
		slog.Error("error listing sessions", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving sessions")
	}

	return api.GetSessionsResponse{Sessions: convertSessions(sessions)}, nil
}

func (s *QueryService) DeleteSession(r *http.Request) (any, error) {
	sessionId, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	ctx := r.Context()

	if _, err := s.loadSession(ctx, sessionId); err != nil {
		return nil, err
	}

	if err := database.DeleteSession(ctx, s.db, sessionId); err != nil {
		slog.Error("error deleting session", "session_id", sessionId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to delete session")
	}

	return nil, nil
}

func (s *QueryService) GetSessionQueries(r *http.Request) (any, error) {
	sessionId, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	ctx := r.Context()

	if _, err := s.loadSession(ctx, sessionId); err != nil {
		return nil, err
	}

	records, err := database.GetQueryHistory(ctx, s.db, sessionId)
	if err != nil {
		slog.Error("error getting query history", "session_id", sessionId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving query history")
	}

	return api.GetHistoryResponse{Queries: convertRecords(records)}, nil
}

func (s *QueryService) Ask(r *http.Request) (any, error) {
	sessionId, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.AskRequest](r)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Question) == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "question is required")
	}

	ctx := r.Context()

	if _, err := s.loadSession(ctx, sessionId); err != nil {
		return nil, err
	}

	answer, err := s.engine.Ask(ctx, sessionId, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrRejected), errors.Is(err, core.ErrExecution):
			return nil, CodedError(http.StatusBadRequest, err)
		case errors.Is(err, core.ErrTranslation):
			return nil, CodedError(http.StatusBadGateway, err)
		default:
			slog.Error("error answering question", "session_id", sessionId, "error", err)
			return nil, CodedErrorf(http.StatusInternalServerError, "error answering question")
		}
	}

	return answer, nil
}

func (s *QueryService) loadSession(ctx context.Context, sessionId uuid.UUID) (database.QuerySession, error) {
	session, err := database.GetSession(ctx, s.db, sessionId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return session, CodedErrorf(http.StatusNotFound, "session not found")
		}
		slog.Error("error getting session", "session_id", sessionId, "error", err)
		return session, CodedErrorf(http.StatusInternalServerError, "error retrieving session record")
	}
	return session, nil
}
