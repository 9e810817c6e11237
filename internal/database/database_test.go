package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := New(fmt.Sprintf("sqlite:///%s", filepath.Join(t.TempDir(), "history.db")))
	require.NoError(t, err)
	return db
}

func completedRecord(sessionId uuid.UUID, question, sql string, at time.Time) *QueryRecord {
	return &QueryRecord{
		Id:           uuid.New(),
		SessionId:    sessionId,
		Question:     question,
		SQL:          sql,
		Status:       QueryCompleted,
		CreationTime: at,
	}
}

func TestNew_UnsupportedURL(t *testing.T) {
	_, err := New("mongodb://localhost/history")
	assert.ErrorContains(t, err, "unsupported history database url")
}

func TestNew_RunsMigrations(t *testing.T) {
	db := setupTestDB(t)

	assert.True(t, db.Migrator().HasTable(&QuerySession{}))
	assert.True(t, db.Migrator().HasTable(&QueryRecord{}))
}

func TestSqlitePath(t *testing.T) {
	assert.Equal(t, "data/history.db", sqlitePath("sqlite:///data/history.db"))
	assert.Equal(t, "/var/lib/history.db", sqlitePath("sqlite:////var/lib/history.db"))
	assert.Equal(t, ":memory:", sqlitePath("sqlite://:memory:"))
}

func TestSessionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first, err := CreateSession(ctx, db, "sales questions")
	require.NoError(t, err)
	second, err := CreateSession(ctx, db, "inventory questions")
	require.NoError(t, err)

	session, err := GetSession(ctx, db, first.Id)
	require.NoError(t, err)
	assert.Equal(t, "sales questions", session.Title)

	sessions, err := GetSessions(ctx, db)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	require.NoError(t, DeleteSession(ctx, db, first.Id))

	_, err = GetSession(ctx, db, first.Id)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	sessions, err = GetSessions(ctx, db)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, second.Id, sessions[0].Id)
}

func TestDeleteSession_RemovesRecords(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	session, err := CreateSession(ctx, db, "test")
	require.NoError(t, err)

	record := completedRecord(session.Id, "how many orders?", "SELECT COUNT(*) FROM orders", time.Now().UTC())
	require.NoError(t, SaveRecord(ctx, db, record))

	require.NoError(t, DeleteSession(ctx, db, session.Id))

	_, err = GetRecord(ctx, db, record.Id)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSaveAndGetRecord(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	session, err := CreateSession(ctx, db, "test")
	require.NoError(t, err)

	record := &QueryRecord{
		Id:             uuid.New(),
		SessionId:      session.Id,
		Question:       "total sales by city",
		SQL:            "SELECT city, SUM(total) FROM sales GROUP BY city",
		Status:         QueryCompleted,
		RowCount:       3,
		Truncated:      false,
		DurationMs:     12,
		SuggestedChart: "bar",
		Result:         datatypes.JSON([]byte(`{"row_count":3}`)),
		Chart:          datatypes.JSON([]byte(`{"type":"bar"}`)),
		CreationTime:   time.Now().UTC(),
	}
	require.NoError(t, SaveRecord(ctx, db, record))

	got, err := GetRecord(ctx, db, record.Id)
	require.NoError(t, err)
	assert.Equal(t, record.Question, got.Question)
	assert.Equal(t, record.SQL, got.SQL)
	assert.Equal(t, QueryCompleted, got.Status)
	assert.Equal(t, 3, got.RowCount)
	assert.Equal(t, "bar", got.SuggestedChart)
	assert.JSONEq(t, `{"row_count":3}`, string(got.Result))
	assert.JSONEq(t, `{"type":"bar"}`, string(got.Chart))
}

func TestGetQueryHistory_ChronologicalOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	session, err := CreateSession(ctx, db, "test")
	require.NoError(t, err)

	base := time.Now().UTC()
	// Inserted out of order on purpose.
	require.NoError(t, SaveRecord(ctx, db, completedRecord(session.Id, "q2", "SELECT 2", base.Add(2*time.Second))))
	require.NoError(t, SaveRecord(ctx, db, completedRecord(session.Id, "q1", "SELECT 1", base.Add(1*time.Second))))
	require.NoError(t, SaveRecord(ctx, db, completedRecord(session.Id, "q3", "SELECT 3", base.Add(3*time.Second))))

	records, err := GetQueryHistory(ctx, db, session.Id)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "q1", records[0].Question)
	assert.Equal(t, "q2", records[1].Question)
	assert.Equal(t, "q3", records[2].Question)
}

func TestGetQueryHistory_ScopedToSession(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first, err := CreateSession(ctx, db, "first")
	require.NoError(t, err)
	second, err := CreateSession(ctx, db, "second")
	require.NoError(t, err)

	require.NoError(t, SaveRecord(ctx, db, completedRecord(first.Id, "mine", "SELECT 1", time.Now().UTC())))
	require.NoError(t, SaveRecord(ctx, db, completedRecord(second.Id, "theirs", "SELECT 2", time.Now().UTC())))

	records, err := GetQueryHistory(ctx, db, first.Id)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "mine", records[0].Question)
}

func TestRecentExchanges(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	session, err := CreateSession(ctx, db, "test")
	require.NoError(t, err)

	base := time.Now().UTC()
	require.NoError(t, SaveRecord(ctx, db, completedRecord(session.Id, "q1", "SELECT 1", base.Add(1*time.Second))))

	failed := completedRecord(session.Id, "q2", "DROP TABLE orders", base.Add(2*time.Second))
	failed.Status = QueryFailed
	failed.Error = "query rejected"
	require.NoError(t, SaveRecord(ctx, db, failed))

	require.NoError(t, SaveRecord(ctx, db, completedRecord(session.Id, "q3", "SELECT 3", base.Add(3*time.Second))))
	require.NoError(t, SaveRecord(ctx, db, completedRecord(session.Id, "q4", "SELECT 4", base.Add(4*time.Second))))

	t.Run("excludes failed records", func(t *testing.T) {
		records, err := RecentExchanges(ctx, db, session.Id, 10)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "q1", records[0].Question)
		assert.Equal(t, "q3", records[1].Question)
		assert.Equal(t, "q4", records[2].Question)
	})

	t.Run("keeps the most recent n in chronological order", func(t *testing.T) {
		records, err := RecentExchanges(ctx, db, session.Id, 2)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "q3", records[0].Question)
		assert.Equal(t, "q4", records[1].Question)
	})

	t.Run("empty session", func(t *testing.T) {
		other, err := CreateSession(ctx, db, "empty")
		require.NoError(t, err)
		records, err := RecentExchanges(ctx, db, other.Id, 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
