package database

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SQLite only supports one writer at a time, so we need a lock
// whenever we write to the database
var dbMutex sync.Mutex

func CreateSession(ctx context.Context, db *gorm.DB, title string) (QuerySession, error) {
	session := QuerySession{
		Id:           uuid.New(),
		Title:        title,
		CreationTime: time.Now().UTC(),
	}

	dbMutex.Lock()
	defer dbMutex.Unlock()
	err := db.WithContext(ctx).Create(&session).Error
	return session, err
}

func GetSessions(ctx context.Context, db *gorm.DB) ([]QuerySession, error) {
	var sessions []QuerySession
	err := db.WithContext(ctx).Order("creation_time ASC").Find(&sessions).Error
	return sessions, err
}

func GetSession(ctx context.Context, db *gorm.DB, sessionId uuid.UUID) (QuerySession, error) {
	var session QuerySession
	err := db.WithContext(ctx).First(&session, "id = ?", sessionId).Error
	return session, err
}

func DeleteSession(ctx context.Context, db *gorm.DB, sessionId uuid.UUID) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	if err := db.WithContext(ctx).Delete(&QueryRecord{}, "session_id = ?", sessionId).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Delete(&QuerySession{}, "id = ?", sessionId).Error
}

func SaveRecord(ctx context.Context, db *gorm.DB, record *QueryRecord) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.WithContext(ctx).Create(record).Error
}

func GetRecord(ctx context.Context, db *gorm.DB, recordId uuid.UUID) (QueryRecord, error) {
	var record QueryRecord
	err := db.WithContext(ctx).First(&record, "id = ?", recordId).Error
	return record, err
}

func GetQueryHistory(ctx context.Context, db *gorm.DB, sessionId uuid.UUID) ([]QueryRecord, error) {
	var records []QueryRecord
	err := db.WithContext(ctx).Where("session_id = ?", sessionId).Order("creation_time ASC").Find(&records).Error
	return records, err
}

// RecentExchanges returns the last n completed records in chronological order,
// used to replay conversation history to the LLM.
func RecentExchanges(ctx context.Context, db *gorm.DB, sessionId uuid.UUID, n int) ([]QueryRecord, error) {
	var records []QueryRecord
	err := db.WithContext(ctx).
		Where("session_id = ? AND status = ?", sessionId, QueryCompleted).
		Order("creation_time DESC").
		Limit(n).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}
