package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	QueryCompleted string = "completed"
	QueryFailed    string = "failed"
)

type QuerySession struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title        string
	CreationTime time.Time

	Records []QueryRecord `gorm:"foreignKey:SessionId;constraint:OnDelete:CASCADE"`
}

type QueryRecord struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId uuid.UUID `gorm:"type:uuid;index;not null"`

	Question string `gorm:"not null"`
	SQL      string
	Status   string `gorm:"size:20;not null"`
	Error    string

	RowCount   int
	Truncated  bool
	DurationMs int64

	SuggestedChart string         `gorm:"size:20"`
	Result         datatypes.JSON `gorm:"type:jsonb"` // cached result payload
	Chart          datatypes.JSON `gorm:"type:jsonb"` // suggested chart spec

	CreationTime time.Time `gorm:"index"`
}
