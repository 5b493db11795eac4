package models

import "time"

type ImportJob struct {
	ID             string         `gorm:"type:uuid;primaryKey"`
	StagedPath     string         `gorm:"type:text;not null"`
	Status         string         `gorm:"type:text;not null"`
	Attempts       int            `gorm:"not null"`
	MaxAttempts    int            `gorm:"not null"`
	LastError      *string        `gorm:"type:text"`
	TotalCount     int64          `gorm:"not null"`
	ProcessedCount int64          `gorm:"not null"`
	SkippedCount   int64          `gorm:"not null"`
	InsertedCount  int64          `gorm:"not null"`
	UpdatedCount   int64          `gorm:"not null"`
	Rejections     []RowRejection `gorm:"serializer:json;type:jsonb"`
	RunAt          time.Time      `gorm:"not null"`
	HeartbeatAt    *time.Time
	LeaseExpiresAt *time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type RowRejection struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func (ImportJob) TableName() string {
	return "import_jobs"
}
