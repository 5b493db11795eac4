package user

import "time"

type ImportJobStatus string

const (
	ImportJobPending        ImportJobStatus = "pending"
	ImportJobRunning        ImportJobStatus = "running"
	ImportJobRetryScheduled ImportJobStatus = "retry_scheduled"
	ImportJobSucceeded      ImportJobStatus = "succeeded"
	ImportJobFailed         ImportJobStatus = "failed"
)

type ImportJob struct {
	ID          string
	StagedPath  string
	Status      ImportJobStatus
	Attempts    int
	MaxAttempts int
	LastError   string
	RunAt       time.Time
	CreatedAt   time.Time
	Summary     *ImportSummary
}

// RawRow is one spreadsheet data row keyed by normalized header name.
// Index is the 1-based position after the header.
type RawRow struct {
	Index int
	Cells map[string]string
}

type RowOutcome struct {
	RowIndex int
	Reason   string
}

type ImportSummary struct {
	TotalCount     int64
	ProcessedCount int64
	SkippedCount   int64
	InsertedCount  int64
	UpdatedCount   int64
	Rejections     []RowOutcome
}

type UpsertResult struct {
	InsertedCount int64
	UpdatedCount  int64
}

func (r UpsertResult) Applied() int64 {
	return r.InsertedCount + r.UpdatedCount
}
