package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
	"github.com/mohammadpnp/user-directory/internal/infrastructure/db/models"
)

const claimNextSQL = `
UPDATE import_jobs
SET status = 'running',
    attempts = attempts + 1,
    lease_expires_at = NOW() + make_interval(secs => ?),
    heartbeat_at = NOW(),
    started_at = COALESCE(started_at, NOW()),
    updated_at = NOW()
WHERE id = (
    SELECT id
    FROM import_jobs
    WHERE (status IN ('pending', 'retry_scheduled') AND run_at <= NOW())
       OR (status = 'running' AND lease_expires_at < NOW())
    ORDER BY run_at, created_at
    FOR UPDATE SKIP LOCKED
    LIMIT 1
)
RETURNING *
`

// ImportJobRepository is the Postgres job queue backend. Claims use
// FOR UPDATE SKIP LOCKED so concurrent workers never share a job.
type ImportJobRepository struct {
	db          *gorm.DB
	maxAttempts int
}

func NewImportJobRepository(db *gorm.DB, maxAttempts int) *ImportJobRepository {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &ImportJobRepository{db: db, maxAttempts: maxAttempts}
}

func (r *ImportJobRepository) Enqueue(ctx context.Context, stagedPath string) (string, error) {
	job := models.ImportJob{
		ID:          uuid.NewString(),
		StagedPath:  stagedPath,
		Status:      string(domain.ImportJobPending),
		MaxAttempts: r.maxAttempts,
		RunAt:       time.Now().UTC(),
	}

	if err := r.db.WithContext(ctx).Create(&job).Error; err != nil {
		return "", fmt.Errorf("create import job: %w", err)
	}

	return job.ID, nil
}

func (r *ImportJobRepository) Get(ctx context.Context, jobID string) (*domain.ImportJob, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, domain.ErrImportJobNotFound
	}

	var row models.ImportJob
	err := r.db.WithContext(ctx).First(&row, "id = ?", jobID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrImportJobNotFound
		}
		return nil, fmt.Errorf("get import job: %w", err)
	}

	return toDomainJob(row), nil
}

func (r *ImportJobRepository) ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.ImportJob, error) {
	var rows []models.ImportJob
	if err := r.db.WithContext(ctx).Raw(claimNextSQL, leaseDuration.Seconds()).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("claim import job: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return toDomainJob(rows[0]), nil
}

func (r *ImportJobRepository) Heartbeat(ctx context.Context, jobID string, attempt int, leaseDuration time.Duration) error {
	return r.updateRunning(ctx, jobID, attempt, map[string]any{
		"heartbeat_at":     gorm.Expr("NOW()"),
		"lease_expires_at": gorm.Expr("NOW() + make_interval(secs => ?)", leaseDuration.Seconds()),
	})
}

func (r *ImportJobRepository) Complete(ctx context.Context, jobID string, attempt int, summary domain.ImportSummary) error {
	return r.updateRunning(ctx, jobID, attempt, map[string]any{
		"status":           string(domain.ImportJobSucceeded),
		"last_error":       nil,
		"total_count":      summary.TotalCount,
		"processed_count":  summary.ProcessedCount,
		"skipped_count":    summary.SkippedCount,
		"inserted_count":   summary.InsertedCount,
		"updated_count":    summary.UpdatedCount,
		"rejections":       rejectionsJSON(summary.Rejections),
		"lease_expires_at": nil,
		"finished_at":      gorm.Expr("NOW()"),
	})
}

func (r *ImportJobRepository) Retry(ctx context.Context, jobID string, attempt int, delay time.Duration, reason string) error {
	return r.updateRunning(ctx, jobID, attempt, map[string]any{
		"status":           string(domain.ImportJobRetryScheduled),
		"last_error":       reason,
		"run_at":           gorm.Expr("NOW() + make_interval(secs => ?)", delay.Seconds()),
		"lease_expires_at": nil,
	})
}

func (r *ImportJobRepository) Fail(ctx context.Context, jobID string, attempt int, reason string) error {
	return r.updateRunning(ctx, jobID, attempt, map[string]any{
		"status":           string(domain.ImportJobFailed),
		"last_error":       reason,
		"lease_expires_at": nil,
		"finished_at":      gorm.Expr("NOW()"),
	})
}

// updateRunning applies values only while the job is running under the
// given attempt. A re-claim increments attempts, which fences off writes
// from the worker whose lease lapsed.
func (r *ImportJobRepository) updateRunning(ctx context.Context, jobID string, attempt int, values map[string]any) error {
	values["updated_at"] = gorm.Expr("NOW()")

	result := r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ? AND status = ? AND attempts = ?", jobID, string(domain.ImportJobRunning), attempt).
		Updates(values)
	if result.Error != nil {
		return fmt.Errorf("update import job %s: %w", jobID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s attempt %d", domain.ErrJobNotLeased, jobID, attempt)
	}
	return nil
}

func toDomainJob(row models.ImportJob) *domain.ImportJob {
	job := &domain.ImportJob{
		ID:          row.ID,
		StagedPath:  row.StagedPath,
		Status:      domain.ImportJobStatus(row.Status),
		Attempts:    row.Attempts,
		MaxAttempts: row.MaxAttempts,
		RunAt:       row.RunAt,
		CreatedAt:   row.CreatedAt,
	}
	if row.LastError != nil {
		job.LastError = *row.LastError
	}
	if job.Status == domain.ImportJobSucceeded {
		summary := &domain.ImportSummary{
			TotalCount:     row.TotalCount,
			ProcessedCount: row.ProcessedCount,
			SkippedCount:   row.SkippedCount,
			InsertedCount:  row.InsertedCount,
			UpdatedCount:   row.UpdatedCount,
		}
		for _, rejection := range row.Rejections {
			summary.Rejections = append(summary.Rejections, domain.RowOutcome{RowIndex: rejection.Row, Reason: rejection.Reason})
		}
		job.Summary = summary
	}
	return job
}

// rejectionsJSON encodes rejections for the jsonb column; map-based updates
// bypass the model's json serializer.
func rejectionsJSON(outcomes []domain.RowOutcome) any {
	if len(outcomes) == 0 {
		return nil
	}
	rejections := make([]models.RowRejection, 0, len(outcomes))
	for _, outcome := range outcomes {
		rejections = append(rejections, models.RowRejection{Row: outcome.RowIndex, Reason: outcome.Reason})
	}
	encoded, err := json.Marshal(rejections)
	if err != nil {
		return nil
	}
	return string(encoded)
}
