package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
)

type ImportJobSummaryOutput struct {
	Total     int64 `json:"total"`
	Processed int64 `json:"processed"`
	Skipped   int64 `json:"skipped"`
	Inserted  int64 `json:"inserted"`
	Updated   int64 `json:"updated"`
}

type GetImportJobOutput struct {
	ID          string                  `json:"id"`
	Status      string                  `json:"status"`
	Attempts    int                     `json:"attempts"`
	MaxAttempts int                     `json:"max_attempts"`
	LastError   string                  `json:"last_error,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	Summary     *ImportJobSummaryOutput `json:"summary,omitempty"`
}

type GetImportJob interface {
	Execute(ctx context.Context, jobID string) (GetImportJobOutput, error)
}

type importJobReader interface {
	Get(ctx context.Context, jobID string) (*domain.ImportJob, error)
}

type getImportJob struct {
	repo importJobReader
}

func NewGetImportJob(repo importJobReader) GetImportJob {
	return &getImportJob{repo: repo}
}

func (uc *getImportJob) Execute(ctx context.Context, jobID string) (GetImportJobOutput, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return GetImportJobOutput{}, ErrEmptyJobIdentifier
	}

	job, err := uc.repo.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrImportJobNotFound) {
			return GetImportJobOutput{}, ErrImportJobNotFound
		}
		return GetImportJobOutput{}, fmt.Errorf("%w: %v", ErrGetImportJob, err)
	}

	out := GetImportJobOutput{
		ID:          job.ID,
		Status:      string(job.Status),
		Attempts:    job.Attempts,
		MaxAttempts: job.MaxAttempts,
		LastError:   job.LastError,
		CreatedAt:   job.CreatedAt,
	}
	if job.Summary != nil {
		out.Summary = &ImportJobSummaryOutput{
			Total:     job.Summary.TotalCount,
			Processed: job.Summary.ProcessedCount,
			Skipped:   job.Summary.SkippedCount,
			Inserted:  job.Summary.InsertedCount,
			Updated:   job.Summary.UpdatedCount,
		}
	}
	return out, nil
}
