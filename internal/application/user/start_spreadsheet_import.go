package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

var allowedSpreadsheetExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
}

type StartSpreadsheetImportInput struct {
	Filename string
	Content  io.Reader
}

type StartSpreadsheetImportOutput struct {
	JobID      string `json:"job_id"`
	StagedPath string `json:"-"`
}

type StartSpreadsheetImport interface {
	Execute(ctx context.Context, in StartSpreadsheetImportInput) (StartSpreadsheetImportOutput, error)
}

type fileStager interface {
	Save(ctx context.Context, name string, content io.Reader) (string, error)
	Remove(ctx context.Context, stagedPath string) error
}

type importJobEnqueuer interface {
	Enqueue(ctx context.Context, stagedPath string) (string, error)
}

type startSpreadsheetImport struct {
	stager   fileStager
	enqueuer importJobEnqueuer
	now      func() time.Time
}

func NewStartSpreadsheetImport(stager fileStager, enqueuer importJobEnqueuer) StartSpreadsheetImport {
	return newStartSpreadsheetImport(stager, enqueuer, time.Now)
}

func newStartSpreadsheetImport(stager fileStager, enqueuer importJobEnqueuer, now func() time.Time) *startSpreadsheetImport {
	return &startSpreadsheetImport{stager: stager, enqueuer: enqueuer, now: now}
}

func (uc *startSpreadsheetImport) Execute(ctx context.Context, in StartSpreadsheetImportInput) (StartSpreadsheetImportOutput, error) {
	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		return StartSpreadsheetImportOutput{}, ErrNoSelectedFile
	}

	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := filepath.Ext(base)
	if !allowedSpreadsheetExtensions[strings.ToLower(ext)] {
		return StartSpreadsheetImportOutput{}, ErrInvalidFileType
	}

	stagedName := StagedFileName(base, uc.now())
	stagedPath, err := uc.stager.Save(ctx, stagedName, in.Content)
	if err != nil {
		return StartSpreadsheetImportOutput{}, fmt.Errorf("%w: %v", ErrStageUpload, err)
	}

	jobID, err := uc.enqueuer.Enqueue(ctx, stagedPath)
	if err != nil {
		enqueueErr := fmt.Errorf("%w: %v", ErrEnqueueImportJob, err)
		if removeErr := uc.stager.Remove(ctx, stagedPath); removeErr != nil {
			return StartSpreadsheetImportOutput{}, errors.Join(enqueueErr, fmt.Errorf("remove staged file %s: %w", stagedPath, removeErr))
		}
		return StartSpreadsheetImportOutput{}, enqueueErr
	}

	return StartSpreadsheetImportOutput{
		JobID:      jobID,
		StagedPath: stagedPath,
	}, nil
}

// StagedFileName builds "<stem>_<unixtime><ext>" from an uploaded file name.
func StagedFileName(original string, at time.Time) string {
	ext := filepath.Ext(original)
	stem := strings.TrimSuffix(original, ext)
	return fmt.Sprintf("%s_%d%s", stem, at.Unix(), ext)
}
