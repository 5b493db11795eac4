package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
	"github.com/mohammadpnp/user-directory/internal/infrastructure/repository"
)

var importJobColumns = []string{
	"id", "staged_path", "status", "attempts", "max_attempts", "last_error",
	"total_count", "processed_count", "skipped_count", "inserted_count", "updated_count",
	"rejections", "run_at", "created_at", "updated_at",
}

func TestImportJobRepositoryEnqueue(t *testing.T) {
	t.Parallel()

	gdb, mock := newMockDB(t)
	mock.ExpectExec(`INSERT INTO "import_jobs"`).WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repository.NewImportJobRepository(gdb, 3).Enqueue(context.Background(), "users_1700000000.xlsx")
	require.NoError(t, err)
	assert.Len(t, id, 36)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImportJobRepositoryGetUnknownJob(t *testing.T) {
	t.Parallel()

	gdb, mock := newMockDB(t)
	repo := repository.NewImportJobRepository(gdb, 3)

	_, err := repo.Get(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, domain.ErrImportJobNotFound)

	mock.ExpectQuery(`SELECT \* FROM "import_jobs" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(importJobColumns))

	_, err = repo.Get(context.Background(), "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	require.ErrorIs(t, err, domain.ErrImportJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImportJobRepositoryGetSucceededJobCarriesSummary(t *testing.T) {
	t.Parallel()

	gdb, mock := newMockDB(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT \* FROM "import_jobs"`).
		WillReturnRows(sqlmock.NewRows(importJobColumns).AddRow(
			"1b4e28ba-2fa1-11d2-883f-0016d3cca427", "users_1.xlsx", "succeeded", 1, 3, nil,
			3, 2, 1, 1, 1, []byte(`[{"row":2,"reason":"missing required field: email"}]`), now, now, now,
		))

	job, err := repository.NewImportJobRepository(gdb, 3).Get(context.Background(), "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	require.NoError(t, err)

	assert.Equal(t, domain.ImportJobSucceeded, job.Status)
	require.NotNil(t, job.Summary)
	assert.Equal(t, int64(1), job.Summary.SkippedCount)
	require.Len(t, job.Summary.Rejections, 1)
	assert.Equal(t, 2, job.Summary.Rejections[0].RowIndex)
}

func TestImportJobRepositoryClaimNext(t *testing.T) {
	t.Parallel()

	gdb, mock := newMockDB(t)
	repo := repository.NewImportJobRepository(gdb, 3)
	now := time.Now().UTC()

	mock.ExpectQuery(`UPDATE import_jobs\s+SET status = 'running'`).
		WithArgs(float64(60)).
		WillReturnRows(sqlmock.NewRows(importJobColumns))

	job, err := repo.ClaimNext(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Nil(t, job)

	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows(importJobColumns).AddRow(
			"1b4e28ba-2fa1-11d2-883f-0016d3cca427", "users_1.xlsx", "running", 2, 3, "empty dataset",
			0, 0, 0, 0, 0, nil, now, now, now,
		))

	job, err = repo.ClaimNext(context.Background(), time.Minute)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, domain.ImportJobRunning, job.Status)
	assert.Equal(t, 2, job.Attempts)
	assert.Equal(t, "empty dataset", job.LastError)
	assert.Nil(t, job.Summary)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImportJobRepositoryOutcomesAreFencedByAttempt(t *testing.T) {
	t.Parallel()

	gdb, mock := newMockDB(t)
	repo := repository.NewImportJobRepository(gdb, 3)
	ctx := context.Background()
	id := "1b4e28ba-2fa1-11d2-883f-0016d3cca427"

	mock.ExpectExec(`UPDATE "import_jobs" SET .* WHERE id = \$\d+ AND status = \$\d+ AND attempts = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Retry(ctx, id, 1, 10*time.Second, "empty dataset"))

	// Attempt 1 lost its lease and attempt 2 holds the job now.
	mock.ExpectExec(`UPDATE "import_jobs" SET .* AND attempts = \$\d+`).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Fail(ctx, id, 1, "boom")
	require.ErrorIs(t, err, domain.ErrJobNotLeased)
	assert.Contains(t, err.Error(), "attempt 1")

	mock.ExpectExec(`UPDATE "import_jobs" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Complete(ctx, id, 2, domain.ImportSummary{
		TotalCount:     2,
		ProcessedCount: 1,
		SkippedCount:   1,
		Rejections:     []domain.RowOutcome{{RowIndex: 2, Reason: "invalid role"}},
	}))

	mock.ExpectExec(`UPDATE "import_jobs" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Heartbeat(ctx, id, 1, time.Minute), domain.ErrJobNotLeased)

	require.NoError(t, mock.ExpectationsWereMet())
}
