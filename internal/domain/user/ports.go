package user

import (
	"context"
	"time"
)

type ImportJobRepository interface {
	Enqueue(ctx context.Context, stagedPath string) (string, error)
	Get(ctx context.Context, jobID string) (*ImportJob, error)
}

// ImportJobQueue is the worker side of the job queue. ClaimNext hands out at
// most one ready job per call, marks it running and increments its attempt
// counter; it returns nil when nothing is ready.
//
// The claimed attempt number fences every later write: once another claim
// bumps the counter, calls made with the old attempt return ErrJobNotLeased.
type ImportJobQueue interface {
	ClaimNext(ctx context.Context, leaseDuration time.Duration) (*ImportJob, error)
	Heartbeat(ctx context.Context, jobID string, attempt int, leaseDuration time.Duration) error
	Complete(ctx context.Context, jobID string, attempt int, summary ImportSummary) error
	Retry(ctx context.Context, jobID string, attempt int, delay time.Duration, reason string) error
	Fail(ctx context.Context, jobID string, attempt int, reason string) error
}

type UserUpserter interface {
	Upsert(ctx context.Context, users []CanonicalUser) (UpsertResult, error)
}

// UserRowUpdater updates one user inside an open transaction. A store error
// for one row must leave the transaction usable for the next row.
type UserRowUpdater interface {
	UpdateEmailRole(ctx context.Context, id int64, email string, role Role) (bool, error)
}
