package user

import (
	"time"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
)

// ImportObserver receives import lifecycle signals, e.g. for metrics or
// alerting on permanent failures.
type ImportObserver interface {
	JobClaimed(job domain.ImportJob)
	RowRejected(kind string)
	JobSucceeded(job domain.ImportJob, summary domain.ImportSummary, elapsed time.Duration)
	JobRetryScheduled(job domain.ImportJob, delay time.Duration, err error)
	JobFailedPermanently(job domain.ImportJob, err error)
}

type nopObserver struct{}

func (nopObserver) JobClaimed(domain.ImportJob)                                        {}
func (nopObserver) RowRejected(string)                                                 {}
func (nopObserver) JobSucceeded(domain.ImportJob, domain.ImportSummary, time.Duration) {}
func (nopObserver) JobRetryScheduled(domain.ImportJob, time.Duration, error)           {}
func (nopObserver) JobFailedPermanently(domain.ImportJob, error)                       {}
