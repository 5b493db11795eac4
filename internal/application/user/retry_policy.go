package user

import (
	"errors"
	"time"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
)

// RetryPolicy maps a failed attempt to the delay before the next one.
// The attempt budget itself lives on the job (MaxAttempts).
type RetryPolicy struct {
	EmptyDatasetDelay time.Duration
	FileNotFoundDelay time.Duration
	FailureDelay      time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		EmptyDatasetDelay: 10 * time.Second,
		FileNotFoundDelay: 30 * time.Second,
		FailureDelay:      60 * time.Second,
	}
}

func (p RetryPolicy) DelayFor(err error) time.Duration {
	switch {
	case errors.Is(err, domain.ErrEmptyDataset):
		return p.EmptyDatasetDelay
	case errors.Is(err, domain.ErrUnreadableFile):
		return p.FileNotFoundDelay
	default:
		return p.FailureDelay
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.EmptyDatasetDelay <= 0 {
		p.EmptyDatasetDelay = def.EmptyDatasetDelay
	}
	if p.FileNotFoundDelay <= 0 {
		p.FileNotFoundDelay = def.FileNotFoundDelay
	}
	if p.FailureDelay <= 0 {
		p.FailureDelay = def.FailureDelay
	}
	return p
}
