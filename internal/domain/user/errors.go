package user

import "errors"

var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidRole          = errors.New("invalid role")
	ErrImportJobNotFound    = errors.New("import job not found")

	// ErrJobNotLeased means the attempt no longer holds the job: it left the
	// running state or was re-claimed by a later attempt.
	ErrJobNotLeased = errors.New("import job is not leased by this attempt")

	ErrUnreadableFile = errors.New("unreadable file")
	ErrEmptyDataset   = errors.New("empty dataset")
	ErrWriteFailure   = errors.New("write failure")
)
