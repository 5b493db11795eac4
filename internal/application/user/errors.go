package user

import "errors"

var (
	ErrNoSelectedFile     = errors.New("no selected file")
	ErrInvalidFileType    = errors.New("invalid file type")
	ErrStageUpload        = errors.New("failed to stage upload")
	ErrEnqueueImportJob   = errors.New("failed to enqueue import job")
	ErrListUsers          = errors.New("failed to list users")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrBatchUpdate        = errors.New("batch update failed")
	ErrImportJobNotFound  = errors.New("import job not found")
	ErrGetImportJob       = errors.New("failed to get import job")
	ErrEmptyJobIdentifier = errors.New("empty import job id")
)
