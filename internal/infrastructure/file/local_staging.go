package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const maxNameAttempts = 100

// LocalStaging keeps uploaded spreadsheets in a directory until their import
// job succeeds. Staged references are file names relative to BaseDir.
type LocalStaging struct {
	BaseDir string
}

func NewLocalStaging(baseDir string) (*LocalStaging, error) {
	if baseDir == "" {
		baseDir = "."
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir %s: %w", baseDir, err)
	}
	return &LocalStaging{BaseDir: baseDir}, nil
}

// Save writes content under name. When name is already taken, "-1", "-2"...
// is appended to the stem so an earlier upload is never overwritten.
func (s *LocalStaging) Save(ctx context.Context, name string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		candidate := CandidateName(name, attempt)
		path := filepath.Join(s.BaseDir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create staged file %s: %w", path, err)
		}

		if _, err := io.Copy(f, content); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("write staged file %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("close staged file %s: %w", path, err)
		}
		return candidate, nil
	}

	return "", fmt.Errorf("stage %s: no free name after %d attempts", name, maxNameAttempts)
}

func (s *LocalStaging) Open(ctx context.Context, stagedPath string) (io.ReadCloser, error) {
	_ = ctx

	path := s.resolve(stagedPath)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", path, err)
	}
	return file, nil
}

// Remove deletes a staged file; a file that is already gone is not an error.
func (s *LocalStaging) Remove(ctx context.Context, stagedPath string) error {
	_ = ctx

	path := s.resolve(stagedPath)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file %s: %w", path, err)
	}
	return nil
}

func (s *LocalStaging) resolve(stagedPath string) string {
	if filepath.IsAbs(stagedPath) {
		return stagedPath
	}
	return filepath.Join(s.BaseDir, stagedPath)
}

// CandidateName returns name for attempt 0 and "<stem>-<attempt><ext>" after.
func CandidateName(name string, attempt int) string {
	if attempt == 0 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), attempt, ext)
}
