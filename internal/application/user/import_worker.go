package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
)

const maxStoredRejections = 100

type StagedFileSource interface {
	Open(ctx context.Context, stagedPath string) (io.ReadCloser, error)
	Remove(ctx context.Context, stagedPath string) error
}

type SpreadsheetParser interface {
	Parse(ctx context.Context, r io.Reader) ([]domain.RawRow, error)
}

type ImportWorkerConfig struct {
	Workers           int
	PollInterval      time.Duration
	LeaseDuration     time.Duration
	HeartbeatInterval time.Duration
	Retry             RetryPolicy
}

type ImportWorkerOption func(*ImportWorker)

func WithPasswordHasher(hasher PasswordHasher) ImportWorkerOption {
	return func(w *ImportWorker) {
		if hasher != nil {
			w.hasher = hasher
		}
	}
}

func WithImportObserver(observer ImportObserver) ImportWorkerOption {
	return func(w *ImportWorker) {
		if observer != nil {
			w.observer = observer
		}
	}
}

func WithWorkerLogger(log zerolog.Logger) ImportWorkerOption {
	return func(w *ImportWorker) {
		w.log = log
	}
}

// ImportWorker executes spreadsheet import jobs claimed from the queue.
type ImportWorker struct {
	queue     domain.ImportJobQueue
	source    StagedFileSource
	parser    SpreadsheetParser
	validator *RowValidator
	writer    domain.UserUpserter
	hasher    PasswordHasher
	observer  ImportObserver
	cfg       ImportWorkerConfig
	log       zerolog.Logger

	once sync.Once
	wg   sync.WaitGroup
}

func NewImportWorker(
	queue domain.ImportJobQueue,
	source StagedFileSource,
	parser SpreadsheetParser,
	writer domain.UserUpserter,
	cfg ImportWorkerConfig,
	opts ...ImportWorkerOption,
) *ImportWorker {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Workers > 10 {
		cfg.Workers = 10
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = 60 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = cfg.LeaseDuration / 2
	}
	cfg.Retry = cfg.Retry.withDefaults()

	w := &ImportWorker{
		queue:     queue,
		source:    source,
		parser:    parser,
		validator: NewRowValidator(),
		writer:    writer,
		hasher:    PlaintextPasswords{},
		observer:  nopObserver{},
		cfg:       cfg,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *ImportWorker) Start(ctx context.Context) {
	w.once.Do(func() {
		w.log.Info().Int("workers", w.cfg.Workers).Msg("starting import workers")
		for i := 0; i < w.cfg.Workers; i++ {
			w.wg.Add(1)
			go w.workerLoop(ctx, i)
		}
	})
}

// Wait blocks until every worker loop has returned after ctx was cancelled.
func (w *ImportWorker) Wait() {
	w.wg.Wait()
}

func (w *ImportWorker) workerLoop(ctx context.Context, id int) {
	defer w.wg.Done()
	log := w.log.With().Int("worker_id", id).Logger()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("import worker stopping")
			return
		default:
		}

		job, err := w.queue.ClaimNext(ctx, w.cfg.LeaseDuration)
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("claim next import job failed")
			}
			if !sleepWithContext(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		if job == nil {
			if !sleepWithContext(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		if err := w.ProcessJob(ctx, *job); err != nil {
			log.Debug().Err(err).Str("job_id", job.ID).Msg("import job attempt ended with error")
		}
	}
}

// ProcessJob runs one attempt of a claimed job and records its outcome on
// the queue: completed, retry scheduled, or failed permanently once
// job.Attempts reaches job.MaxAttempts.
func (w *ImportWorker) ProcessJob(ctx context.Context, job domain.ImportJob) error {
	log := w.log.With().
		Str("job_id", job.ID).
		Str("staged_path", job.StagedPath).
		Int("attempt", job.Attempts).
		Int("max_attempts", job.MaxAttempts).
		Logger()

	started := time.Now()
	w.observer.JobClaimed(job)
	log.Info().Msg("processing import job")

	attemptCtx, cancelAttempt := context.WithCancel(ctx)
	defer cancelAttempt()

	stopHeartbeat := w.keepLeased(attemptCtx, job, cancelAttempt, log)
	summary, err := w.run(attemptCtx, job, log)
	stopHeartbeat()
	if err != nil {
		if attemptCtx.Err() != nil {
			// Shutting down or the lease was lost: whoever holds the job now
			// records the outcome.
			return err
		}
		return w.onProcessingError(ctx, job, err, log)
	}

	if err := w.queue.Complete(ctx, job.ID, job.Attempts, summary); err != nil {
		if errors.Is(err, domain.ErrJobNotLeased) {
			log.Warn().Err(err).Msg("import job lease lost before completion, staged file kept")
		} else {
			log.Error().Err(err).Msg("mark import job succeeded failed")
		}
		return fmt.Errorf("complete job: %w", err)
	}
	if err := w.source.Remove(ctx, job.StagedPath); err != nil {
		log.Warn().Err(err).Msg("remove staged file failed")
	}

	elapsed := time.Since(started)
	w.observer.JobSucceeded(job, summary, elapsed)
	log.Info().
		Int64("total", summary.TotalCount).
		Int64("processed", summary.ProcessedCount).
		Int64("skipped", summary.SkippedCount).
		Int64("inserted", summary.InsertedCount).
		Int64("updated", summary.UpdatedCount).
		Dur("elapsed", elapsed).
		Msg("import job succeeded, staged file removed")
	return nil
}

func (w *ImportWorker) run(ctx context.Context, job domain.ImportJob, log zerolog.Logger) (domain.ImportSummary, error) {
	summary := domain.ImportSummary{}

	reader, err := w.source.Open(ctx, job.StagedPath)
	if err != nil {
		return summary, fmt.Errorf("%w: %w", domain.ErrUnreadableFile, err)
	}
	defer reader.Close()

	rows, err := w.parser.Parse(ctx, reader)
	if err != nil {
		return summary, fmt.Errorf("parse staged file: %w", err)
	}
	summary.TotalCount = int64(len(rows))

	users := make([]domain.CanonicalUser, 0, len(rows))
	for _, row := range rows {
		canonical, rowErr := w.validator.Validate(row)
		if rowErr == nil {
			canonical.Password, rowErr = w.hashPassword(canonical.Password)
		}
		if rowErr != nil {
			summary.SkippedCount++
			if len(summary.Rejections) < maxStoredRejections {
				summary.Rejections = append(summary.Rejections, domain.RowOutcome{
					RowIndex: row.Index,
					Reason:   rowErr.Error(),
				})
			}
			w.observer.RowRejected(rejectionKind(rowErr))
			log.Warn().Int("row", row.Index).Err(rowErr).Msg("skipping spreadsheet row")
			continue
		}

		users = append(users, canonical)
		summary.ProcessedCount++
	}

	if len(users) == 0 {
		log.Info().Int64("total", summary.TotalCount).Msg("no valid data found in spreadsheet to insert or update")
		return summary, nil
	}

	result, err := w.writer.Upsert(ctx, users)
	if err != nil {
		return summary, fmt.Errorf("%w: %w", domain.ErrWriteFailure, err)
	}
	summary.InsertedCount = result.InsertedCount
	summary.UpdatedCount = result.UpdatedCount
	log.Debug().Int64("applied", result.Applied()).Int("batch", len(users)).Msg("user batch written")

	return summary, nil
}

func (w *ImportWorker) hashPassword(password string) (string, error) {
	hashed, err := w.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hashed, nil
}

func (w *ImportWorker) onProcessingError(ctx context.Context, job domain.ImportJob, err error, log zerolog.Logger) error {
	reason := truncateReason(err.Error())
	if job.Attempts < job.MaxAttempts {
		delay := w.cfg.Retry.DelayFor(err)
		if retryErr := w.queue.Retry(ctx, job.ID, job.Attempts, delay, reason); retryErr != nil {
			return fmt.Errorf("%v; schedule retry failed: %w", err, retryErr)
		}
		w.observer.JobRetryScheduled(job, delay, err)
		log.Warn().Err(err).Dur("retry_in", delay).Msg("import job attempt failed, retry scheduled, staged file kept")
		return err
	}

	if failErr := w.queue.Fail(ctx, job.ID, job.Attempts, reason); failErr != nil {
		return fmt.Errorf("%v; mark failed: %w", err, failErr)
	}
	w.observer.JobFailedPermanently(job, err)
	log.Error().Err(err).Msg("import job failed permanently after exhausting retries, staged file kept for inspection")
	return err
}

// keepLeased extends the lease every heartbeat interval until the returned
// stop function is called. When the queue reports that this attempt no
// longer holds the job, onLost is called and heartbeats stop.
func (w *ImportWorker) keepLeased(ctx context.Context, job domain.ImportJob, onLost func(), log zerolog.Logger) func() {
	hbCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(w.cfg.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				err := w.queue.Heartbeat(hbCtx, job.ID, job.Attempts, w.cfg.LeaseDuration)
				if err == nil || hbCtx.Err() != nil {
					continue
				}
				if errors.Is(err, domain.ErrJobNotLeased) {
					log.Warn().Err(err).Msg("import job lease lost, abandoning attempt")
					onLost()
					return
				}
				log.Warn().Err(err).Msg("import job heartbeat failed")
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// truncateReason caps reason at 1000 bytes without splitting a UTF-8
// sequence.
func truncateReason(reason string) string {
	const maxLen = 1000
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxLen {
		return reason
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
