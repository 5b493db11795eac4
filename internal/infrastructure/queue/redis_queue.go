package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
)

// claimScript takes the oldest expired lease first, then the earliest ready
// job, marks it running and bumps its attempt counter.
var claimScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local lease_until = now + tonumber(ARGV[2])
local id
local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', now, 'LIMIT', 0, 1)
if #expired > 0 then
  id = expired[1]
else
  local ready = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', now, 'LIMIT', 0, 1)
  if #ready == 0 then
    return false
  end
  id = ready[1]
  redis.call('ZREM', KEYS[1], id)
end
local key = ARGV[3] .. id
redis.call('HINCRBY', key, 'attempts', 1)
redis.call('HSET', key, 'status', 'running', 'lease_expires_at', lease_until)
redis.call('ZADD', KEYS[2], lease_until, id)
return id
`)

// heartbeatScript and transitionScript only act while the job is running
// under the caller's attempt; a re-claim bumps attempts and fences the old one.
var heartbeatScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'status') ~= 'running' then
  return 0
end
if redis.call('HGET', KEYS[1], 'attempts') ~= ARGV[3] then
  return 0
end
redis.call('ZADD', KEYS[2], 'XX', ARGV[2], ARGV[1])
redis.call('HSET', KEYS[1], 'lease_expires_at', ARGV[2])
return 1
`)

var transitionScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'status') ~= 'running' then
  return 0
end
if redis.call('HGET', KEYS[1], 'attempts') ~= ARGV[4] then
  return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[2])
for i = 5, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
redis.call('HDEL', KEYS[1], 'lease_expires_at')
redis.call('ZREM', KEYS[3], ARGV[1])
if ARGV[3] ~= '' then
  redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
end
return 1
`)

// RedisJobQueue keeps each job in a hash and schedules it through two sorted
// sets scored in unix milliseconds: ready (run_at) and leases (expiry).
type RedisJobQueue struct {
	client      redis.UniversalClient
	prefix      string
	maxAttempts int
	now         func() time.Time
}

func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

func NewRedisJobQueue(client redis.UniversalClient, keyPrefix string, maxAttempts int) *RedisJobQueue {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &RedisJobQueue{
		client:      client,
		prefix:      keyPrefix,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (q *RedisJobQueue) readyKey() string        { return q.prefix + ":ready" }
func (q *RedisJobQueue) leasesKey() string       { return q.prefix + ":leases" }
func (q *RedisJobQueue) jobKeyPrefix() string    { return q.prefix + ":job:" }
func (q *RedisJobQueue) jobKey(id string) string { return q.jobKeyPrefix() + id }
func millis(t time.Time) int64                   { return t.UnixMilli() }
func fromMillis(ms int64) time.Time              { return time.UnixMilli(ms).UTC() }

func (q *RedisJobQueue) Enqueue(ctx context.Context, stagedPath string) (string, error) {
	id := uuid.NewString()
	now := millis(q.now())

	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.jobKey(id), map[string]any{
			"staged_path":  stagedPath,
			"status":       string(domain.ImportJobPending),
			"attempts":     0,
			"max_attempts": q.maxAttempts,
			"run_at":       now,
			"created_at":   now,
		})
		pipe.ZAdd(ctx, q.readyKey(), redis.Z{Score: float64(now), Member: id})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("enqueue import job: %w", err)
	}
	return id, nil
}

func (q *RedisJobQueue) Get(ctx context.Context, jobID string) (*domain.ImportJob, error) {
	fields, err := q.client.HGetAll(ctx, q.jobKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get import job: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrImportJobNotFound
	}
	return parseJob(jobID, fields)
}

func (q *RedisJobQueue) ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.ImportJob, error) {
	id, err := claimScript.Run(ctx, q.client,
		[]string{q.readyKey(), q.leasesKey()},
		millis(q.now()), leaseDuration.Milliseconds(), q.jobKeyPrefix(),
	).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim import job: %w", err)
	}
	return q.Get(ctx, id)
}

func (q *RedisJobQueue) Heartbeat(ctx context.Context, jobID string, attempt int, leaseDuration time.Duration) error {
	leaseUntil := millis(q.now().Add(leaseDuration))
	ok, err := heartbeatScript.Run(ctx, q.client,
		[]string{q.jobKey(jobID), q.leasesKey()},
		jobID, leaseUntil, strconv.Itoa(attempt),
	).Int()
	if err != nil {
		return fmt.Errorf("heartbeat import job %s: %w", jobID, err)
	}
	if ok == 0 {
		return fmt.Errorf("%w: %s attempt %d", domain.ErrJobNotLeased, jobID, attempt)
	}
	return nil
}

func (q *RedisJobQueue) Complete(ctx context.Context, jobID string, attempt int, summary domain.ImportSummary) error {
	rejections, err := json.Marshal(summary.Rejections)
	if err != nil {
		return fmt.Errorf("encode rejections: %w", err)
	}
	return q.transition(ctx, jobID, attempt, domain.ImportJobSucceeded, "",
		"last_error", "",
		"total_count", summary.TotalCount,
		"processed_count", summary.ProcessedCount,
		"skipped_count", summary.SkippedCount,
		"inserted_count", summary.InsertedCount,
		"updated_count", summary.UpdatedCount,
		"rejections", string(rejections),
		"finished_at", millis(q.now()),
	)
}

func (q *RedisJobQueue) Retry(ctx context.Context, jobID string, attempt int, delay time.Duration, reason string) error {
	runAt := millis(q.now().Add(delay))
	return q.transition(ctx, jobID, attempt, domain.ImportJobRetryScheduled, strconv.FormatInt(runAt, 10),
		"last_error", reason,
		"run_at", runAt,
	)
}

func (q *RedisJobQueue) Fail(ctx context.Context, jobID string, attempt int, reason string) error {
	return q.transition(ctx, jobID, attempt, domain.ImportJobFailed, "",
		"last_error", reason,
		"finished_at", millis(q.now()),
	)
}

func (q *RedisJobQueue) transition(ctx context.Context, jobID string, attempt int, status domain.ImportJobStatus, readyScore string, fields ...any) error {
	args := append([]any{jobID, string(status), readyScore, strconv.Itoa(attempt)}, fields...)
	ok, err := transitionScript.Run(ctx, q.client,
		[]string{q.jobKey(jobID), q.readyKey(), q.leasesKey()},
		args...,
	).Int()
	if err != nil {
		return fmt.Errorf("update import job %s: %w", jobID, err)
	}
	if ok == 0 {
		return fmt.Errorf("%w: %s attempt %d", domain.ErrJobNotLeased, jobID, attempt)
	}
	return nil
}

func parseJob(id string, fields map[string]string) (*domain.ImportJob, error) {
	job := &domain.ImportJob{
		ID:         id,
		StagedPath: fields["staged_path"],
		Status:     domain.ImportJobStatus(fields["status"]),
		LastError:  fields["last_error"],
	}

	ints := map[string]*int64{}
	var attempts, maxAttempts, runAt, createdAt int64
	ints["attempts"] = &attempts
	ints["max_attempts"] = &maxAttempts
	ints["run_at"] = &runAt
	ints["created_at"] = &createdAt

	summary := domain.ImportSummary{}
	if job.Status == domain.ImportJobSucceeded {
		ints["total_count"] = &summary.TotalCount
		ints["processed_count"] = &summary.ProcessedCount
		ints["skipped_count"] = &summary.SkippedCount
		ints["inserted_count"] = &summary.InsertedCount
		ints["updated_count"] = &summary.UpdatedCount
	}

	for name, dst := range ints {
		raw, ok := fields[name]
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("import job %s: field %s: %w", id, name, err)
		}
		*dst = v
	}

	job.Attempts = int(attempts)
	job.MaxAttempts = int(maxAttempts)
	job.RunAt = fromMillis(runAt)
	job.CreatedAt = fromMillis(createdAt)

	if job.Status == domain.ImportJobSucceeded {
		if raw := fields["rejections"]; raw != "" && raw != "null" {
			if err := json.Unmarshal([]byte(raw), &summary.Rejections); err != nil {
				return nil, fmt.Errorf("import job %s: rejections: %w", id, err)
			}
		}
		job.Summary = &summary
	}
	return job, nil
}
