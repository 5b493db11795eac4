package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
)

// upsertUserSQL inserts the user unless the username or the email is taken,
// in which case one existing row gets the new password and role: the row
// owning the username if there is one, otherwise the row owning the email.
// Postgres cannot target two unique constraints in one ON CONFLICT clause,
// so the conflict is detected with DO NOTHING and resolved by the second CTE.
//
// Both CTEs share the statement snapshot. A conflicting row committed by
// another transaction while the insert waited is invisible to the update,
// and the statement reports (0, 0); the writer treats that as an error.
const upsertUserSQL = `
WITH ins AS (
    INSERT INTO users (username, email, password, role, created_at, updated_at)
    VALUES ($1, $2, $3, $4, NOW(), NOW())
    ON CONFLICT DO NOTHING
    RETURNING id
), upd AS (
    UPDATE users
    SET password = $3,
        role = $4,
        updated_at = NOW()
    WHERE NOT EXISTS (SELECT 1 FROM ins)
      AND id = (
          SELECT id
          FROM users
          WHERE username = $1 OR email = $2
          ORDER BY (username = $1) DESC, id
          LIMIT 1
      )
    RETURNING id
)
SELECT (SELECT COUNT(*) FROM ins), (SELECT COUNT(*) FROM upd)
`

// ErrUpsertNotApplied means a record neither inserted nor updated a row,
// which happens when a concurrent writer committed the same username or
// email mid-statement. Retrying the batch resolves it as an update.
var ErrUpsertNotApplied = errors.New("user record was neither inserted nor updated")

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UserUpsertRepository writes a batch of canonical users in one transaction.
// Statements run in order, so a later duplicate within the same batch
// updates the row an earlier record inserted.
type UserUpsertRepository struct {
	pool txBeginner
}

func NewUserUpsertRepository(pool txBeginner) *UserUpsertRepository {
	return &UserUpsertRepository{pool: pool}
}

func (r *UserUpsertRepository) Upsert(ctx context.Context, users []domain.CanonicalUser) (domain.UpsertResult, error) {
	if len(users) == 0 {
		return domain.UpsertResult{}, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, user := range users {
		batch.Queue(upsertUserSQL, user.Username, user.Email, user.Password, user.Role.String())
	}

	result, err := collectUpsertCounts(tx.SendBatch(ctx, batch), len(users))
	if err != nil {
		return domain.UpsertResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.UpsertResult{}, fmt.Errorf("commit upsert: %w", err)
	}

	return result, nil
}

func collectUpsertCounts(results pgx.BatchResults, n int) (domain.UpsertResult, error) {
	var out domain.UpsertResult
	for i := 0; i < n; i++ {
		var inserted, updated int64
		if err := results.QueryRow().Scan(&inserted, &updated); err != nil {
			results.Close()
			return domain.UpsertResult{}, fmt.Errorf("upsert user %d of %d: %w", i+1, n, err)
		}
		row := domain.UpsertResult{InsertedCount: inserted, UpdatedCount: updated}
		if row.Applied() == 0 {
			results.Close()
			return domain.UpsertResult{}, fmt.Errorf("upsert user %d of %d: %w", i+1, n, ErrUpsertNotApplied)
		}
		out.InsertedCount += row.InsertedCount
		out.UpdatedCount += row.UpdatedCount
	}

	if err := results.Close(); err != nil {
		return domain.UpsertResult{}, fmt.Errorf("close upsert batch: %w", err)
	}
	return out, nil
}
