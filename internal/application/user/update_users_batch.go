package user

import (
	"context"
	"fmt"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
)

const (
	UpdateStatusSuccess = "success"
	UpdateStatusFailed  = "failed"
)

type UserUpdate struct {
	ID    *int64  `json:"id"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

type UserUpdateResult struct {
	ID      *int64 `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type UpdateUsersBatchOutput struct {
	UpdatedCount int
	FailedCount  int
	Results      []UserUpdateResult
}

func (o UpdateUsersBatchOutput) Message() string {
	return fmt.Sprintf("Batch update processed. %d users updated, %d failed.", o.UpdatedCount, o.FailedCount)
}

type UpdateUsersBatch interface {
	Execute(ctx context.Context, updates []UserUpdate) (UpdateUsersBatchOutput, error)
}

type userBatchStore interface {
	InTransaction(ctx context.Context, fn func(tx domain.UserRowUpdater) error) error
}

type updateUsersBatch struct {
	store userBatchStore
}

func NewUpdateUsersBatch(store userBatchStore) UpdateUsersBatch {
	return &updateUsersBatch{store: store}
}

func (uc *updateUsersBatch) Execute(ctx context.Context, updates []UserUpdate) (UpdateUsersBatchOutput, error) {
	out := UpdateUsersBatchOutput{Results: make([]UserUpdateResult, 0, len(updates))}

	fail := func(id *int64, message string) {
		out.FailedCount++
		out.Results = append(out.Results, UserUpdateResult{ID: id, Status: UpdateStatusFailed, Message: message})
	}

	err := uc.store.InTransaction(ctx, func(tx domain.UserRowUpdater) error {
		for _, update := range updates {
			if update.ID == nil || *update.ID == 0 || update.Email == nil || *update.Email == "" || update.Role == nil || *update.Role == "" {
				fail(update.ID, "Missing ID, email, or role")
				continue
			}

			role, ok := domain.ParseRole(*update.Role)
			if !ok {
				fail(update.ID, "Invalid role: "+*update.Role)
				continue
			}

			affected, err := tx.UpdateEmailRole(ctx, *update.ID, *update.Email, role)
			if err != nil {
				fail(update.ID, fmt.Sprintf("DB error: %v", err))
				continue
			}
			if !affected {
				fail(update.ID, "User not found or no change")
				continue
			}

			out.UpdatedCount++
			out.Results = append(out.Results, UserUpdateResult{ID: update.ID, Status: UpdateStatusSuccess})
		}
		return nil
	})
	if err != nil {
		return UpdateUsersBatchOutput{}, fmt.Errorf("%w: %v", ErrBatchUpdate, err)
	}

	return out, nil
}
