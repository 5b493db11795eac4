package user

import (
	"context"
	"fmt"
	"time"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
)

type UserOutput struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type ListUsers interface {
	Execute(ctx context.Context) ([]UserOutput, error)
}

type userLister interface {
	List(ctx context.Context) ([]domain.User, error)
}

type listUsers struct {
	repo userLister
}

func NewListUsers(repo userLister) ListUsers {
	return &listUsers{repo: repo}
}

func (uc *listUsers) Execute(ctx context.Context) ([]UserOutput, error) {
	users, err := uc.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrListUsers, err)
	}

	out := make([]UserOutput, 0, len(users))
	for _, u := range users {
		out = append(out, UserOutput{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			Role:      u.Role.String(),
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		})
	}
	return out, nil
}
