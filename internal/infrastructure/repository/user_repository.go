package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
	"github.com/mohammadpnp/user-directory/internal/infrastructure/db/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// List returns every user ordered by id, without passwords.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	var rows []models.User
	err := r.db.WithContext(ctx).
		Select("id", "username", "email", "role", "created_at", "updated_at").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, domain.User{
			ID:        row.ID,
			Username:  row.Username,
			Email:     row.Email,
			Role:      domain.Role(row.Role),
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return users, nil
}

func (r *UserRepository) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := r.db.WithContext(ctx).Raw("SHOW server_version").Scan(&version).Error; err != nil {
		return "", fmt.Errorf("query server version: %w", err)
	}
	return version, nil
}

// InTransaction runs fn in one transaction that commits when fn returns nil.
func (r *UserRepository) InTransaction(ctx context.Context, fn func(tx domain.UserRowUpdater) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&userRowUpdater{tx: tx})
	})
}

// userRowUpdater wraps every row in a savepoint: Postgres aborts the whole
// transaction on a statement error unless it is rolled back to one.
type userRowUpdater struct {
	tx  *gorm.DB
	seq int
}

func (u *userRowUpdater) UpdateEmailRole(ctx context.Context, id int64, email string, role domain.Role) (bool, error) {
	u.seq++
	savepoint := fmt.Sprintf("batch_row_%d", u.seq)

	tx := u.tx.WithContext(ctx)
	if err := tx.SavePoint(savepoint).Error; err != nil {
		return false, fmt.Errorf("savepoint: %w", err)
	}

	result := tx.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"email":      email,
			"role":       role.String(),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		if err := tx.RollbackTo(savepoint).Error; err != nil {
			return false, fmt.Errorf("%v; rollback to savepoint: %w", result.Error, err)
		}
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
