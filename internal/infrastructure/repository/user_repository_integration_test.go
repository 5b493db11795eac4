package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/mohammadpnp/user-directory/internal/domain/user"
	"github.com/mohammadpnp/user-directory/internal/infrastructure/repository"
)

func TestUserUpsertRepositoryIntegration(t *testing.T) {
	gdb, pool := openIntegrationDB(t)
	writer := repository.NewUserUpsertRepository(pool)
	ctx := context.Background()

	result, err := writer.Upsert(ctx, []domain.CanonicalUser{
		{Username: "jdoe", Email: "jdoe@example.com", Password: "pw1", Role: domain.RoleManager},
		{Username: "asmith", Email: "asmith@example.com", Password: "pw2", Role: domain.RoleIntern},
	})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if result.InsertedCount != 2 || result.UpdatedCount != 0 {
		t.Fatalf("unexpected first result: %+v", result)
	}

	// Same username with a new email updates the existing row.
	result, err = writer.Upsert(ctx, []domain.CanonicalUser{
		{Username: "jdoe", Email: "other@example.com", Password: "pw9", Role: domain.RoleDirector},
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if result.InsertedCount != 0 || result.UpdatedCount != 1 {
		t.Fatalf("unexpected second result: %+v", result)
	}

	var count int64
	if err := gdb.Raw("SELECT COUNT(*) FROM users").Scan(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 users, got %d", count)
	}

	var role, email string
	if err := gdb.Raw("SELECT role, email FROM users WHERE username = ?", "jdoe").Row().Scan(&role, &email); err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if role != "director" || email != "jdoe@example.com" {
		t.Fatalf("unexpected row: role=%s email=%s", role, email)
	}

	users, err := repository.NewUserRepository(gdb).List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(users) != 2 || users[0].Username != "jdoe" {
		t.Fatalf("unexpected listing: %+v", users)
	}
}

func TestUserUpsertRepositoryUpdatesOnlyUsernameOwnerIntegration(t *testing.T) {
	gdb, pool := openIntegrationDB(t)
	ctx := context.Background()

	seed := "INSERT INTO users (username, email, password, role) VALUES (?, ?, ?, ?)"
	if err := gdb.Exec(seed, "jdoe", "old@x.com", "old", "employee").Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := gdb.Exec(seed, "other", "j@x.com", "keep", "intern").Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	result, err := repository.NewUserUpsertRepository(pool).Upsert(ctx, []domain.CanonicalUser{
		{Username: "jdoe", Email: "j@x.com", Password: "new", Role: domain.RoleManager},
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if result.InsertedCount != 0 || result.UpdatedCount != 1 {
		t.Fatalf("one record must update one row, got %+v", result)
	}

	var password, role string
	if err := gdb.Raw("SELECT password, role FROM users WHERE username = ?", "jdoe").Row().Scan(&password, &role); err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if password != "new" || role != "manager" {
		t.Fatalf("username owner not updated: password=%s role=%s", password, role)
	}
	if err := gdb.Raw("SELECT password, role FROM users WHERE username = ?", "other").Row().Scan(&password, &role); err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if password != "keep" || role != "intern" {
		t.Fatalf("email owner must be untouched: password=%s role=%s", password, role)
	}
}

func TestUserUpsertRepositoryReportsConcurrentInsertIntegration(t *testing.T) {
	gdb, pool := openIntegrationDB(t)
	ctx := context.Background()

	other, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	defer other.Rollback(ctx)
	if _, err := other.Exec(ctx, "INSERT INTO users (username, email, password, role) VALUES ('racer', 'racer@x.com', 'first', 'employee')"); err != nil {
		t.Fatalf("concurrent insert failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := repository.NewUserUpsertRepository(pool).Upsert(ctx, []domain.CanonicalUser{
			{Username: "racer", Email: "racer@x.com", Password: "second", Role: domain.RoleHR},
		})
		done <- err
	}()

	// Let the upsert block on the uncommitted unique key before committing.
	time.Sleep(300 * time.Millisecond)
	if err := other.Commit(ctx); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, repository.ErrUpsertNotApplied) {
			t.Fatalf("expected ErrUpsertNotApplied, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("upsert did not return")
	}

	// The retried batch sees the committed row and updates it.
	result, err := repository.NewUserUpsertRepository(pool).Upsert(ctx, []domain.CanonicalUser{
		{Username: "racer", Email: "racer@x.com", Password: "second", Role: domain.RoleHR},
	})
	if err != nil || result.UpdatedCount != 1 {
		t.Fatalf("retry should update, got %+v %v", result, err)
	}

	var password string
	if err := gdb.Raw("SELECT password FROM users WHERE username = ?", "racer").Scan(&password).Error; err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if password != "second" {
		t.Fatalf("expected retried password, got %s", password)
	}
}

func TestUserUpsertRepositoryRerunIsIdempotentIntegration(t *testing.T) {
	gdb, pool := openIntegrationDB(t)
	writer := repository.NewUserUpsertRepository(pool)
	ctx := context.Background()

	batch := []domain.CanonicalUser{
		{Username: "jdoe", Email: "j@x.com", Password: "pw", Role: domain.RoleEmployee},
	}

	first, err := writer.Upsert(ctx, batch)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	var firstID int64
	if err := gdb.Raw("SELECT id FROM users WHERE username = ?", "jdoe").Scan(&firstID).Error; err != nil {
		t.Fatalf("read id failed: %v", err)
	}

	second, err := writer.Upsert(ctx, batch)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	var secondID, count int64
	if err := gdb.Raw("SELECT id FROM users WHERE username = ?", "jdoe").Scan(&secondID).Error; err != nil {
		t.Fatalf("read id failed: %v", err)
	}
	if err := gdb.Raw("SELECT COUNT(*) FROM users").Scan(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}

	if first.InsertedCount != 1 || second.UpdatedCount != 1 || second.InsertedCount != 0 {
		t.Fatalf("unexpected results: first=%+v second=%+v", first, second)
	}
	if count != 1 || firstID != secondID {
		t.Fatalf("rerun must update in place: count=%d ids=%d/%d", count, firstID, secondID)
	}
}

func TestUserRepositoryBatchUpdateIntegration(t *testing.T) {
	gdb, pool := openIntegrationDB(t)
	ctx := context.Background()

	if _, err := repository.NewUserUpsertRepository(pool).Upsert(ctx, []domain.CanonicalUser{
		{Username: "a", Email: "a@example.com", Password: "pw", Role: domain.RoleEmployee},
		{Username: "b", Email: "b@example.com", Password: "pw", Role: domain.RoleEmployee},
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	repo := repository.NewUserRepository(gdb)
	users, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	var outcomes []bool
	var errs []error
	err = repo.InTransaction(ctx, func(tx domain.UserRowUpdater) error {
		ok, err := tx.UpdateEmailRole(ctx, users[0].ID, "b@example.com", domain.RoleHR)
		outcomes, errs = append(outcomes, ok), append(errs, err)
		ok, err = tx.UpdateEmailRole(ctx, users[1].ID, "b2@example.com", domain.RoleManager)
		outcomes, errs = append(outcomes, ok), append(errs, err)
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	if errs[0] == nil || outcomes[1] != true || errs[1] != nil {
		t.Fatalf("unexpected outcomes: %v %v", outcomes, errs)
	}

	users, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if users[0].Email != "a@example.com" || users[1].Role != domain.RoleManager {
		t.Fatalf("unexpected users after batch: %+v", users)
	}
}
