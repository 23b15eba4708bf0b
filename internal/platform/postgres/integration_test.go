package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TASKS_TEST_DATABASE_URL and applies migrations.
// Tests using it are skipped when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TASKS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TASKS_TEST_DATABASE_URL not set; skipping PostgreSQL integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := Open(ctx, dsn, 5, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db, "up", nil))
	return db
}

func createTestUser(t *testing.T, users *PostgresUserStore) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:             uuid.New(),
		Email:          uuid.NewString() + "@example.com",
		HashedPassword: "$2a$10$hash",
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func TestIntegration_TaskOwnership(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewPostgresUserStore(db, nil)
	tasks := NewPostgresTaskStore(db, nil)

	alice := createTestUser(t, users)
	bob := createTestUser(t, users)

	task, err := domain.NewTask(alice.ID, "Buy milk", false)
	require.NoError(t, err)
	require.NoError(t, tasks.Create(ctx, task))

	_, err = tasks.GetByID(ctx, bob.ID, task.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	title := "Hijacked"
	_, err = tasks.Update(ctx, bob.ID, task.ID, domain.TaskPatch{Title: &title})
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.ErrorIs(t, tasks.Delete(ctx, bob.ID, task.ID), store.ErrTaskNotFound)

	got, err := tasks.GetByID(ctx, alice.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)

	page, err := tasks.List(ctx, alice.ID, domain.TaskQuery{Search: "MILK"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	require.NoError(t, tasks.Delete(ctx, alice.ID, task.ID))
	assert.ErrorIs(t, tasks.Delete(ctx, alice.ID, task.ID), store.ErrTaskNotFound)
}

func TestIntegration_DuplicateEmail(t *testing.T) {
	db := openTestDB(t)
	users := NewPostgresUserStore(db, nil)

	user := createTestUser(t, users)
	dup := *user
	dup.ID = uuid.New()
	assert.ErrorIs(t, users.Create(context.Background(), &dup), store.ErrEmailExists)
}
