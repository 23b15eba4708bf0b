package sqlite

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore(t *testing.T) {
	s := NewUserStore(OpenTest(t), nil)
	ctx := context.Background()

	user, err := domain.NewUser("alice@example.com", "Str0ng!Passw0rd")
	require.NoError(t, err)
	user.HashedPassword = "$2a$10$hash"

	require.NoError(t, s.Create(ctx, user))

	got, err := s.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "$2a$10$hash", got.HashedPassword)
	assert.Empty(t, got.Password)

	got, err = s.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	dup := *user
	dup.ID = uuid.New()
	err = s.Create(ctx, &dup)
	assert.ErrorIs(t, err, store.ErrEmailExists)
	assert.True(t, store.IsDuplicateError(err))

	_, err = s.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	assert.ErrorIs(t, s.Create(ctx, &domain.User{ID: uuid.New(), Email: "b@example.com"}),
		domain.ErrEmptyHashedPassword)
}
