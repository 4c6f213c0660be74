package database

import (
	"context"
	"testing"
	"time"

	"tasktracker/internal/domain/entity"
	"tasktracker/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	user := &entity.User{
		Email:        "a@example.com",
		PasswordHash: "$2a$04$hash",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
	assert.Equal(t, user.PasswordHash, byID.PasswordHash)
	assert.True(t, user.CreatedAt.Equal(byID.CreatedAt))

	byEmail, err := repo.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	exists, err := repo.ExistsByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	exists, err := repo.ExistsByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.User{Email: "dup@example.com", PasswordHash: "h", CreatedAt: time.Now()}))

	err := repo.Create(ctx, &entity.User{Email: "dup@example.com", PasswordHash: "h", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestUserRepository_EmailIsCaseSensitive(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.User{Email: "case@example.com", PasswordHash: "h", CreatedAt: time.Now()}))
	require.NoError(t, repo.Create(ctx, &entity.User{Email: "Case@example.com", PasswordHash: "h", CreatedAt: time.Now()}))

	_, err := repo.FindByEmail(ctx, "CASE@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}
