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
	"gorm.io/gorm"
)

func createTestUser(t *testing.T, db *gorm.DB, email string) *entity.User {
	t.Helper()

	user := &entity.User{Email: email, PasswordHash: "h", CreatedAt: time.Now().UTC()}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))

	return user
}

func newTask(owner uuid.UUID, title string, at time.Time) *entity.Task {
	return &entity.Task{
		UserID:    owner,
		Title:     title,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestTaskRepository_CRUD(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner@example.com")
	now := time.Now().UTC().Truncate(time.Microsecond)

	task := newTask(owner.ID, "write tests", now)
	require.NoError(t, repo.Create(ctx, task))
	require.NotEqual(t, uuid.Nil, task.ID)

	found, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "write tests", found.Title)
	assert.Equal(t, owner.ID, found.UserID)
	assert.False(t, found.Completed)
	assert.Nil(t, found.Description)
	assert.Nil(t, found.CompletedAt)

	description := "with a description"
	later := now.Add(time.Minute)
	found.Title = "write more tests"
	found.Description = &description
	found.SetCompleted(true, later)
	found.Touch(later)
	require.NoError(t, repo.Update(ctx, found))

	updated, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "write more tests", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, description, *updated.Description)
	assert.True(t, updated.Completed)
	require.NotNil(t, updated.CompletedAt)
	assert.True(t, later.Equal(*updated.CompletedAt))
	assert.True(t, later.Equal(updated.UpdatedAt))
	assert.True(t, now.Equal(updated.CreatedAt))

	updated.SetCompleted(false, later)
	updated.Description = nil
	require.NoError(t, repo.Update(ctx, updated))

	cleared, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, cleared.Completed)
	assert.Nil(t, cleared.CompletedAt)
	assert.Nil(t, cleared.Description)

	require.NoError(t, repo.Delete(ctx, task.ID))
	_, err = repo.FindByID(ctx, task.ID)
	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
}

func TestTaskRepository_FindByUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	base := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newTask(alice.ID, "older", base)))
	require.NoError(t, repo.Create(ctx, newTask(alice.ID, "newer", base.Add(time.Second))))
	require.NoError(t, repo.Create(ctx, newTask(bob.ID, "bob's", base)))

	tasks, err := repo.FindByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "newer", tasks[0].Title)
	assert.Equal(t, "older", tasks[1].Title)

	none, err := repo.FindByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestTaskRepository_MissingRows(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrTaskNotFound)

	err = repo.Update(ctx, &entity.Task{ID: uuid.New(), Title: "ghost", UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, repository.ErrTaskNotFound)

	err = repo.Delete(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
}

func TestTaskRepository_UnknownOwner(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))

	err := repo.Create(context.Background(), newTask(uuid.New(), "orphan", time.Now()))
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}
