package repository

import (
	"context"
	"errors"

	"tasktracker/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrTaskNotFound is returned when no task has the requested ID.
var ErrTaskNotFound = errors.New("task not found")

// TaskRepository persists tasks. It does not check ownership; callers do.
type TaskRepository interface {
	// FindByID retrieves a task regardless of owner.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Task, error)

	// FindByUser lists a user's tasks, newest first.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Task, error)

	Create(ctx context.Context, task *entity.Task) error

	// Update writes every mutable column of task.
	Update(ctx context.Context, task *entity.Task) error

	Delete(ctx context.Context, id uuid.UUID) error
}
