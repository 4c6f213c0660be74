package usecase

import (
	"context"
	"time"

	"tasktracker/internal/domain/entity"

	"github.com/google/uuid"
)

// CreateTaskInput defines the data required to create a task.
type CreateTaskInput struct {
	Title       string
	Description *string
	Completed   bool
}

// UpdateTaskInput is a partial update. Nil fields are left untouched.
// ClearDescription sets the description to null and wins over Description.
type UpdateTaskInput struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Completed        *bool
}

// TaskOutput is the wire view of a task.
type TaskOutput struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// NewTaskOutput projects a task entity to its wire view.
func NewTaskOutput(task *entity.Task) *TaskOutput {
	return &TaskOutput{
		ID:          task.ID,
		UserID:      task.UserID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		CompletedAt: task.CompletedAt,
	}
}

// TaskUsecase defines task operations on behalf of an authenticated user.
// Every operation on an existing task reports a missing task before a foreign one.
type TaskUsecase interface {
	// List returns the caller's tasks, newest first. It never returns nil.
	List(ctx context.Context, userID uuid.UUID) ([]*TaskOutput, error)

	Create(ctx context.Context, userID uuid.UUID, input *CreateTaskInput) (*TaskOutput, error)

	Get(ctx context.Context, userID, taskID uuid.UUID) (*TaskOutput, error)

	Update(ctx context.Context, userID, taskID uuid.UUID, input *UpdateTaskInput) (*TaskOutput, error)

	// SetCompletion toggles the completion state and maintains completed_at.
	SetCompletion(ctx context.Context, userID, taskID uuid.UUID, completed bool) (*TaskOutput, error)

	Delete(ctx context.Context, userID, taskID uuid.UUID) error
}
