package entity

import (
	"time"

	"github.com/google/uuid"
)

// Task is a to-do item owned by exactly one user.
//
// CompletedAt is non-nil if and only if Completed is true. Every mutation goes
// through SetCompleted so that the pair cannot drift apart.
type Task struct {
	ID          uuid.UUID
	UserID      uuid.UUID // Owner. Fixed at creation.
	Title       string
	Description *string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// OwnedBy reports whether userID owns the task.
func (t *Task) OwnedBy(userID uuid.UUID) bool {
	return t.UserID == userID
}

// SetCompleted moves the task to the requested completion state at now.
// Marking an already completed task complete keeps the original CompletedAt;
// marking it incomplete always clears it.
func (t *Task) SetCompleted(completed bool, now time.Time) {
	switch {
	case completed && t.CompletedAt == nil:
		completedAt := now
		t.CompletedAt = &completedAt
	case !completed:
		t.CompletedAt = nil
	}
	t.Completed = completed
}

// Touch records a modification at now.
func (t *Task) Touch(now time.Time) {
	t.UpdatedAt = now
}
