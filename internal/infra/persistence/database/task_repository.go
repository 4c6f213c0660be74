package database

import (
	"context"
	"time"

	"tasktracker/internal/domain/entity"
	domainerrors "tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/repository"
	"tasktracker/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// taskRepository implements the repository.TaskRepository interface.
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository is the constructor for taskRepository.
func NewTaskRepository(db *gorm.DB) repository.TaskRepository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	var taskM model.TaskModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&taskM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrTaskNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find task by ID")
	}

	return toTaskDomain(&taskM), nil
}

func (repo *taskRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Task, error) {
	var taskModels []*model.TaskModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&taskModels).Error; err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to list tasks")
	}

	tasks := make([]*entity.Task, 0, len(taskModels))
	for _, taskM := range taskModels {
		tasks = append(tasks, toTaskDomain(taskM))
	}

	return tasks, nil
}

func (repo *taskRepository) Create(ctx context.Context, task *entity.Task) error {
	if task.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return errors.Wrap(err, "generate task id")
		}
		task.ID = id
	}

	taskM := fromTaskDomain(task)

	if err := repo.db.WithContext(ctx).Create(taskM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WithDetails("missing required task information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create task")
	}

	return nil
}

// Update overwrites the mutable columns. Owner and creation time never change.
func (repo *taskRepository) Update(ctx context.Context, task *entity.Task) error {
	result := repo.db.WithContext(ctx).
		Model(&model.TaskModel{}).
		Where("id = ?", task.ID).
		Updates(map[string]any{
			"title":        task.Title,
			"description":  task.Description,
			"completed":    task.Completed,
			"updated_at":   task.UpdatedAt,
			"completed_at": task.CompletedAt,
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update task")
	}
	if result.RowsAffected == 0 {
		return repository.ErrTaskNotFound
	}

	return nil
}

func (repo *taskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.TaskModel{})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete task")
	}
	if result.RowsAffected == 0 {
		return repository.ErrTaskNotFound
	}

	return nil
}

func toTaskDomain(m *model.TaskModel) *entity.Task {
	return &entity.Task{
		ID:          m.ID,
		UserID:      m.UserID,
		Title:       m.Title,
		Description: m.Description,
		Completed:   m.Completed,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
		CompletedAt: utcPtr(m.CompletedAt),
	}
}

func fromTaskDomain(t *entity.Task) *model.TaskModel {
	return &model.TaskModel{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()

	return &utc
}
