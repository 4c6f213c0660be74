package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "tasktracker/internal/delivery/context"
	"tasktracker/internal/domain/entity"
	domainerrors "tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/repository"
	"tasktracker/internal/errors"
	"tasktracker/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// Verbs used in the 403 message.
const (
	actionAccess = "access"
	actionUpdate = "update"
	actionDelete = "delete"
)

// taskService implements the TaskUsecase interface.
type taskService struct {
	txManager repository.TransactionManager
	taskRepo  repository.TaskRepository
	userRepo  repository.UserRepository
	logger    *slog.Logger
	now       func() time.Time
}

// TaskServiceParams holds dependencies for TaskService, injected by Fx.
type TaskServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	TaskRepo  repository.TaskRepository
	UserRepo  repository.UserRepository
	Logger    *slog.Logger
}

// NewTaskService creates a new task service.
func NewTaskService(params TaskServiceParams) usecase.TaskUsecase {
	return &taskService{
		txManager: params.TxManager,
		taskRepo:  params.TaskRepo,
		userRepo:  params.UserRepo,
		logger:    params.Logger,
		now:       utcNow,
	}
}

func (s *taskService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, s.logger)
}

func (s *taskService) List(ctx context.Context, userID uuid.UUID) ([]*usecase.TaskOutput, error) {
	tasks, err := s.taskRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tasks")
	}

	outputs := make([]*usecase.TaskOutput, 0, len(tasks))
	for _, task := range tasks {
		outputs = append(outputs, usecase.NewTaskOutput(task))
	}

	return outputs, nil
}

// Create stores a new task for userID. A completed task starts with
// completed_at equal to its creation time.
func (s *taskService) Create(ctx context.Context, userID uuid.UUID, input *usecase.CreateTaskInput) (*usecase.TaskOutput, error) {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.WithStack(domainerrors.ErrUserNotFound)
		}

		return nil, errors.Wrap(err, "failed to load task owner")
	}

	now := s.now()
	task := &entity.Task{
		UserID:      userID,
		Title:       input.Title,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	task.SetCompleted(input.Completed, now)

	if err := s.taskRepo.Create(ctx, task); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.WithStack(domainerrors.ErrUserNotFound)
		}

		return nil, errors.Wrap(err, "failed to create task")
	}

	s.log(ctx).Debug("Task created", slog.String("taskID", task.ID.String()), slog.String("userID", userID.String()))

	return usecase.NewTaskOutput(task), nil
}

func (s *taskService) Get(ctx context.Context, userID, taskID uuid.UUID) (*usecase.TaskOutput, error) {
	task, err := s.findOwnedTask(ctx, s.taskRepo, userID, taskID, actionAccess)
	if err != nil {
		return nil, err
	}

	return usecase.NewTaskOutput(task), nil
}

// Update applies a partial update. Completion changes go through the same
// rule as SetCompletion.
func (s *taskService) Update(ctx context.Context, userID, taskID uuid.UUID, input *usecase.UpdateTaskInput) (*usecase.TaskOutput, error) {
	return s.mutate(ctx, userID, taskID, func(task *entity.Task, now time.Time) {
		if input.Title != nil {
			task.Title = *input.Title
		}
		switch {
		case input.ClearDescription:
			task.Description = nil
		case input.Description != nil:
			description := *input.Description
			task.Description = &description
		}
		if input.Completed != nil {
			task.SetCompleted(*input.Completed, now)
		}
	})
}

func (s *taskService) SetCompletion(ctx context.Context, userID, taskID uuid.UUID, completed bool) (*usecase.TaskOutput, error) {
	return s.mutate(ctx, userID, taskID, func(task *entity.Task, now time.Time) {
		task.SetCompleted(completed, now)
	})
}

func (s *taskService) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	err := s.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		taskRepo := repoFactory.TaskRepo()

		if _, err := s.findOwnedTask(ctx, taskRepo, userID, taskID, actionDelete); err != nil {
			return err
		}

		if err := taskRepo.Delete(ctx, taskID); err != nil {
			if errors.Is(err, repository.ErrTaskNotFound) {
				return errors.WithStack(domainerrors.ErrTaskNotFound)
			}

			return errors.Wrap(err, "failed to delete task")
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.log(ctx).Debug("Task deleted", slog.String("taskID", taskID.String()))

	return nil
}

// mutate loads an owned task, applies change and writes it back inside one
// transaction, so the read and the write see the same row.
func (s *taskService) mutate(
	ctx context.Context,
	userID, taskID uuid.UUID,
	change func(task *entity.Task, now time.Time),
) (*usecase.TaskOutput, error) {
	var updated *entity.Task
	err := s.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		taskRepo := repoFactory.TaskRepo()

		task, err := s.findOwnedTask(ctx, taskRepo, userID, taskID, actionUpdate)
		if err != nil {
			return err
		}

		now := s.now()
		change(task, now)
		task.Touch(now)

		if err := taskRepo.Update(ctx, task); err != nil {
			if errors.Is(err, repository.ErrTaskNotFound) {
				return errors.WithStack(domainerrors.ErrTaskNotFound)
			}

			return errors.Wrap(err, "failed to update task")
		}
		updated = task

		return nil
	})
	if err != nil {
		return nil, err
	}

	return usecase.NewTaskOutput(updated), nil
}

// findOwnedTask reports a missing task before checking the owner.
func (s *taskService) findOwnedTask(
	ctx context.Context,
	taskRepo repository.TaskRepository,
	userID, taskID uuid.UUID,
	action string,
) (*entity.Task, error) {
	task, err := taskRepo.FindByID(ctx, taskID)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return nil, errors.WithStack(domainerrors.ErrTaskNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find task")
	}

	if !task.OwnedBy(userID) {
		s.log(ctx).Warn("Task access denied",
			slog.String("taskID", taskID.String()),
			slog.String("userID", userID.String()),
		)

		return nil, errors.WithStack(
			domainerrors.ErrTaskAccessDenied.WithMessage("Not authorized to " + action + " this task"),
		)
	}

	return task, nil
}
