package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"tasktracker/internal/delivery/api/middleware"
	"tasktracker/internal/delivery/api/response"
	"tasktracker/internal/delivery/api/validator"
	domainerrors "tasktracker/internal/domain/errors"
	"tasktracker/internal/errors"
	"tasktracker/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const maxDescriptionLength = 1000

var errInvalidTaskID = domainerrors.ErrInvalidID.WithMessage("Invalid task ID format")

// TaskHandlerParams holds dependencies for TaskHandler, injected by Fx.
type TaskHandlerParams struct {
	fx.In

	TaskUC usecase.TaskUsecase
	Logger *slog.Logger
}

// TaskHandler holds dependencies for task-related handlers
type TaskHandler struct {
	taskUC usecase.TaskUsecase
	logger *slog.Logger
}

// NewTaskHandler is the constructor for TaskHandler
func NewTaskHandler(params TaskHandlerParams) *TaskHandler {
	return &TaskHandler{
		taskUC: params.TaskUC,
		logger: params.Logger,
	}
}

// CreateTaskRequest represents the request body for creating a task
type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Completed   bool    `json:"completed"`
}

// UpdateTaskRequest is a partial update; absent fields keep their value.
type UpdateTaskRequest struct {
	Title       *string        `json:"title" validate:"omitempty,min=1,max=200"`
	Description optionalString `json:"description" validate:"-"`
	Completed   *bool          `json:"completed"`
}

// CompleteTaskRequest represents the request body for toggling completion
type CompleteTaskRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// optionalString tells an absent JSON field apart from an explicit null.
type optionalString struct {
	Present bool
	Value   *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil

		return nil
	}

	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err //nolint:wrapcheck // echo turns decode errors into a 400.
	}
	o.Value = &value

	return nil
}

// List handles GET /tasks.
func (h *TaskHandler) List(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrUnauthenticated)
	}

	tasks, err := h.taskUC.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, tasks)
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrUnauthenticated)
	}

	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	task, err := h.taskUC.Create(c.Request().Context(), userID, &usecase.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusCreated, task)
}

// Get handles GET /tasks/:id.
func (h *TaskHandler) Get(c echo.Context) error {
	userID, taskID, err := callerAndTask(c)
	if err != nil {
		return err
	}

	task, err := h.taskUC.Get(c.Request().Context(), userID, taskID)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, task)
}

// Update handles PUT /tasks/:id.
func (h *TaskHandler) Update(c echo.Context) error {
	userID, taskID, err := callerAndTask(c)
	if err != nil {
		return err
	}

	var req UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Description.Value != nil && utf8.RuneCountInString(*req.Description.Value) > maxDescriptionLength {
		return &validator.ValidationError{Fields: []validator.FieldError{
			{Field: "description", Rule: "max", Param: "1000"},
		}}
	}

	task, err := h.taskUC.Update(c.Request().Context(), userID, taskID, &usecase.UpdateTaskInput{
		Title:            req.Title,
		Description:      req.Description.Value,
		ClearDescription: req.Description.Present && req.Description.Value == nil,
		Completed:        req.Completed,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, task)
}

// Complete handles PATCH /tasks/:id/complete.
func (h *TaskHandler) Complete(c echo.Context) error {
	userID, taskID, err := callerAndTask(c)
	if err != nil {
		return err
	}

	var req CompleteTaskRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	task, err := h.taskUC.SetCompletion(c.Request().Context(), userID, taskID, *req.Completed)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, task)
}

// Delete handles DELETE /tasks/:id.
func (h *TaskHandler) Delete(c echo.Context) error {
	userID, taskID, err := callerAndTask(c)
	if err != nil {
		return err
	}

	if err := h.taskUC.Delete(c.Request().Context(), userID, taskID); err != nil {
		return err
	}

	return response.NoContent(c)
}

// callerAndTask resolves the authenticated caller and the :id path parameter.
func callerAndTask(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, errors.WithStack(domainerrors.ErrUnauthenticated)
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.WithStack(errInvalidTaskID)
	}

	return userID, taskID, nil
}
