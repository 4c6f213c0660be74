package handler

import (
	"context"
	"net/http"
	"time"

	"tasktracker/config"
	"tasktracker/internal/delivery/api/response"
	domainerrors "tasktracker/internal/domain/errors"
	"tasktracker/internal/errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// readyPingTimeout bounds the store ping behind GET /ready.
const readyPingTimeout = 2 * time.Second

type HealthHandlerParams struct {
	fx.In

	Config *config.Config
	DB     *gorm.DB
}

// HealthHandler serves the unauthenticated probe endpoints.
type HealthHandler struct {
	version string
	db      *gorm.DB
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(params HealthHandlerParams) *HealthHandler {
	return &HealthHandler{
		version: params.Config.Env.Version,
		db:      params.DB,
	}
}

// Health reports liveness. It never touches the store.
func (h *HealthHandler) Health(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready reports whether the store answers a ping.
func (h *HealthHandler) Ready(c echo.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return errors.Join(domainerrors.ErrStoreUnavailable, errors.Wrap(err, "resolve sql.DB"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), readyPingTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Join(domainerrors.ErrStoreUnavailable, errors.Wrap(err, "ping database"))
	}

	return response.Success(c, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "connected",
	})
}

// Root greets clients that hit the base URL.
func (h *HealthHandler) Root(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{
		"message": "Welcome to the Todo API",
		"version": h.version,
	})
}
