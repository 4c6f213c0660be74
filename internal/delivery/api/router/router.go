// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"tasktracker/config"
	"tasktracker/internal/delivery/api/middleware"
	"tasktracker/internal/delivery/api/router/handler"
	"tasktracker/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AccountHandler *handler.AccountHandler
	TaskHandler    *handler.TaskHandler
	HealthHandler  *handler.HealthHandler
	AuthMiddleware *middleware.AuthMiddleware
	Metrics        *metrics.Metrics
	Config         *config.Config
}

// router holds all the handlers that need to be registered.
type router struct {
	accountHandler *handler.AccountHandler
	taskHandler    *handler.TaskHandler
	healthHandler  *handler.HealthHandler
	authMiddleware *middleware.AuthMiddleware
	metrics        *metrics.Metrics
	config         *config.Config
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		accountHandler: params.AccountHandler,
		taskHandler:    params.TaskHandler,
		healthHandler:  params.HealthHandler,
		authMiddleware: params.AuthMiddleware,
		metrics:        params.Metrics,
		config:         params.Config,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/", r.healthHandler.Root)
	e.GET("/health", r.healthHandler.Health)
	e.GET("/ready", r.healthHandler.Ready)

	if r.config.Metrics != nil && r.config.Metrics.Enabled {
		e.GET(r.config.Metrics.Path, echo.WrapHandler(r.metrics.Handler()))
	}

	// Auth routes
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/register", r.accountHandler.Register)
		authGroup.POST("/login", r.accountHandler.Login)
		authGroup.POST("/token", r.accountHandler.Token)
		authGroup.GET("/me", r.accountHandler.Me, r.authMiddleware.Authenticate)
		authGroup.POST("/logout", r.accountHandler.Logout, r.authMiddleware.Authenticate)
	}

	// Task routes, all scoped to the authenticated caller
	tasksGroup := e.Group("/tasks")
	tasksGroup.Use(r.authMiddleware.Authenticate)
	{
		tasksGroup.GET("", r.taskHandler.List)
		tasksGroup.POST("", r.taskHandler.Create)
		tasksGroup.GET("/:id", r.taskHandler.Get)
		tasksGroup.PUT("/:id", r.taskHandler.Update)
		tasksGroup.PATCH("/:id/complete", r.taskHandler.Complete)
		tasksGroup.DELETE("/:id", r.taskHandler.Delete)
	}
}
