package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"

	"tasktracker/config"
	"tasktracker/internal/delivery"
	apimiddleware "tasktracker/internal/delivery/api/middleware"
	"tasktracker/internal/delivery/api/router"
	"tasktracker/internal/delivery/api/validator"
	deliverycontext "tasktracker/internal/delivery/context"
	"tasktracker/internal/delivery/middleware"
	"tasktracker/internal/domain/lifecycle"
	"tasktracker/internal/errors"
	"tasktracker/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"golang.org/x/net/http2"
)

type apiServer struct {
	cfg    *config.Config
	logger *slog.Logger
	server *echo.Echo
}

// ServerParams holds dependencies for HTTP server, injected by Fx.
type ServerParams struct {
	fx.In

	Lc           fx.Lifecycle
	Cfg          *config.Config
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	RouterParams router.RouterParams
}

func NewServer(params ServerParams) (delivery.Delivery, error) {
	echoServer := NewEcho(params.Cfg, params.Logger, params.Metrics)

	r := router.NewRouter(params.RouterParams)
	r.RegisterRoutes(echoServer)

	srv := &apiServer{
		cfg:    params.Cfg,
		logger: params.Logger,
		server: echoServer,
	}

	params.Lc.Append(fx.Hook{
		OnStop: srv.stop,
	})

	return srv, nil
}

// NewEcho builds the echo instance with the full middleware chain and error
// handler. Routes are registered by the caller.
func NewEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Server.ReadTimeout = cfg.HTTP.Timeouts.ReadTimeout
	echoServer.Server.ReadHeaderTimeout = cfg.HTTP.Timeouts.ReadHeaderTimeout
	echoServer.Server.WriteTimeout = cfg.HTTP.Timeouts.WriteTimeout
	echoServer.Server.IdleTimeout = cfg.HTTP.Timeouts.IdleTimeout

	// Set up middleware in correct order
	// 1. Recover middleware first (to catch panics early)
	echoServer.Use(echomiddleware.Recover())

	// 2. Request ID middleware (must be before logger to include in logs)
	requestIDMiddleware := middleware.NewRequestIDMiddleware(logger)
	echoServer.Use(requestIDMiddleware.Process)

	// 3. Metrics, which sees the final status written by the logger stage
	metricsPath := ""
	if cfg.Metrics != nil {
		metricsPath = cfg.Metrics.Path
	}
	echoServer.Use(apimiddleware.NewMetricsMiddleware(m, metricsPath).Handle)

	// 4. Logger middleware
	loggerMiddleware := middleware.NewLoggerMiddleware(logger, cfg)
	echoServer.Use(loggerMiddleware.Handle)

	// 5. CORS middleware
	echoServer.Use(echomiddleware.CORSWithConfig(corsConfig(cfg)))

	// 6. Request body size limit
	echoServer.Use(echomiddleware.BodyLimit(cfg.HTTP.MaxRequestBodySize))

	// Set up centralized error handler
	errorMiddleware := apimiddleware.NewErrorMiddleware(logger)
	echoServer.HTTPErrorHandler = errorMiddleware.HandleHTTPError

	// Set up validator
	echoServer.Validator = validator.New()

	return echoServer
}

// corsConfig allows credentials only for an explicit origin list; browsers
// reject credentials combined with a wildcard.
func corsConfig(cfg *config.Config) echomiddleware.CORSConfig {
	origins := cfg.HTTP.CORS.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return echomiddleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderAuthorization, echo.HeaderContentType, deliverycontext.HeaderXRequestID,
		},
		ExposeHeaders:    []string{deliverycontext.HeaderXRequestID},
		AllowCredentials: !slices.Contains(origins, "*"),
	}
}

func (s *apiServer) Serve(ctx context.Context) error {
	hostPort := net.JoinHostPort("0.0.0.0", strconv.Itoa(s.cfg.HTTP.Port))
	s.logger.Info("Starting API HTTP server", slog.String("host_port", hostPort))
	h2Server := &http2.Server{
		IdleTimeout: s.cfg.HTTP.Timeouts.IdleTimeout,
	}
	if err := s.server.StartH2CServer(hostPort, h2Server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.WithStack(err)
	}

	return nil
}

func (s *apiServer) stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()

	s.logger.Info("Shutting down API HTTP server")

	return errors.WithStack(s.server.Shutdown(shutdownCtx))
}
