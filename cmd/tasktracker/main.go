package main

import (
	"context"
	"log/slog"
	"os"

	"tasktracker/config"
	"tasktracker/internal/delivery"
	"tasktracker/internal/delivery/api"
	"tasktracker/internal/delivery/api/middleware"
	"tasktracker/internal/delivery/api/router/handler"
	"tasktracker/internal/infra/auth"
	logs "tasktracker/internal/infra/log"
	"tasktracker/internal/infra/metrics"
	"tasktracker/internal/infra/persistence/database"
	"tasktracker/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
	Logger     *slog.Logger
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		metrics.New,
		context.Background,
		database.New,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			database.NewUserRepository,
			database.NewTaskRepository,
			database.NewTransactionManager,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewJWTService,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAccountService,
			impl.NewTaskService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAccountHandler,
			handler.NewTaskHandler,
			handler.NewHealthHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

// startServer launches the deliveries once every OnStart hook, including the
// database migration, has run.
func startServer(ctx context.Context, params startServerParams) {
	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			for _, delivery := range params.Deliveries {
				go func() {
					if err := delivery.Serve(ctx); err != nil {
						params.Logger.Error("Failed to start server", slog.Any("error", err))
						os.Exit(1)
					}
				}()
			}

			return nil
		},
	})
}
