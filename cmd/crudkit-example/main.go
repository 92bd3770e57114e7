// Command crudkit-example serves a books collection through the crudkit
// CRUD stack on the configured platform.
package main

import (
	"context"
	"fmt"

	"github.com/nimburion/crudkit/pkg/cli"
	"github.com/nimburion/crudkit/pkg/config"
	"github.com/nimburion/crudkit/pkg/controller"
	"github.com/nimburion/crudkit/pkg/health"
	"github.com/nimburion/crudkit/pkg/model"
	"github.com/nimburion/crudkit/pkg/observability/logger"
	"github.com/nimburion/crudkit/pkg/repository"
	"github.com/nimburion/crudkit/pkg/server"
	"github.com/nimburion/crudkit/pkg/server/router"
	"github.com/nimburion/crudkit/pkg/service"
	"github.com/nimburion/crudkit/pkg/store/mongodb"
)

// Book is the stored record.
type Book struct {
	model.BaseEntity `bson:",inline"`
	Title            string `bson:"title" json:"title" validate:"required"`
	Author           string `bson:"author,omitempty" json:"author,omitempty"`
	Year             int    `bson:"year,omitempty" json:"year,omitempty"`
}

func main() {
	cli.Execute(cli.NewServiceCommand(cli.ServiceCommandOptions{
		Name:              "crudkit-example",
		Description:       "Books CRUD API over MongoDB",
		RunServer:         run,
		CheckDependencies: checkMongo,
	}))
}

func run(_ context.Context, cfg *config.Config, log logger.Logger) error {
	adapter, err := connect(cfg, log)
	if err != nil {
		return err
	}

	books := controller.New[Book](service.New[Book](
		repository.NewMongoRepository[Book](adapter, "books"),
		log,
		service.WithEntityName("book"),
	))

	healthRegistry := health.NewRegistry()
	healthRegistry.Register(health.NewMongoChecker(adapter))

	opts := &server.RunOptions{
		Config:         cfg,
		Logger:         log,
		HealthRegistry: healthRegistry,
		Routes: func(r router.Router) {
			books.Register(r, "/books")
		},
		ShutdownHooks: []server.LifecycleHook{
			{Name: "mongodb", Fn: func(context.Context) error { return adapter.Close() }},
		},
	}
	servers, err := server.BuildHTTPServers(opts)
	if err != nil {
		_ = adapter.Close()
		return err
	}
	return server.RunHTTPServersWithSignals(servers, opts)
}

func checkMongo(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	adapter, err := connect(cfg, log)
	if err != nil {
		return err
	}
	defer adapter.Close()
	return adapter.HealthCheck(ctx)
}

func connect(cfg *config.Config, log logger.Logger) (*mongodb.Adapter, error) {
	adapter, err := mongodb.NewAdapter(mongodb.Config{
		URL:              cfg.Database.URL,
		Database:         cfg.Database.Name,
		ConnectTimeout:   cfg.Database.ConnectTimeout,
		OperationTimeout: cfg.Database.OperationTimeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	return adapter, nil
}
