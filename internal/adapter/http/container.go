package http

import (
	"context"
	"fmt"

	"taskboard/internal/adapter/database/postgres"
	pgrepository "taskboard/internal/adapter/database/postgres/repository"
	"taskboard/internal/adapter/database/sqlite"
	sqliterepository "taskboard/internal/adapter/database/sqlite/repository"
	"taskboard/internal/adapter/http/handler"
	"taskboard/internal/core/port"
	"taskboard/internal/core/service"
	"taskboard/pkg/config"
)

type Container struct {
	TaskRepo    port.TaskRepository
	TaskService port.TaskService
	TaskHandler *handler.TaskHandler

	closeDB func()
}

// NewContainer opens the configured storage engine and wires
// repository, service and handler on top of it.
func NewContainer(ctx context.Context, cfg *config.AppConfig, probe port.Telemetry, logger *config.LokiLogger) (*Container, error) {
	var (
		taskRepo port.TaskRepository
		closeDB  func()
	)

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)

		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}

		taskRepo = pgrepository.NewTaskRepository(db, probe)
		closeDB = db.Close
	default:
		db, err := sqlite.NewDB(cfg.Database, cfg.Logging)

		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}

		taskRepo = sqliterepository.NewTaskRepository(db, probe)
		closeDB = func() { db.Close() }
	}

	return NewContainerWithRepository(taskRepo, probe, logger, closeDB), nil
}

func NewContainerWithRepository(taskRepo port.TaskRepository, probe port.Telemetry, logger *config.LokiLogger, closeDB func()) *Container {
	taskSvc := service.NewTaskService(taskRepo, probe)

	return &Container{
		TaskRepo:    taskRepo,
		TaskService: taskSvc,
		TaskHandler: handler.NewTaskHandler(taskSvc, logger),
		closeDB:     closeDB,
	}
}

func (c *Container) Close() {
	if c.closeDB != nil {
		c.closeDB()
	}
}
