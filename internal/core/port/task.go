package port

import (
	"context"

	"taskboard/internal/core/domain"
)

type TaskRepository interface {
	GetAll(ctx context.Context) ([]domain.Task, error)
	GetByID(ctx context.Context, id int64) (domain.Task, error)
	Create(ctx context.Context, task domain.Task) (domain.Task, error)
	UpdateByID(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error)
	DeleteByID(ctx context.Context, id int64) error
}

type TaskService interface {
	List(ctx context.Context) ([]domain.Task, error)
	Get(ctx context.Context, id int64) (domain.Task, error)
	Create(ctx context.Context, task domain.Task) (domain.Task, error)
	Update(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error)
	Delete(ctx context.Context, id int64) error
}
