package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"taskboard/internal/core/domain"
	"taskboard/internal/core/port"
	tel "taskboard/internal/core/telemetry"
)

const serviceName = "task"

type TaskService struct {
	repo      port.TaskRepository
	telemetry port.Telemetry
}

func NewTaskService(repo port.TaskRepository, telemetry port.Telemetry) *TaskService {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TaskService{repo: repo, telemetry: telemetry}
}

func (ts *TaskService) List(ctx context.Context) ([]domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "List", nil)
	defer span.End()

	startTime := time.Now()

	tasks, err := ts.repo.GetAll(ctx)
	ts.telemetry.RecordServiceOperation(ctx, serviceName, "List", time.Since(startTime), err)

	if err != nil {
		return nil, err
	}

	span.SetAttributes(map[string]interface{}{"tasks.count": len(tasks)})

	return tasks, nil
}

func (ts *TaskService) Get(ctx context.Context, id int64) (domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "Get", map[string]interface{}{"task.id": id})
	defer span.End()

	startTime := time.Now()

	task, err := ts.repo.GetByID(ctx, id)
	ts.telemetry.RecordServiceOperation(ctx, serviceName, "Get", time.Since(startTime), err)

	return task, err
}

func (ts *TaskService) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "Create", map[string]interface{}{"task.id": task.ID})
	defer span.End()

	startTime := time.Now()

	if err := task.Validate(); err != nil {
		ts.telemetry.RecordServiceOperation(ctx, serviceName, "Create", time.Since(startTime), err)
		return domain.Task{}, err
	}

	saved, err := ts.repo.Create(ctx, task)
	ts.telemetry.RecordServiceOperation(ctx, serviceName, "Create", time.Since(startTime), err)

	if err != nil {
		return domain.Task{}, fmt.Errorf("create task %d: %w", task.ID, err)
	}

	ts.telemetry.RecordBusinessEvent(ctx, "created", serviceName, strconv.FormatInt(saved.ID, 10), map[string]interface{}{
		"title":     saved.Title,
		"completed": saved.Completed,
	})

	return saved, nil
}

func (ts *TaskService) Update(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "Update", map[string]interface{}{
		"task.id":      id,
		"task.changes": patch.Changes(),
	})
	defer span.End()

	startTime := time.Now()

	if err := patch.Validate(); err != nil {
		ts.telemetry.RecordServiceOperation(ctx, serviceName, "Update", time.Since(startTime), err)
		return domain.Task{}, err
	}

	updated, err := ts.repo.UpdateByID(ctx, id, patch)
	ts.telemetry.RecordServiceOperation(ctx, serviceName, "Update", time.Since(startTime), err)

	if err != nil {
		return domain.Task{}, fmt.Errorf("update task %d: %w", id, err)
	}

	if !patch.IsEmpty() {
		ts.telemetry.RecordBusinessEvent(ctx, "updated", serviceName, strconv.FormatInt(id, 10), map[string]interface{}{
			"changes": patch.Changes(),
		})
	}

	return updated, nil
}

func (ts *TaskService) Delete(ctx context.Context, id int64) error {
	ctx, span := ts.telemetry.StartServiceSpan(ctx, serviceName, "Delete", map[string]interface{}{"task.id": id})
	defer span.End()

	startTime := time.Now()

	err := ts.repo.DeleteByID(ctx, id)
	ts.telemetry.RecordServiceOperation(ctx, serviceName, "Delete", time.Since(startTime), err)

	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}

	ts.telemetry.RecordBusinessEvent(ctx, "deleted", serviceName, strconv.FormatInt(id, 10), nil)

	return nil
}
