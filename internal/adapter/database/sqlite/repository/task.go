package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"taskboard/internal/adapter/database/sqlite"
	"taskboard/internal/core/domain"
	"taskboard/internal/core/port"
	tel "taskboard/internal/core/telemetry"
)

const entity = "task"

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type TaskRepository struct {
	db        *sqlite.DB
	telemetry port.Telemetry
}

func NewTaskRepository(db *sqlite.DB, telemetry port.Telemetry) port.TaskRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TaskRepository{
		db:        db,
		telemetry: telemetry,
	}
}

func (tr *TaskRepository) startSpan(ctx context.Context, operation string, attrs map[string]interface{}) (context.Context, port.Span) {
	if attrs == nil {
		attrs = map[string]interface{}{}
	}

	attrs["db.system"] = "sqlite"
	attrs["db.table"] = "tasks"

	return tr.telemetry.StartRepositorySpan(ctx, operation, entity, attrs)
}

// finish closes out the span bookkeeping. A missing task is an expected
// outcome and is not reported as a failure.
func (tr *TaskRepository) finish(ctx context.Context, span port.Span, operation string, startTime time.Time, err error) {
	if err != nil && !errors.Is(err, domain.ErrTaskNotFound) {
		span.SetStatus("error", err.Error())
		span.RecordError(err)
		tr.telemetry.RecordRepositoryOperation(ctx, operation, entity, time.Since(startTime), err)
		return
	}

	span.SetStatus("ok", "")
	tr.telemetry.RecordRepositoryOperation(ctx, operation, entity, time.Since(startTime), nil)
}

func (tr *TaskRepository) GetAll(ctx context.Context) (tasks []domain.Task, err error) {
	ctx, span := tr.startSpan(ctx, "GetAll", map[string]interface{}{"db.operation": "SELECT"})
	defer span.End()

	startTime := time.Now()
	defer func() { tr.finish(ctx, span, "GetAll", startTime, err) }()

	query, args, err := tr.db.QueryBuilder.Select(sqlite.TaskColumns...).
		From("tasks").
		OrderBy("id ASC").
		ToSql()

	if err != nil {
		return nil, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "GetAll", entity, query, args)

	rows, err := tr.db.QueryContext(ctx, query, args...)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	tasks = make([]domain.Task, 0)

	for rows.Next() {
		task, err := sqlite.ScanTask(rows)

		if err != nil {
			return nil, err
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(map[string]interface{}{"db.rows_returned": len(tasks)})

	return tasks, nil
}

func (tr *TaskRepository) GetByID(ctx context.Context, id int64) (task domain.Task, err error) {
	ctx, span := tr.startSpan(ctx, "GetByID", map[string]interface{}{"db.operation": "SELECT", "task.id": id})
	defer span.End()

	startTime := time.Now()
	defer func() { tr.finish(ctx, span, "GetByID", startTime, err) }()

	return tr.getByID(ctx, tr.db, id)
}

func (tr *TaskRepository) getByID(ctx context.Context, q queryer, id int64) (domain.Task, error) {
	query, args, err := tr.db.QueryBuilder.Select(sqlite.TaskColumns...).
		From("tasks").
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()

	if err != nil {
		return domain.Task{}, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "GetByID", entity, query, args)

	task, err := sqlite.ScanTask(q.QueryRowContext(ctx, query, args...))

	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, fmt.Errorf("%w: id %d", domain.ErrTaskNotFound, id)
	}

	if err != nil {
		return domain.Task{}, err
	}

	return task, nil
}

func (tr *TaskRepository) Create(ctx context.Context, task domain.Task) (saved domain.Task, err error) {
	ctx, span := tr.startSpan(ctx, "Create", map[string]interface{}{
		"db.operation": "INSERT",
		"task.id":      task.ID,
		"task.title":   task.Title,
	})
	defer span.End()

	startTime := time.Now()
	defer func() { tr.finish(ctx, span, "Create", startTime, err) }()

	query, args, err := tr.db.QueryBuilder.Insert("tasks").
		Columns(sqlite.TaskColumns...).
		Values(task.ID, task.Title, task.Description, task.Completed, task.Column).
		ToSql()

	if err != nil {
		return domain.Task{}, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Create", entity, query, args)

	if _, err := tr.db.ExecContext(ctx, query, args...); err != nil {
		if sqlite.IsConstraintViolation(err) {
			return domain.Task{}, fmt.Errorf("%w: id %d", domain.ErrTaskConflict, task.ID)
		}

		return domain.Task{}, err
	}

	return tr.getByID(ctx, tr.db, task.ID)
}

func (tr *TaskRepository) UpdateByID(ctx context.Context, id int64, patch domain.TaskPatch) (updated domain.Task, err error) {
	ctx, span := tr.startSpan(ctx, "UpdateByID", map[string]interface{}{
		"db.operation":        "UPDATE",
		"task.id":             id,
		"update.fields":       patch.Changes(),
		"update.fields_count": len(patch.Changes()),
	})
	defer span.End()

	startTime := time.Now()
	defer func() { tr.finish(ctx, span, "UpdateByID", startTime, err) }()

	tx, err := tr.db.BeginTx(ctx, nil)

	if err != nil {
		return domain.Task{}, err
	}

	defer tx.Rollback()

	current, err := tr.getByID(ctx, tx, id)

	if err != nil {
		return domain.Task{}, err
	}

	updated = patch.Apply(current)

	if !patch.IsEmpty() {
		query, args, err := tr.db.QueryBuilder.Update("tasks").
			SetMap(updated.ToMap()).
			Where(sq.Eq{"id": id}).
			ToSql()

		if err != nil {
			return domain.Task{}, err
		}

		tr.telemetry.RecordRepositoryQuery(ctx, "UpdateByID", entity, query, args)

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return domain.Task{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}

	return updated, nil
}

func (tr *TaskRepository) DeleteByID(ctx context.Context, id int64) (err error) {
	ctx, span := tr.startSpan(ctx, "DeleteByID", map[string]interface{}{"db.operation": "DELETE", "task.id": id})
	defer span.End()

	startTime := time.Now()
	defer func() { tr.finish(ctx, span, "DeleteByID", startTime, err) }()

	query, args, err := tr.db.QueryBuilder.Delete("tasks").
		Where(sq.Eq{"id": id}).
		ToSql()

	if err != nil {
		return err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "DeleteByID", entity, query, args)

	result, err := tr.db.ExecContext(ctx, query, args...)

	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return err
	}

	span.SetAttributes(map[string]interface{}{"db.rows_affected": rowsAffected})

	if rowsAffected == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrTaskNotFound, id)
	}

	return nil
}
