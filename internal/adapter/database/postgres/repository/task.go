package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"taskboard/internal/adapter/database/postgres"
	"taskboard/internal/core/domain"
	"taskboard/internal/core/port"
	tel "taskboard/internal/core/telemetry"
)

const entity = "task"

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type TaskRepository struct {
	db        *postgres.DB
	telemetry port.Telemetry
}

func NewTaskRepository(db *postgres.DB, telemetry port.Telemetry) port.TaskRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	return &TaskRepository{db: db, telemetry: telemetry}
}

func (tr *TaskRepository) startSpan(ctx context.Context, operation, statement string, attrs map[string]interface{}) (context.Context, port.Span) {
	if attrs == nil {
		attrs = map[string]interface{}{}
	}

	attrs["db.system"] = "postgresql"
	attrs["db.table"] = "tasks"
	attrs["db.operation"] = statement

	return tr.telemetry.StartRepositorySpan(ctx, operation, entity, attrs)
}

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
	ctx, span := tr.startSpan(ctx, "GetAll", "SELECT", nil)
	defer span.End()

	startTime := time.Now()
	defer func() { tr.finish(ctx, span, "GetAll", startTime, err) }()

	query, args, err := tr.db.QueryBuilder.Select(postgres.TaskColumns...).
		From("tasks").
		OrderBy("id ASC").
		ToSql()

	if err != nil {
		return nil, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "GetAll", entity, query, args)

	rows, err := tr.db.Query(ctx, query, args...)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	tasks = make([]domain.Task, 0)

	for rows.Next() {
		task, err := postgres.ScanTask(rows)

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
	ctx, span := tr.startSpan(ctx, "GetByID", "SELECT", map[string]interface{}{"task.id": id})
	defer span.End()

	startTime := time.Now()
	defer func() { tr.finish(ctx, span, "GetByID", startTime, err) }()

	return tr.getByID(ctx, tr.db, id, false)
}

func (tr *TaskRepository) getByID(ctx context.Context, q queryer, id int64, forUpdate bool) (domain.Task, error) {
	builder := tr.db.QueryBuilder.Select(postgres.TaskColumns...).
		From("tasks").
		Where(sq.Eq{"id": id}).
		Limit(1)

	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()

	if err != nil {
		return domain.Task{}, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "GetByID", entity, query, args)

	task, err := postgres.ScanTask(q.QueryRow(ctx, query, args...))

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, fmt.Errorf("%w: id %d", domain.ErrTaskNotFound, id)
	}

	if err != nil {
		return domain.Task{}, err
	}

	return task, nil
}

func (tr *TaskRepository) Create(ctx context.Context, task domain.Task) (saved domain.Task, err error) {
	ctx, span := tr.startSpan(ctx, "Create", "INSERT", map[string]interface{}{
		"task.id":    task.ID,
		"task.title": task.Title,
	})
	defer span.End()

	startTime := time.Now()
	defer func() { tr.finish(ctx, span, "Create", startTime, err) }()

	query, args, err := tr.db.QueryBuilder.Insert("tasks").
		Columns(postgres.TaskColumns...).
		Values(task.ID, task.Title, task.Description, task.Completed, task.Column).
		Suffix("RETURNING " + strings.Join(postgres.TaskColumns, ", ")).
		ToSql()

	if err != nil {
		return domain.Task{}, err
	}

	tr.telemetry.RecordRepositoryQuery(ctx, "Create", entity, query, args)

	saved, err = postgres.ScanTask(tr.db.QueryRow(ctx, query, args...))

	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return domain.Task{}, fmt.Errorf("%w: id %d", domain.ErrTaskConflict, task.ID)
		}

		return domain.Task{}, err
	}

	return saved, nil
}

func (tr *TaskRepository) UpdateByID(ctx context.Context, id int64, patch domain.TaskPatch) (updated domain.Task, err error) {
	ctx, span := tr.startSpan(ctx, "UpdateByID", "UPDATE", map[string]interface{}{
		"task.id":             id,
		"update.fields":       patch.Changes(),
		"update.fields_count": len(patch.Changes()),
	})
	defer span.End()

	startTime := time.Now()
	defer func() { tr.finish(ctx, span, "UpdateByID", startTime, err) }()

	tx, err := tr.db.Begin(ctx)

	if err != nil {
		return domain.Task{}, err
	}

	defer tx.Rollback(ctx)

	current, err := tr.getByID(ctx, tx, id, true)

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

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return domain.Task{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Task{}, err
	}

	return updated, nil
}

func (tr *TaskRepository) DeleteByID(ctx context.Context, id int64) (err error) {
	ctx, span := tr.startSpan(ctx, "DeleteByID", "DELETE", map[string]interface{}{"task.id": id})
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

	tag, err := tr.db.Exec(ctx, query, args...)

	if err != nil {
		return err
	}

	span.SetAttributes(map[string]interface{}{"db.rows_affected": tag.RowsAffected()})

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrTaskNotFound, id)
	}

	return nil
}
