package handler

import (
	"context"
	"errors"
	"net/http"

	. "taskboard/internal/adapter/http/helper"
	. "taskboard/internal/adapter/http/validation"
	"taskboard/internal/core/domain"
	"taskboard/internal/core/model/request"
	"taskboard/internal/core/model/response"
	"taskboard/internal/core/port"
	"taskboard/internal/core/util"
	"taskboard/pkg/config"
	. "taskboard/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	MessageTaskCreated = "Task created successfully!"
	MessageTaskUpdated = "Task attributes were updated successfully"
	MessageTaskDeleted = "Task deleted successfully"

	messageTaskNotFound = "Task not found"
)

type TaskHandler struct {
	svc    port.TaskService
	Logger *config.LokiLogger
}

func NewTaskHandler(taskService port.TaskService, logger *config.LokiLogger) *TaskHandler {
	if logger == nil {
		logger = config.NewNopLogger()
	}

	return &TaskHandler{
		svc:    taskService,
		Logger: logger,
	}
}

func (t *TaskHandler) startSpan(c *gin.Context, operation string) (context.Context, trace.Span) {
	return CreateChildSpan(c.Request.Context(), "handler.task."+operation, []attribute.KeyValue{
		attribute.String("handler.operation", operation),
		attribute.String("handler.method", c.Request.Method),
		attribute.String("handler.path", c.FullPath()),
	})
}

// sendServiceError maps domain errors to the error envelope. Anything it
// does not recognise is logged and reported as a 500.
func (t *TaskHandler) sendServiceError(c *gin.Context, ctx context.Context, span trace.Span, operation string, err error) {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		SendNotFoundError(c, messageTaskNotFound)
	case errors.Is(err, domain.ErrTaskConflict):
		SendConflictError(c, "id", "Task with this id already exists")
	case errors.Is(err, domain.ErrInvalidTask):
		SendError(c, http.StatusBadRequest, "VALIDATION_ERROR", []response.ValidationError{
			{Field: "task", Message: err.Error()},
		})
	default:
		AddSpanError(span, err)

		t.Logger.ErrorWithTrace(ctx, "Task operation failed",
			zap.String("operation", operation),
			zap.Error(err),
		)

		SendInternalError(c, "Error processing task")
	}

	AddHTTPAttributes(span, c.Request.Method, c.FullPath(), c.Writer.Status())
}

func (t *TaskHandler) ListTasks(c *gin.Context) {
	ctx, span := t.startSpan(c, "ListTasks")
	defer span.End()

	tasks, err := t.svc.List(ctx)

	if err != nil {
		t.sendServiceError(c, ctx, span, "ListTasks", err)
		return
	}

	span.SetAttributes(attribute.Int("tasks.count", len(tasks)))
	AddHTTPAttributes(span, c.Request.Method, c.FullPath(), http.StatusOK)

	c.JSON(http.StatusOK, response.NewTaskListResponse(tasks))
}

func (t *TaskHandler) CreateTask(c *gin.Context) {
	ctx, span := t.startSpan(c, "CreateTask")
	defer span.End()

	params, err := util.ParamsToMap[request.TaskRequest](c)

	if err != nil {
		SendBadRequestError(c, "request", "Invalid request body")
		return
	}

	if err := Validator.Struct(params); err != nil {
		AddSpanEvent(span, "validation.failed", []attribute.KeyValue{attribute.String("error", err.Error())})
		SendValidationError(c, err)
		return
	}

	task := params.ToDomain()
	AddTaskAttributes(span, task.ID, "CreateTask")

	if _, err := t.svc.Create(ctx, task); err != nil {
		t.sendServiceError(c, ctx, span, "CreateTask", err)
		return
	}

	AddHTTPAttributes(span, c.Request.Method, c.FullPath(), http.StatusCreated)

	SendMessage(c, http.StatusCreated, MessageTaskCreated)
}

func (t *TaskHandler) GetTask(c *gin.Context) {
	ctx, span := t.startSpan(c, "GetTask")
	defer span.End()

	id, ok := util.ParamID(c)

	if !ok {
		SendNotFoundError(c, messageTaskNotFound)
		return
	}

	AddTaskAttributes(span, id, "GetTask")

	task, err := t.svc.Get(ctx, id)

	if err != nil {
		t.sendServiceError(c, ctx, span, "GetTask", err)
		return
	}

	AddHTTPAttributes(span, c.Request.Method, c.FullPath(), http.StatusOK)

	c.JSON(http.StatusOK, response.NewTaskResponse(task))
}

func (t *TaskHandler) UpdateTask(c *gin.Context) {
	ctx, span := t.startSpan(c, "UpdateTask")
	defer span.End()

	id, ok := util.ParamID(c)

	if !ok {
		SendNotFoundError(c, messageTaskNotFound)
		return
	}

	AddTaskAttributes(span, id, "UpdateTask")

	params, err := util.ParamsToMap[request.TaskPatchRequest](c)

	if err != nil {
		SendBadRequestError(c, "request", "Invalid request body")
		return
	}

	if params.Title.Set && params.Title.Null {
		SendBadRequestError(c, "title", "title cannot be null")
		return
	}

	if params.Completed.Set && params.Completed.Null {
		SendBadRequestError(c, "completed", "completed cannot be null")
		return
	}

	if err := Validator.Struct(params.Rules()); err != nil {
		AddSpanEvent(span, "validation.failed", []attribute.KeyValue{attribute.String("error", err.Error())})
		SendValidationError(c, err)
		return
	}

	if _, err := t.svc.Update(ctx, id, params.ToPatch()); err != nil {
		t.sendServiceError(c, ctx, span, "UpdateTask", err)
		return
	}

	AddHTTPAttributes(span, c.Request.Method, c.FullPath(), http.StatusOK)

	SendMessage(c, http.StatusOK, MessageTaskUpdated)
}

func (t *TaskHandler) DeleteTask(c *gin.Context) {
	ctx, span := t.startSpan(c, "DeleteTask")
	defer span.End()

	id, ok := util.ParamID(c)

	if !ok {
		SendNotFoundError(c, messageTaskNotFound)
		return
	}

	AddTaskAttributes(span, id, "DeleteTask")

	if err := t.svc.Delete(ctx, id); err != nil {
		t.sendServiceError(c, ctx, span, "DeleteTask", err)
		return
	}

	AddHTTPAttributes(span, c.Request.Method, c.FullPath(), http.StatusOK)

	SendMessage(c, http.StatusOK, MessageTaskDeleted)
}
