package routes

import (
	"taskboard/internal/adapter/http/handler"
	. "taskboard/internal/adapter/http/helper"
	"taskboard/internal/adapter/http/middleware"
	"taskboard/internal/core/telemetry"
	"taskboard/pkg/config"

	"github.com/gin-gonic/gin"
)

type HandlersConfig struct {
	TaskHandler *handler.TaskHandler
}

func SetupRouter(handlers HandlersConfig, metrics *telemetry.AppMetrics, logger *config.LokiLogger) *gin.Engine {
	return SetupRouterWithConfig(handlers, metrics, logger, config.GetDefaultConfig())
}

func SetupRouterWithConfig(handlers HandlersConfig, metrics *telemetry.AppMetrics, logger *config.LokiLogger, cfg *config.AppConfig) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	middleware.SetupGinMiddleware(router, metrics, logger, cfg)

	setupTaskRoutes(router, handlers.TaskHandler)
	setupFallback(router)

	return router
}

func setupTaskRoutes(router *gin.Engine, taskHandler *handler.TaskHandler) {
	if taskHandler == nil {
		return
	}

	tasks := router.Group("/tasks")
	{
		tasks.GET("", taskHandler.ListTasks)
		tasks.POST("/create", taskHandler.CreateTask)
		tasks.GET("/:id", taskHandler.GetTask)
		tasks.PUT("/:id/update", taskHandler.UpdateTask)
		tasks.DELETE("/:id/delete", taskHandler.DeleteTask)
	}
}

func setupFallback(router *gin.Engine) {
	router.NoRoute(func(c *gin.Context) {
		SendNotFoundError(c, "Route not found")
	})
}

// SetupRouterForTests wires the task routes with recovery, request ids and
// CORS only.
func SetupRouterForTests(handlers HandlersConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.CurrentMiddleware())
	router.Use(middleware.CORSMiddleware([]string{"*"}))

	setupTaskRoutes(router, handlers.TaskHandler)
	setupFallback(router)

	return router
}
