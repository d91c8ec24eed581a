package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"taskboard/internal/adapter/database/sqlite/repository"
	"taskboard/internal/adapter/http/handler"
	"taskboard/internal/adapter/http/routes"
	"taskboard/internal/core/service"
	"taskboard/internal/core/telemetry"
	"taskboard/pkg/config"
	. "taskboard/pkg/test"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newHandlers(t *testing.T) routes.HandlersConfig {
	db := InitTestDB()
	t.Cleanup(func() { db.Close() })

	svc := service.NewTaskService(repository.NewTaskRepository(db, nil), nil)

	return routes.HandlersConfig{TaskHandler: handler.NewTaskHandler(svc, nil)}
}

func TestSetupRouter_CORSAllowsAnyOrigin(t *testing.T) {
	RegisterTestingT(t)

	router := routes.SetupRouterForTests(newHandlers(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	router.ServeHTTP(w, req)

	Expect(w.Code).To(Equal(http.StatusOK))
	Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
	Expect(w.Header().Get("X-Request-ID")).ToNot(BeEmpty())
}

func TestSetupRouter_Preflight(t *testing.T) {
	RegisterTestingT(t)

	router := routes.SetupRouterForTests(newHandlers(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("OPTIONS", "/tasks/create", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	router.ServeHTTP(w, req)

	Expect(w.Code).To(Equal(http.StatusNoContent))
	Expect(w.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("POST"))
}

func TestSetupRouter_UnknownRoute(t *testing.T) {
	RegisterTestingT(t)

	router := routes.SetupRouterForTests(newHandlers(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/nowhere", nil)
	router.ServeHTTP(w, req)

	Expect(w.Code).To(Equal(http.StatusNotFound))
	Expect(w.Body.String()).To(ContainSubstring(`"code":"NOT_FOUND"`))
}

func TestSetupRouterWithConfig_FullPipeline(t *testing.T) {
	RegisterTestingT(t)

	cfg := config.GetDefaultConfig()
	cfg.Environment = "test"
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Requests = 1

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewAppMetrics(registry)
	router := routes.SetupRouterWithConfig(newHandlers(t), metrics, config.NewNopLogger(), cfg)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/tasks", nil)
	req.Header.Set("X-Request-ID", "req-123")
	router.ServeHTTP(w, req)

	Expect(w.Code).To(Equal(http.StatusOK))
	Expect(w.Body.String()).To(Equal("[]"))
	Expect(w.Header().Get("X-Request-ID")).To(Equal("req-123"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/tasks", nil)
	router.ServeHTTP(w, req)

	Expect(w.Code).To(Equal(http.StatusTooManyRequests))

	count, err := testutil.GatherAndCount(registry, "http_requests_total")
	Expect(err).To(BeNil())
	Expect(count).To(Equal(1))
}
