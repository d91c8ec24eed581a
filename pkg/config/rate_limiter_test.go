package config

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	. "taskboard/pkg"

	"taskboard/internal/core/telemetry"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func testRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:       true,
		Requests:      10,
		WriteRequests: 3,
		Window:        time.Minute,
	}
}

func newLimitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.RateLimitMiddleware())

	router.GET("/tasks", func(c *gin.Context) {
		c.JSON(200, []gin.H{})
	})
	router.POST("/tasks/create", func(c *gin.Context) {
		c.JSON(201, gin.H{"message": "Task created successfully!"})
	})
	router.PUT("/tasks/:id/update", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "Task attributes were updated successfully"})
	})
	router.DELETE("/tasks/:id/delete", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "Task deleted successfully"})
	})

	return router
}

func TestRateLimitMiddleware_ReadLimit(t *testing.T) {
	RegisterTestingT(t)
	metrics := telemetry.NewAppMetrics(prometheus.NewRegistry())
	rl := NewRateLimiter(testRateLimitConfig(), zap.NewNop(), metrics)
	router := newLimitedRouter(rl)

	for i := 0; i < 12; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/tasks", nil)
		router.ServeHTTP(w, req)

		if i < 10 {
			Expect(w.Code).To(Equal(200))
			Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal(strconv.Itoa(9 - i)))
		} else {
			Expect(w.Code).To(Equal(429))
			Expect(w.Body.String()).To(ContainSubstring(`"code":"RATE_LIMITED"`))
			Expect(w.Header().Get("Retry-After")).ToNot(BeEmpty())
		}
	}
}

func TestRateLimitMiddleware_WriteLimitIsSeparate(t *testing.T) {
	RegisterTestingT(t)
	rl := NewRateLimiter(testRateLimitConfig(), zap.NewNop(), nil)
	router := newLimitedRouter(rl)

	for i := 0; i < 4; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/tasks/create", strings.NewReader(`{"id":1,"title":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if i < 3 {
			Expect(w.Code).To(Equal(201))
			Expect(w.Header().Get("X-RateLimit-Limit")).To(Equal("3"))
		} else {
			Expect(w.Code).To(Equal(429))
		}
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/tasks", nil)
	router.ServeHTTP(w, req)

	Expect(w.Code).To(Equal(200))
	Expect(w.Header().Get("X-RateLimit-Limit")).To(Equal("10"))
}

func TestRateLimitMiddleware_KeysByRouteTemplate(t *testing.T) {
	RegisterTestingT(t)
	rl := NewRateLimiter(testRateLimitConfig(), zap.NewNop(), nil)
	router := newLimitedRouter(rl)

	expectedRemaining := []int{2, 1, 0}

	for i, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/tasks/"+id+"/delete", nil)
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(200))
		Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal(strconv.Itoa(expectedRemaining[i])))
	}
}

func TestRateLimitMiddleware_SeparateClients(t *testing.T) {
	RegisterTestingT(t)
	rl := NewRateLimiter(testRateLimitConfig(), zap.NewNop(), nil)
	router := newLimitedRouter(rl)

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/tasks/1/update", strings.NewReader(`{}`))
		req.Header.Set("X-Forwarded-For", ip)
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(200))
		Expect(w.Header().Get("X-RateLimit-Remaining")).To(Equal("2"))
	}
}

func TestRateLimitMiddleware_WindowReset(t *testing.T) {
	RegisterTestingT(t)
	cfg := testRateLimitConfig()
	cfg.Requests = 2
	cfg.Window = 50 * time.Millisecond
	rl := NewRateLimiter(cfg, zap.NewNop(), nil)
	router := newLimitedRouter(rl)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/tasks", nil)
		router.ServeHTTP(w, req)

		if i < 2 {
			Expect(w.Code).To(Equal(200))
		} else {
			Expect(w.Code).To(Equal(429))
		}
	}

	time.Sleep(100 * time.Millisecond)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/tasks", nil)
	router.ServeHTTP(w, req)
	Expect(w.Code).To(Equal(200))
}

func TestRateLimitMiddleware_SkipsPreflight(t *testing.T) {
	RegisterTestingT(t)
	cfg := testRateLimitConfig()
	cfg.Requests = 1
	rl := NewRateLimiter(cfg, zap.NewNop(), nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.RateLimitMiddleware())
	router.OPTIONS("/tasks", func(c *gin.Context) {
		c.Status(204)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("OPTIONS", "/tasks", nil)
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(204))
		Expect(w.Header().Get("X-RateLimit-Limit")).To(BeEmpty())
	}
}

func TestRateLimiterGetStats(t *testing.T) {
	RegisterTestingT(t)
	rl := NewRateLimiter(testRateLimitConfig(), zap.NewNop(), nil)

	stats := rl.GetStats()
	Expect(stats["active_entries"]).To(Equal(0))
	Expect(stats["configs"]).To(Equal(6))
}

func TestRateLimiterSetConfig(t *testing.T) {
	RegisterTestingT(t)
	rl := NewRateLimiter(testRateLimitConfig(), zap.NewNop(), nil)

	rl.SetConfig("GET /custom", RateLimitEndpointConfig{Requests: 5, Window: time.Minute})

	Expect(rl.config["GET /custom"].Requests).To(Equal(5))
	Expect(rl.config["GET /custom"].Window).To(Equal(time.Minute))
	Expect(rl.config["GET /custom"].KeyFunc).ToNot(BeNil())
}

func TestRateLimitMiddleware_NoDoubleCounting(t *testing.T) {
	RegisterTestingT(t)
	cfg := testRateLimitConfig()
	cfg.WriteRequests = 20
	rl := NewRateLimiter(cfg, zap.NewNop(), nil)
	router := newLimitedRouter(rl)

	numRequests := 10
	results := make([]int, numRequests)
	var wg sync.WaitGroup

	for i := 0; i < numRequests; i++ {
		index := i
		wg.Go(func() {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/tasks/create", strings.NewReader(`{"id":1,"title":"x"}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			remaining, _ := strconv.Atoi(w.Header().Get("X-RateLimit-Remaining"))
			results[index] = remaining
		})
	}

	wg.Wait()

	expectedRemaining := []int{19, 18, 17, 16, 15, 14, 13, 12, 11, 10}
	sort.Ints(results)
	sort.Ints(expectedRemaining)

	Expect(results).To(Equal(expectedRemaining))
}

func TestGetClientIP_PrefersForwardedHeader(t *testing.T) {
	RegisterTestingT(t)
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/tasks", nil)
	c.Request.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	Expect(GetClientIP(c)).To(Equal("203.0.113.7"))
}
