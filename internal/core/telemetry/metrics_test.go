package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAppMetrics_RecordRequest(t *testing.T) {
	RegisterTestingT(t)

	metrics := NewAppMetrics(prometheus.NewRegistry())

	metrics.RecordRequest(context.Background(), "GET", "/tasks", 200, 10*time.Millisecond)
	metrics.RecordRequest(context.Background(), "GET", "/tasks", 200, 5*time.Millisecond)

	Expect(testutil.ToFloat64(metrics.requestTotal.WithLabelValues("GET", "/tasks", "200"))).To(Equal(2.0))
}

func TestAppMetrics_DatabaseOperationResult(t *testing.T) {
	RegisterTestingT(t)

	metrics := NewAppMetrics(prometheus.NewRegistry())

	metrics.RecordDatabaseOperation(context.Background(), "Create", "task", nil)
	metrics.RecordDatabaseOperation(context.Background(), "Create", "task", errors.New("boom"))

	Expect(testutil.ToFloat64(metrics.databaseOperations.WithLabelValues("Create", "task", "ok"))).To(Equal(1.0))
	Expect(testutil.ToFloat64(metrics.databaseOperations.WithLabelValues("Create", "task", "error"))).To(Equal(1.0))
}

func TestOTELProbe_BusinessEventCountsTaskOperation(t *testing.T) {
	RegisterTestingT(t)

	metrics := NewAppMetrics(prometheus.NewRegistry())
	probe := NewOTELProbe(nil, metrics)

	ctx, span := probe.StartServiceSpan(context.Background(), "task", "Create", nil)
	probe.RecordBusinessEvent(ctx, "created", "task", "1", map[string]interface{}{"title": "Buy milk"})
	probe.RecordServiceOperation(ctx, "task", "Create", time.Millisecond, nil)
	span.End()

	Expect(testutil.ToFloat64(metrics.taskOperations.WithLabelValues("created"))).To(Equal(1.0))
}

func TestStartSystemMetrics_StopsWithContext(t *testing.T) {
	RegisterTestingT(t)

	metrics := NewAppMetrics(prometheus.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())

	metrics.StartSystemMetrics(ctx, 5*time.Millisecond)

	Eventually(func() float64 {
		return testutil.ToFloat64(metrics.goroutines)
	}).Should(BeNumerically(">", 0))

	cancel()
}
