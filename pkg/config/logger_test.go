package config

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLokiLogger_InvalidLevel(t *testing.T) {
	RegisterTestingT(t)

	_, err := NewLokiLogger("taskboard", "", "loud")

	Expect(err).ToNot(BeNil())
}

func TestLokiLogger_BuildEntry(t *testing.T) {
	RegisterTestingT(t)

	logger, err := NewLokiLogger("taskboard", "http://loki.local", "info")
	Expect(err).To(BeNil())

	entry, err := logger.buildEntry(context.Background(), zapcore.InfoLevel, "Task created",
		[]zap.Field{zap.Int64("task_id", 1), zap.String("column", "todo")})
	Expect(err).To(BeNil())

	Expect(entry.Streams).To(HaveLen(1))
	Expect(entry.Streams[0].Stream["service"]).To(Equal("taskboard"))

	var line map[string]any
	Expect(json.Unmarshal([]byte(entry.Streams[0].Values[0][1]), &line)).To(Succeed())
	Expect(line["message"]).To(Equal("Task created"))
	Expect(line["column"]).To(Equal("todo"))
	Expect(line["task_id"]).To(BeNumerically("==", 1))
}

func TestLokiLogger_PushesToLoki(t *testing.T) {
	RegisterTestingT(t)

	received := make(chan []byte, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.URL.Path == "/loki/api/v1/push" {
			received <- body
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	logger, err := NewLokiLogger("taskboard", server.URL, "info")
	Expect(err).To(BeNil())

	logger.InfoWithTrace(context.Background(), "hello")

	Eventually(received, time.Second).Should(Receive(ContainSubstring("hello")))
}
