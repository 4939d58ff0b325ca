package factory

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func TestNewModuleLogger(t *testing.T) {
	logger := NewModuleLogger("orders-controller")
	if logger == nil {
		t.Fatal("expected logger")
	}
	entry, ok := logger.(*logrus.Entry)
	if !ok || entry.Data["module"] != "orders-controller" {
		t.Fatalf("expected module field, got %#v", logger)
	}
}

func TestLoggerWithContextAddsRequestID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	logger := LoggerWithContext(NewModuleLogger("orders-controller"), ctx)
	entry, ok := logger.(*logrus.Entry)
	if !ok || entry.Data["request_id"] != "req-123" {
		t.Fatalf("expected request_id field, got %#v", logger)
	}
}

func TestConfigureLogging(t *testing.T) {
	previous := logrus.GetLevel()
	t.Cleanup(func() { logrus.SetLevel(previous) })

	if err := ConfigureLogging("debug", "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Fatalf("unexpected level: %s", logrus.GetLevel())
	}
	if err := ConfigureLogging("loud", "json"); err == nil {
		t.Fatal("expected invalid level error")
	}
}
