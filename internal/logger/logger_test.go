package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestJSONLogging(t *testing.T) {
	var buf bytes.Buffer

	config := Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "botlink",
		Version:     "1.2.3",
		Environment: "test",
		AddSource:   false,
	}

	InitLoggerWithWriter(config, &buf)

	Info("listener started", "link_id", "L1", "attempt", 2)

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	if logEntry["service"] != "botlink" {
		t.Errorf("Expected service=botlink, got %v", logEntry["service"])
	}
	if logEntry["version"] != "1.2.3" {
		t.Errorf("Expected version=1.2.3, got %v", logEntry["version"])
	}
	if logEntry["environment"] != "test" {
		t.Errorf("Expected environment=test, got %v", logEntry["environment"])
	}
	if logEntry["msg"] != "listener started" {
		t.Errorf("Expected msg='listener started', got %v", logEntry["msg"])
	}
	if logEntry["level"] != "INFO" {
		t.Errorf("Expected level=INFO, got %v", logEntry["level"])
	}
	if logEntry["link_id"] != "L1" {
		t.Errorf("Expected link_id=L1, got %v", logEntry["link_id"])
	}
	if logEntry["attempt"] != float64(2) {
		t.Errorf("Expected attempt=2, got %v", logEntry["attempt"])
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")

	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("Expected request_id=req-123, got %s", got)
	}

	if id, ok := RequestIDFromContext(ctx); !ok || id != "req-123" {
		t.Errorf("RequestIDFromContext returned (%q, %v)", id, ok)
	}

	if log := FromContext(ctx); log == nil {
		t.Error("Expected non-nil logger")
	}
}

func TestRequestIDMissing(t *testing.T) {
	if id, ok := RequestIDFromContext(context.Background()); ok {
		t.Errorf("Expected no request ID, got %q", id)
	}
	if log := FromContext(context.Background()); log == nil {
		t.Error("Expected default logger for bare context")
	}
}

func TestConfigDefaults(t *testing.T) {
	config := DefaultConfig()

	if config.ServiceName == "" {
		t.Error("Expected non-empty service name")
	}
	if config.Level == "" {
		t.Error("Expected non-empty log level")
	}
	if config.Format == "" {
		t.Error("Expected non-empty format")
	}
}

func TestProductionConfig(t *testing.T) {
	config := ProductionConfig()

	if config.Format != "json" {
		t.Errorf("Expected JSON format in prod, got %s", config.Format)
	}
	if config.Level != "info" {
		t.Errorf("Expected info level in prod, got %s", config.Level)
	}
	if config.Environment != "prod" {
		t.Errorf("Expected prod environment, got %s", config.Environment)
	}
	if config.AddSource {
		t.Error("Expected AddSource=false in production")
	}
}

func TestDevelopmentConfig(t *testing.T) {
	config := DevelopmentConfig()

	if config.Format != "text" {
		t.Errorf("Expected text format in dev, got %s", config.Format)
	}
	if config.Level != "debug" {
		t.Errorf("Expected debug level in dev, got %s", config.Level)
	}
	if !config.AddSource {
		t.Error("Expected AddSource=true in development")
	}
}
