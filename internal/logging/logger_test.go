package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/curtbushko/drive-to-gong/internal/config"
)

func newTestLogger(t *testing.T, cfg config.LoggingConfig) (Logger, *bytes.Buffer) {
	t.Helper()
	logger, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)
	return logger, buf
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newTestLogger(t, config.LoggingConfig{Level: "warn"})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("Expected debug/info to be filtered, got: %s", output)
	}
	if !strings.Contains(output, "warn message") || !strings.Contains(output, "error message") {
		t.Errorf("Expected warn/error in output, got: %s", output)
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	logger, buf := newTestLogger(t, config.LoggingConfig{Level: "info", JSONFormat: true})

	logger.Info("hello %s", "world")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "hello world" {
		t.Errorf("Unexpected message: %v", entry["message"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("Unexpected level: %v", entry["level"])
	}
}

func TestLogger_RequestIDFromContext(t *testing.T) {
	logger, buf := newTestLogger(t, config.LoggingConfig{Level: "info"})

	ctx := WithRequestID(context.Background(), "req-abc")
	logger.InfoWithContext(ctx, "with request id")

	if !strings.Contains(buf.String(), "[req-abc]") {
		t.Errorf("Expected request id in output, got: %s", buf.String())
	}

	id, ok := GetRequestID(ctx)
	if !ok || id != "req-abc" {
		t.Errorf("GetRequestID = %q, %v", id, ok)
	}
}

func TestLogger_WithFields(t *testing.T) {
	logger, buf := newTestLogger(t, config.LoggingConfig{Level: "info", JSONFormat: true})

	logger.WithFields(InfoLevel, "item processed", map[string]interface{}{
		"id":      "file-1",
		"attempt": 2,
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["id"] != "file-1" {
		t.Errorf("Expected field id in entry, got: %v", entry)
	}
}

func TestGenerateRequestID_Unique(t *testing.T) {
	a := GenerateRequestID()
	b := GenerateRequestID()

	if !strings.HasPrefix(a, "req-") {
		t.Errorf("Expected req- prefix, got %s", a)
	}
	if a == b {
		t.Errorf("Expected unique request ids, got %s twice", a)
	}
}

func TestParseLogLevel_Invalid(t *testing.T) {
	if _, err := NewLogger(config.LoggingConfig{Level: "shouty"}); err == nil {
		t.Fatal("Expected error for invalid log level")
	}
}
