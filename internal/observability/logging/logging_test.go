package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewRespectsFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Writer: &buf, Format: "json"})

	logger.Info("should be filtered")
	if buf.Len() != 0 {
		t.Fatalf("expected info log to be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("kept", "key", "value")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" {
		t.Fatalf("expected msg kept, got %v", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Fatalf("expected key attribute, got %v", entry["key"])
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf, Format: "text"})
	logger.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("expected text handler output, got %q", buf.String())
	}
}

func TestRequestIDContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := RequestIDFromContext(ctx); ok {
		t.Fatal("expected empty context to carry no request id")
	}

	ctx = ContextWithRequestID(ctx, "  ")
	if _, ok := RequestIDFromContext(ctx); ok {
		t.Fatal("expected blank request id to be ignored")
	}

	ctx = ContextWithRequestID(ctx, "req-1")
	id, ok := RequestIDFromContext(ctx)
	if !ok || id != "req-1" {
		t.Fatalf("expected req-1, got %q (ok=%v)", id, ok)
	}
}

func TestWithContextAnnotatesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf, Format: "json"})
	ctx := ContextWithRequestID(context.Background(), "req-42")

	WithContext(ctx, logger).Info("annotated")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["request_id"] != "req-42" {
		t.Fatalf("expected request_id req-42, got %v", entry["request_id"])
	}
}

func TestLoggerContextRoundTrip(t *testing.T) {
	logger := New(Config{Format: "text"})
	ctx := ContextWithLogger(context.Background(), logger)
	if got := LoggerFromContext(ctx); got != logger {
		t.Fatal("expected stored logger to round trip")
	}
	if got := LoggerFromContext(context.Background()); got != nil {
		t.Fatal("expected nil logger for bare context")
	}
}
