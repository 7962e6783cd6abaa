package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("org_id", "org-1").Info("org updated")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "org updated" {
		t.Errorf("msg = %v, want 'org updated'", entry["msg"])
	}
	if entry["org_id"] != "org-1" {
		t.Errorf("org_id = %v, want 'org-1'", entry["org_id"])
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Error("debug/info output leaked through warn level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("warn output missing")
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(nil).Info("no error attached")
	if strings.Contains(buf.String(), `"error"`) {
		t.Error("nil error must not add an error field")
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := WithLogger(context.Background(), logger)
	ctx = WithRequestID(ctx, "req-123")
	ctx = WithUserID(ctx, "user-456")

	FromContext(ctx).Info("scoped")

	out := buf.String()
	if !strings.Contains(out, "req-123") || !strings.Contains(out, "user-456") {
		t.Errorf("request-scoped fields missing from output: %s", out)
	}
}

func TestParseLogLevel(t *testing.T) {
	if ParseLogLevel("debug") != DebugLevel {
		t.Error("debug not parsed")
	}
	if ParseLogLevel("bogus") != InfoLevel {
		t.Error("unknown level must default to info")
	}
}
