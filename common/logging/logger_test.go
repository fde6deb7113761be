package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  slog.Level
		format string
	}{
		{
			name:   "json format with info level",
			level:  slog.LevelInfo,
			format: "json",
		},
		{
			name:   "text format with debug level",
			level:  slog.LevelDebug,
			format: "text",
		},
		{
			name:   "default format (json) with error level",
			level:  slog.LevelError,
			format: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level, tt.format)
			if logger == nil {
				t.Fatal("expected non-nil logger")
			}
			if logger.Logger == nil {
				t.Fatal("expected non-nil underlying logger")
			}
		})
	}
}

func TestNewWithWriter_Format(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, slog.LevelInfo, "text").Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "k=v") {
		t.Errorf("expected text output, got: %s", buf.String())
	}

	buf.Reset()
	NewWithWriter(&buf, slog.LevelInfo, "json").Info("hello", "k", "v")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json output, got: %s", buf.String())
	}
	if entry["k"] != "v" {
		t.Errorf("expected k=v in entry, got: %v", entry)
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json")

	tests := []struct {
		name      string
		ctx       context.Context
		expectIDs bool
	}{
		{
			name:      "context with message ID and subject",
			ctx:       WithSubject(WithMessageID(context.Background(), "msg-123"), "cdc.fleet.activities"),
			expectIDs: true,
		},
		{
			name:      "context without message ID",
			ctx:       context.Background(),
			expectIDs: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()

			logger.WithContext(tt.ctx).Info("test message")

			output := buf.String()
			if tt.expectIDs {
				if !strings.Contains(output, `"message_id":"msg-123"`) {
					t.Errorf("expected message ID in log output, got: %s", output)
				}
				if !strings.Contains(output, `"subject":"cdc.fleet.activities"`) {
					t.Errorf("expected subject in log output, got: %s", output)
				}
			} else if strings.Contains(output, FieldMessageID) {
				t.Errorf("did not expect message ID in log output, got: %s", output)
			}
		})
	}
}

func TestMessageIDFrom(t *testing.T) {
	if got := MessageIDFrom(context.Background()); got != "" {
		t.Errorf("expected empty message ID, got %q", got)
	}
	ctx := WithMessageID(context.Background(), "abc")
	if got := MessageIDFrom(ctx); got != "abc" {
		t.Errorf("expected %q, got %q", "abc", got)
	}
	if got := SubjectFrom(ctx); got != "" {
		t.Errorf("expected empty subject, got %q", got)
	}
}

func TestInfoContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json")

	ctx := WithMessageID(context.Background(), "info-test-123")
	logger.InfoContext(ctx, "test info message", "key", "value")

	output := buf.String()
	if !strings.Contains(output, "test info message") {
		t.Errorf("expected message in output, got: %s", output)
	}
	if !strings.Contains(output, "info-test-123") {
		t.Errorf("expected message ID in output, got: %s", output)
	}
	if !strings.Contains(output, "INFO") {
		t.Errorf("expected INFO level in output, got: %s", output)
	}
}

func TestWarnContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelWarn, "json")

	logger.WarnContext(context.Background(), "test warn message")

	output := buf.String()
	if !strings.Contains(output, "test warn message") {
		t.Errorf("expected message in output, got: %s", output)
	}
	if !strings.Contains(output, "WARN") {
		t.Errorf("expected WARN level in output, got: %s", output)
	}
}

func TestErrorContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelError, "json")

	logger.ErrorContext(context.Background(), "test error message", "error", "something went wrong")

	output := buf.String()
	if !strings.Contains(output, "test error message") {
		t.Errorf("expected message in output, got: %s", output)
	}
	if !strings.Contains(output, "ERROR") {
		t.Errorf("expected ERROR level in output, got: %s", output)
	}
}

func TestDebugContext_FilteredByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json")

	logger.DebugContext(context.Background(), "hidden debug message")
	if buf.Len() != 0 {
		t.Errorf("expected debug to be filtered at info level, got: %s", buf.String())
	}

	debugLogger := NewWithWriter(&buf, slog.LevelDebug, "json")
	debugLogger.DebugContext(context.Background(), "test debug message")
	if !strings.Contains(buf.String(), "DEBUG") {
		t.Errorf("expected DEBUG level in output, got: %s", buf.String())
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json")

	enrichedLogger := logger.With(Service("stream"), Tool("meshcentral"))
	if enrichedLogger == nil {
		t.Fatal("expected non-nil logger from With()")
	}

	enrichedLogger.Info("test message")
	output := buf.String()

	if !strings.Contains(output, `"service":"stream"`) {
		t.Errorf("expected service field in output, got: %s", output)
	}
	if !strings.Contains(output, `"tool":"meshcentral"`) {
		t.Errorf("expected tool field in output, got: %s", output)
	}
}

func TestWithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json")

	groupedLogger := logger.WithGroup("dispatch")
	groupedLogger.Info("test message", "routes", 3)

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if _, ok := logEntry["dispatch"]; !ok {
		t.Errorf("expected 'dispatch' group in output, got: %s", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("dropped")
	logger.InfoContext(WithMessageID(context.Background(), "x"), "dropped")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{name: "debug level", input: "debug", expected: slog.LevelDebug},
		{name: "info level", input: "info", expected: slog.LevelInfo},
		{name: "warn level", input: "warn", expected: slog.LevelWarn},
		{name: "error level", input: "error", expected: slog.LevelError},
		{name: "invalid level defaults to info", input: "invalid", expected: slog.LevelInfo},
		{name: "empty string defaults to info", input: "", expected: slog.LevelInfo},
		{name: "uppercase DEBUG", input: "DEBUG", expected: slog.LevelInfo}, // Case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSetDefault(t *testing.T) {
	originalDefault := slog.Default()
	defer slog.SetDefault(originalDefault)

	logger := New(slog.LevelInfo, "json")
	SetDefault(logger)

	if slog.Default() != logger.Logger {
		t.Error("SetDefault did not update slog.Default()")
	}
}
