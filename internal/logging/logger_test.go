package logging

import (
	"strings"
	"testing"
)

type captureLogger struct {
	lines []string
}

func (c *captureLogger) Debug(format string, args ...any) { c.lines = append(c.lines, "debug") }
func (c *captureLogger) Info(format string, args ...any)  { c.lines = append(c.lines, "info") }
func (c *captureLogger) Warn(format string, args ...any)  { c.lines = append(c.lines, "warn") }
func (c *captureLogger) Error(format string, args ...any) { c.lines = append(c.lines, "error") }

func TestOrNopReturnsNopForNil(t *testing.T) {
	logger := OrNop(nil)
	if logger == nil {
		t.Fatalf("expected non-nil logger")
	}
	logger.Info("should not panic")
}

func TestMultiFansOut(t *testing.T) {
	a := &captureLogger{}
	b := &captureLogger{}
	logger := Multi(a, nil, b)
	logger.Info("hello")
	logger.Warn("world")
	if len(a.lines) != 2 || len(b.lines) != 2 {
		t.Fatalf("expected both loggers to receive 2 lines, got %d and %d", len(a.lines), len(b.lines))
	}
}

func TestMultiReturnsSingleLoggerDirectly(t *testing.T) {
	a := &captureLogger{}
	if Multi(Multi(a)) != Logger(a) {
		t.Fatalf("expected single logger to be returned directly")
	}
}

func TestFileLoggerLevelFilter(t *testing.T) {
	var sb strings.Builder
	logger := NewTestLogger(&sb)
	logger.SetLevel(WARN)
	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept %d", 1)
	logger.Error("kept %d", 2)

	out := sb.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("expected low-severity lines to be filtered: %s", out)
	}
	if !strings.Contains(out, "[WARN]") || !strings.Contains(out, "[ERROR]") {
		t.Fatalf("expected warn and error lines, got: %s", out)
	}
}
