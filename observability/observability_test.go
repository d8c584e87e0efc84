package observability

import (
	"context"
	"log/slog"
	"testing"
)

func TestNewLoggerFallsBackToDefault(t *testing.T) {
	if NewLogger(nil) == nil {
		t.Fatal("expected a non-nil default logger")
	}
	l := slog.Default()
	if NewLogger(l) != l {
		t.Fatal("expected the given logger to pass through unchanged")
	}
}

func TestNewTracerNoopIsSafeToUse(t *testing.T) {
	tr := NewTracer(nil)
	ctx, span := tr.StartMacrostep(context.Background(), "m1", "timer")
	if ctx == nil {
		t.Fatal("expected a non-nil context")
	}
	span.End()

	ctx, span = tr.StartMicrostep(context.Background(), "m1", 2)
	if ctx == nil {
		t.Fatal("expected a non-nil context")
	}
	span.End()
}
