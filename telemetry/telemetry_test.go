package telemetry

import (
	"context"
	"testing"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown returned %v", err)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Config{SampleRatio: 5}
	cfg.Defaults()
	if cfg.ServiceName != "leetcode-tracker" {
		t.Fatalf("unexpected service name %q", cfg.ServiceName)
	}
	if cfg.SampleRatio != 1 {
		t.Fatalf("expected sample ratio clamped to 1, got %v", cfg.SampleRatio)
	}
}

func TestTracerStartsSpans(t *testing.T) {
	ctx, span := Tracer("test").Start(context.Background(), "op")
	defer span.End()
	if ctx == nil {
		t.Fatal("expected a context")
	}
}
