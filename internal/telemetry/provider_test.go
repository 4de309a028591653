package telemetry

import (
	"context"
	"testing"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "story-arena")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown failed: %v", err)
	}
}

func TestSetup_WithEndpoint(t *testing.T) {
	ctx := context.Background()
	shutdown, err := Setup(ctx, "http://127.0.0.1:4318", "story-arena-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// No spans were recorded, so shutdown does not need the collector.
	if err := shutdown(ctx); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}
