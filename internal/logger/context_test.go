package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := zap.New(core).Sugar().With("request_id", "abc")

	ctx := WithContext(context.Background(), l)
	FromContext(ctx).Infow("network created", "network", 7)

	if logs.Len() != 1 {
		t.Fatalf("logged %d entries, want 1", logs.Len())
	}
	fields := logs.All()[0].ContextMap()
	if fields["request_id"] != "abc" {
		t.Fatalf("request_id = %v, want abc", fields["request_id"])
	}
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected global logger")
	}
}
