package trace

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := WithContext(context.Background(), "abc123")
	if got := FromContext(ctx); got != "abc123" {
		t.Fatalf("expected abc123, got %q", got)
	}
	if got := FromContext(context.Background()); got != "" {
		t.Fatalf("expected empty trace id, got %q", got)
	}
}

func TestFromHeaderPrefersTraceID(t *testing.T) {
	if got := FromHeader("t-1", "r-1"); got != "t-1" {
		t.Fatalf("expected trace header, got %q", got)
	}
	if got := FromHeader("", "r-1"); got != "r-1" {
		t.Fatalf("expected request id fallback, got %q", got)
	}
}

func TestGenerateTraceID(t *testing.T) {
	a, b := GenerateTraceID(), GenerateTraceID()
	if len(a) != 32 || a == b {
		t.Fatalf("unexpected trace ids %q %q", a, b)
	}
}
