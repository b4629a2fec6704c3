package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" a=1, b = two ,bad, =x,c=")
	if len(got) != 2 || got["a"] != "1" || got["b"] != "two" {
		t.Fatalf("headers: %v", got)
	}
	if parseHeaders("") != nil {
		t.Fatalf("empty headers must be nil")
	}
}

func TestDisabledTracingIsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), logger.Nop(), OtelConfig{Enabled: false})
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	ctx, span := StartSpan(context.Background(), "test", "k", "v")
	if ctx == nil || span == nil {
		t.Fatalf("span helpers must work without a provider")
	}
	EndSpan(span, errors.New("boom"))
}

func TestClampRatio(t *testing.T) {
	for in, want := range map[float64]float64{-1: 0, 0.5: 0.5, 3: 1} {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%v) = %v", in, got)
		}
	}
}
