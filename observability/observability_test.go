package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, SpanProfileSynthesis)
	if ctx2 != ctx {
		t.Fatalf("nop tracer should return same context")
	}
	span.SetTag("key", "value")
	span.SetError(nil)
	span.Finish()
}

func TestSlogLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	l.With(String("space", "CIEABC")).Warn("fallback",
		Int("row", 3), Float("smoothness", 0.5), Bool("identity", false), Error("err", errors.New("boom")))

	out := buf.String()
	for _, want := range []string{"msg=fallback", "space=CIEABC", "row=3", "smoothness=0.5", "identity=false", "err=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestSetLoggerNilIsSilent(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	Default().Info("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("expected message in output, got %q", buf.String())
	}

	SetLogger(nil)
	buf.Reset()
	Default().Error("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output after reset, got %q", buf.String())
	}
}
