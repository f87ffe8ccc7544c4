package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewExporter_Stdout(t *testing.T) {
	var buf bytes.Buffer
	exp, err := newExporter(context.Background(), ExporterStdout, "", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	_, span := tp.Tracer("test").Start(context.Background(), "sample-profile")
	span.End()
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if !strings.Contains(buf.String(), "sample-profile") {
		t.Errorf("expected span name in output, got %q", buf.String())
	}
}

func TestNewExporter_Unknown(t *testing.T) {
	if _, err := newExporter(context.Background(), "zipkin", "", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown exporter")
	}
}
