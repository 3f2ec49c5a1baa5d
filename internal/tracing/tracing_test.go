package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupTestTracer(t *testing.T) (trace.Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider.Tracer("test"), exporter
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.False(t, cfg.Enabled)
	require.Equal(t, "file", cfg.Exporter)
	require.Equal(t, DefaultOTLPEndpoint, cfg.OTLPEndpoint)
	require.Equal(t, 1.0, cfg.SampleRate)
	require.Equal(t, DefaultServiceName, cfg.ServiceName)
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	require.False(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "x")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_FileExporterRequiresPath(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "file"})
	require.Error(t, err)
}

func TestNewProvider_UnsupportedExporter(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "carrier-pigeon"})
	require.ErrorContains(t, err, "unsupported exporter")
}

func TestNewProvider_FileExporterWritesRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "runs.jsonl")
	p, err := NewProvider(Config{Enabled: true, Exporter: "file", FilePath: path, ServiceName: "test"})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := StartRun(context.Background(), p.Tracer(), "save", uuid.New())
	EndRun(span, OutcomeCompleted, nil)
	require.NoError(t, p.Shutdown(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var rec SpanRecord
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
	require.Equal(t, SpanPrefixRun+"save", rec.Name)
	require.Equal(t, "OK", rec.Status)
	require.Equal(t, "save", rec.Attributes[AttrCommandName])
}

func TestEndRun_StatusPerOutcome(t *testing.T) {
	tracer, exporter := setupTestTracer(t)

	tests := []struct {
		outcome string
		err     error
		want    codes.Code
	}{
		{OutcomeCompleted, nil, codes.Ok},
		{OutcomeFaulted, errors.New("disk full"), codes.Error},
		{OutcomeFaulted, nil, codes.Error},
		{OutcomeCanceled, context.Canceled, codes.Unset},
	}

	for _, tt := range tests {
		exporter.Reset()
		_, span := StartRun(context.Background(), tracer, "cmd", uuid.New())
		EndRun(span, tt.outcome, tt.err)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		require.Equal(t, tt.want, spans[0].Status.Code, tt.outcome)

		attrs := map[string]string{}
		for _, kv := range spans[0].Attributes {
			attrs[string(kv.Key)] = kv.Value.Emit()
		}
		require.Equal(t, tt.outcome, attrs[AttrRunOutcome])
		require.Equal(t, "cmd", attrs[AttrCommandName])
	}
}

func TestMarkCanceled(t *testing.T) {
	tracer, exporter := setupTestTracer(t)

	ctx, span := StartRun(context.Background(), tracer, "slow", uuid.New())
	MarkCanceled(ctx)
	EndRun(span, OutcomeCanceled, context.Canceled)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	require.Equal(t, EventCancelRequested, spans[0].Events[0].Name)
}

func TestStartRun_NilTracer(t *testing.T) {
	require.NotPanics(t, func() {
		_, span := StartRun(context.Background(), nil, "x", uuid.New())
		EndRun(span, OutcomeCompleted, nil)
	})
}

func TestFileExporter_ShutdownTwice(t *testing.T) {
	e, err := NewFileExporter(filepath.Join(t.TempDir(), "t.jsonl"))
	require.NoError(t, err)
	require.NoError(t, e.Shutdown(context.Background()))
	require.NoError(t, e.Shutdown(context.Background()))
	require.Error(t, e.ExportSpans(context.Background(), nil))
}
