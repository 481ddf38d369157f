package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/ajitpratap0/parquet-linter/pkg/config"
)

func TestInitDisabled(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(config.TracingConfig{Enabled: false}, "test", &buf)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	require.NoError(t, Trace(context.Background(), "noop", func(context.Context, *Span) error { return nil }))
	assert.Zero(t, buf.Len())
}

func TestTraceExportsSpans(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	var buf bytes.Buffer
	shutdown, err := Init(config.TracingConfig{Enabled: true, ServiceName: "parquet-linter-test"}, "test", &buf)
	require.NoError(t, err)

	err = Trace(context.Background(), "rewrite", func(_ context.Context, span *Span) error {
		span.SetAttribute("rows", int64(10))
		span.SetAttribute("skipped", []string{"a"})
		return nil
	})
	require.NoError(t, err)

	failure := errors.New("boom")
	err = Trace(context.Background(), "validate", func(context.Context, *Span) error { return failure })
	assert.ErrorIs(t, err, failure)

	require.NoError(t, shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"Name": "rewrite"`)
	assert.Contains(t, out, `"Name": "validate"`)
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "parquet-linter-test")
}
