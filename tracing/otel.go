package tracing

import (
	"context"
	"time"

	"github.com/bsv-blockchain/txhandler/errors"
	"github.com/bsv-blockchain/txhandler/settings"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
)

// InitTracer installs a global tracer provider exporting to the configured OTLP/HTTP
// collector. The returned function flushes and stops it. When tracing is disabled
// spans go to the default no-op provider and the returned function does nothing.
func InitTracer(ctx context.Context, serviceName string, tSettings *settings.Settings) (func(context.Context) error, error) {
	if !tSettings.Tracing.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	collector := tSettings.Tracing.CollectorURL
	if collector == nil {
		return nil, errors.NewConfigurationError("tracing enabled but tracing_collector is not set")
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(collector.Host)}
	if collector.Scheme != "https" {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	if collector.Path != "" && collector.Path != "/" {
		opts = append(opts, otlptracehttp.WithURLPath(collector.Path))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, errors.NewConfigurationError("cannot create otlp exporter for %s", collector, err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exporter, tracesdk.WithBatchTimeout(time.Second)),
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(tSettings.Tracing.SampleRate))),
		tracesdk.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("client.name", tSettings.ClientName),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
