package utils

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/cppla/frypillows/config"
)

const serviceName = "frypillows"

// InitTracing installs the global tracer provider when tracing is enabled.
// The returned function flushes and stops it; it is a no-op when tracing is off.
func InitTracing(ctx context.Context, cfg config.AppConfig) func(context.Context) error {
	if !cfg.OtelEnabled {
		return func(context.Context) error { return nil }
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		Sugar.Warnf("otel resource init failed (continuing): %v", err)
	}

	exporter, err := traceExporter(ctx, cfg)
	if err != nil {
		Sugar.Warnf("otel exporter init failed, tracing disabled: %v", err)
		return func(context.Context) error { return nil }
	}

	ratio := cfg.OtelSampleRatio
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	Sugar.Infof("otel tracing initialized endpoint=%q", cfg.OtelEndpoint)
	return tp.Shutdown
}

func traceExporter(ctx context.Context, cfg config.AppConfig) (sdktrace.SpanExporter, error) {
	if cfg.OtelEndpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OtelEndpoint)}
		if cfg.OtelInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
	Sugar.Warn("otel using stdout exporter (no OTLP endpoint configured)")
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}
