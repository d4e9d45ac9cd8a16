package otelcol

import (
	"context"

	"heartbeat-controlplane/pkg/config"
	"heartbeat-controlplane/pkg/otelcol/exporters"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("otelcol", fx.Invoke(Register))

func defaultTraceProviderOption(cfg *config.Config) []trace.TracerProviderOption {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.AppName),
		attribute.String("service.version", cfg.AppVersion),
		attribute.String("deployment.environment", cfg.AppEnv),
	))
	if err != nil {
		res = resource.Default()
	}
	return []trace.TracerProviderOption{
		trace.WithResource(res),
	}
}

func ProvideTrace(exporter trace.SpanExporter, opts ...trace.TracerProviderOption) *trace.TracerProvider {
	if exporter != nil {
		opts = append(opts, trace.WithBatcher(exporter))
	}
	return trace.NewTracerProvider(opts...)
}

// Register installs the global tracer provider. Spans are only exported when
// OTEL.ADDR is set; otherwise trace ids are still generated for log correlation.
func Register(lc fx.Lifecycle, cfg *config.Config) error {
	var exporter trace.SpanExporter
	if cfg.Otel.Addr != "" {
		var err error
		switch cfg.Otel.Protocol {
		case "http":
			exporter, err = exporters.ProvideHttp(cfg)
		default:
			exporter, err = exporters.ProvideGrpc(cfg)
		}
		if err != nil {
			zap.L().Error("failed to create otlp exporter", zap.Error(err))
			return err
		}
	}

	tp := ProvideTrace(exporter, defaultTraceProviderOption(cfg)...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return nil
}
