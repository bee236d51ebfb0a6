package bootstrap

import (
	"canvas-e2e/internal/config"
	"canvas-e2e/pkg/logg"
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const serviceName = "canvas-e2e"

// newTraceProvider exports spans to TRACE_OUTPUT when set. Without it spans
// are still recorded for log correlation but written nowhere, so they never
// mix with console output.
func newTraceProvider(lc fx.Lifecycle, config *config.Config, logger *zap.Logger) (*sdktrace.TracerProvider, error) {
	var (
		writer io.Writer = io.Discard
		file   *os.File
	)

	if path := config.AppConfig.TraceOutput; path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open trace output: %w", err)
		}

		file, writer = f, f
		logger.Info("Writing traces", zap.String(logg.Path, path))
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(writer),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			err := tp.Shutdown(ctx)

			if file != nil {
				if closeErr := file.Close(); err == nil {
					err = closeErr
				}
			}

			return err
		},
	})

	return tp, nil
}
