package bootstrap

import (
	"canvas-e2e/internal/ai"
	"canvas-e2e/internal/browser"
	"canvas-e2e/internal/canvas"
	"canvas-e2e/internal/config"
	"canvas-e2e/internal/console"
	"canvas-e2e/internal/generator"
	"canvas-e2e/internal/healing"
	"canvas-e2e/internal/pages"
	"canvas-e2e/internal/ports"
	"canvas-e2e/internal/usecase"
	"canvas-e2e/internal/vision"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewApp wires every component. Constructors run only when something in
// options needs them, so short commands never launch a browser.
func NewApp(options ...fx.Option) *fx.App {
	return fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			zapLogger := &fxevent.ZapLogger{Logger: logger.Named("fx")}
			zapLogger.UseLogLevel(zapcore.DebugLevel)

			return zapLogger
		}),

		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,

			fx.Annotate(browser.NewManager, fx.As(new(ports.BrowserManager)), fx.As(new(ports.Page))),
			fx.Annotate(ai.NewGateway, fx.As(new(ports.Gateway))),
			fx.Annotate(healing.NewKnowledgeStore, fx.As(new(ports.KnowledgeStore))),
			fx.Annotate(healing.NewResolver, fx.As(new(ports.LocatorResolver))),
			fx.Annotate(canvas.NewExtractor, fx.As(new(ports.StateExtractor))),
			fx.Annotate(vision.NewExecutor, fx.As(new(ports.ActionLoop))),

			pages.NewLoginPage,
			pages.NewCanvasPage,
			generator.New,

			usecase.NewUsecase,

			console.NewInterface,
		),

		fx.Invoke(func(*sdktrace.TracerProvider) {}),

		fx.Options(options...),

		fx.StartTimeout(30*time.Second),
	)
}
