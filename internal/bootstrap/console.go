package bootstrap

import (
	"canvas-e2e/internal/console"
	"canvas-e2e/internal/ports"
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RunConsole launches the browser and serves the interactive console for the
// lifetime of the app.
var RunConsole = fx.Invoke(runConsole)

func runConsole(lc fx.Lifecycle, consoleInterface *console.Interface, browser ports.BrowserManager, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting canvas console...")

			if err := browser.Launch(ctx); err != nil {
				logger.Error("Failed to launch browser", zap.Error(err))

				return err
			}

			logger.Info("Browser launched")

			go func() {
				if err := consoleInterface.Start(); err != nil {
					logger.Error("Console interface error", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down canvas console...")

			if err := consoleInterface.Stop(); err != nil {
				logger.Error("Failed to stop console", zap.Error(err))
			}

			if err := browser.Close(ctx); err != nil {
				logger.Error("Failed to close browser", zap.Error(err))
			}

			return nil
		},
	})
}
