package console

import (
	"context"
	"os"

	"margin_bot/internal/console"
	"margin_bot/internal/modules/config"
	"margin_bot/internal/packfile"
	"margin_bot/internal/runner"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewConsole(m *runner.Manager, cfg *config.Config, log *zap.Logger) *console.Console {
	return console.New(m, packfile.Read, cfg.Package.Password, log.Named("console"))
}

// serveStdin: консоль оператора в терминале; exit останавливает приложение.
func serveStdin(lc fx.Lifecycle, sd fx.Shutdowner, cfg *config.Config, c *console.Console, log *zap.Logger) {
	if !cfg.Console.Stdin {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := c.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
					log.Warn("console stopped", zap.Error(err))
				}
				if ctx.Err() == nil {
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func Module() fx.Option {
	return fx.Module("console",
		fx.Provide(NewConsole),
		fx.Invoke(serveStdin),
	)
}
