package logging

import (
	"context"

	"margin_bot/internal/modules/config"
	"margin_bot/pkg/logger"
	"margin_bot/pkg/tracing"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const serviceName = "margin_bot"

func NewLogger(cfg *config.Config) *zap.Logger {
	logger.SetServiceName(serviceName)
	return logger.Init(cfg.Log)
}

func NewTracer(lc fx.Lifecycle, cfg *config.Config) (opentracing.Tracer, error) {
	tracing.SetServiceName(serviceName)
	tracer, closer, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
	return tracer, nil
}

// FxLogger: события самого fx пишем тем же zap.
func FxLogger() fx.Option {
	return fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: l.Named("fx")}
	})
}

func Module() fx.Option {
	return fx.Module("logging",
		fx.Provide(
			NewLogger,
			NewTracer,
		),
		fx.Invoke(
			func(l *zap.Logger, tr opentracing.Tracer, lc fx.Lifecycle) {
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						_ = l.Sync()
						return nil
					},
				})
				l.Info("tracing", zap.Bool("enabled", tracingEnabled(tr)))
			},
		),
	)
}

func tracingEnabled(tr opentracing.Tracer) bool {
	_, noop := tr.(opentracing.NoopTracer)
	return !noop
}
