package telegram

import (
	"context"
	"os"

	"margin_bot/internal/modules/config"
	"margin_bot/internal/modules/health/service"
	"margin_bot/internal/notify"
	"margin_bot/internal/runner"
	"margin_bot/pkg/logger"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewChannel: Telegram, если задан токен; иначе сообщения уходят в stdout.
func NewChannel(lc fx.Lifecycle, cfg *config.Config, inbox *notify.Inbox, state *service.State, log *zap.Logger) (runner.Channel, error) {
	if cfg.Telegram.Token == "" {
		log.Warn("telegram token is empty, chat messages go to stdout")
		return notify.NewStdout(os.Stdout, inbox), nil
	}

	t, err := notify.NewTelegram(cfg.Telegram.Token, inbox, log.Named("telegram"))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			t.Start(ctx)
			state.SetChannelConnected(true)
			return nil
		},
		OnStop: func(context.Context) error {
			state.SetChannelConnected(false)
			t.Stop()
			cancel()
			return nil
		},
	})
	return t, nil
}

func newInbox(cfg *config.Config) *notify.Inbox {
	return notify.NewInbox(cfg.Poller.HistoryLimit)
}

// forwardLogs: предупреждения и ошибки лога в чат администратора.
func forwardLogs(lc fx.Lifecycle, cfg *config.Config, ch runner.Channel, log *zap.Logger) {
	if cfg.Telegram.AdminChatID == 0 {
		return
	}
	f := notify.NewForwarder(ch, cfg.Telegram.AdminChatID, log)
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.SetHook(f.Hook)
			go f.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			logger.SetHook(nil)
			cancel()
			return nil
		},
	})
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			newInbox,
			NewChannel, // runner.Channel
		),
		fx.Invoke(forwardLogs),
	)
}
