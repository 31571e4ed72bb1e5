package runner

import (
	"context"

	"margin_bot/internal/modules/config"
	strategy "margin_bot/internal/modules/strategy/service"
	"margin_bot/internal/packfile"
	"margin_bot/internal/runner"
	"margin_bot/pkg/logger"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config      *config.Config
	Hub         *strategy.Hub
	Channel     runner.Channel
	NewExchange runner.ExchangeFactory
	Journal     runner.Journal
	Baselines   runner.Baselines
	Log         *zap.Logger
}

func NewManager(p Params) *runner.Manager {
	return runner.NewManager(runner.Deps{
		Hub:         p.Hub,
		Channel:     p.Channel,
		NewExchange: p.NewExchange,
		Journal:     p.Journal,
		Baselines:   p.Baselines,
		Config:      p.Config.Bot,
		Poller:      p.Config.Poller,
		AdminChatID: p.Config.Telegram.AdminChatID,
		Log:         p.Log.Named("bots"),
	})
}

func NewPoller(m *runner.Manager, log *zap.Logger) *runner.Poller {
	return runner.NewPoller(m, log.Named("poller"))
}

func run(lc fx.Lifecycle, cfg *config.Config, m *runner.Manager, p *runner.Poller, log *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			m.SetContext(ctx)
			go p.Run(ctx)
			if cfg.Package.Path != "" {
				go autoload(ctx, cfg, m, log)
			}
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			return m.Shutdown(stopCtx)
		},
	})
}

// autoload поднимает ботов из пакета при старте. Пакет, который не открылся,: фатально.
func autoload(ctx context.Context, cfg *config.Config, m *runner.Manager, log *zap.Logger) {
	pkg, err := packfile.Read(cfg.Package.Path, cfg.Package.Password)
	if err != nil {
		logger.Fatal("load package %s: %v", cfg.Package.Path, err)
		return
	}
	ids, err := m.Load(ctx, pkg, cfg.Package.Bypass)
	if err != nil {
		log.Error("some bots of the package did not start", zap.Error(err))
	}
	log.Info("package loaded", zap.Int("started", len(ids)), zap.Int("entries", len(pkg)))
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			NewManager,
			NewPoller,
		),
		fx.Invoke(run),
	)
}
