package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"margin_bot/internal/console"
	"margin_bot/internal/modules/config"
	"margin_bot/internal/modules/health/service"
	strategy "margin_bot/internal/modules/strategy/service"
	"margin_bot/internal/runner"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Addr  string // например "127.0.0.1:8080"
	Token string
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: cfg.AdminAddr(), Token: cfg.Service.AdminToken}
}

func RunHTTP(lc fx.Lifecycle, cfg Config, router *gin.Engine, state *service.State, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("admin http stopped", zap.Error(err))
				}
			}()
			state.SetReady(true)
			log.Info("admin http listening", zap.String("addr", cfg.Addr), zap.Bool("token", cfg.Token != ""))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			state.SetReady(false)
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewConfig,
			func(m *runner.Manager) Fleet { return m },
			func(h *strategy.Hub) IndicatorStats { return h },
			func(c *console.Console) Commands { return c },
			NewRouter,
		),
		fx.Invoke(
			// отметка обхода чатов для /healthz
			func(state *service.State, p *runner.Poller) { p.OnSweep(state.TouchSweep) },
			RunHTTP,
		),
	)
}
