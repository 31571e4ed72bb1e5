package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"margin_bot/internal/exchange"
	strategy "margin_bot/internal/modules/strategy/service"
	"margin_bot/internal/runner"
	"margin_bot/pkg/logger"
	"margin_bot/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDir         = "configs"
	defaultConfigFile = "values_local.yaml"
)

// Config ...
type Config struct {
	Telegram struct {
		Token       string `mapstructure:"token"`
		AdminChatID int64  `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`
	DB      string `mapstructure:"db_dsn"`
	Service struct {
		Host       string `mapstructure:"host"`
		AdminPort  int    `mapstructure:"admin_port"`
		AdminToken string `mapstructure:"admin_token"`
	} `mapstructure:"service"`

	Exchange  exchange.Config     `mapstructure:"exchange"`
	Log       logger.Config       `mapstructure:"log"`
	Tracing   tracing.Config      `mapstructure:"tracing"`
	Bot       runner.Config       `mapstructure:"bot"`
	Indicator strategy.Config     `mapstructure:"indicator"`
	Poller    runner.PollerConfig `mapstructure:"poller"`
	Store     struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"store"`
	Package struct {
		Path     string `mapstructure:"path"`
		Password string `mapstructure:"password"`
		Bypass   bool   `mapstructure:"bypass"`
	} `mapstructure:"package"`
	Console struct {
		Stdin bool `mapstructure:"stdin"`
	} `mapstructure:"console"`
}

// AdminAddr: адрес admin HTTP, host:port.
func (c *Config) AdminAddr() string {
	return fmt.Sprintf("%s:%d", c.Service.Host, c.Service.AdminPort)
}

func NewConfig() (*Config, error) {
	// .env не обязателен
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("db_dsn", "DATABASE_DSN", "DB_DSN")
	_ = v.BindEnv("service.admin_token", "ADMIN_TOKEN", "SERVICE_ADMIN_TOKEN")

	v.SetConfigFile(configPath(v.GetString(configFilePathENV)))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func configPath(name string) string {
	if name == "" {
		name = defaultConfigFile
	}
	if strings.ContainsRune(name, '/') {
		return name
	}
	return configDir + "/" + name
}

// setDefaults заодно регистрирует ключи, иначе AutomaticEnv их не увидит при Unmarshal.
func setDefaults(v *viper.Viper) {
	_ = v.BindEnv(configFilePathENV)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_chat_id", 0)
	v.SetDefault("db_dsn", "")
	v.SetDefault("service.host", "127.0.0.1")
	v.SetDefault("service.admin_port", 8080)
	v.SetDefault("service.admin_token", "")

	v.SetDefault("exchange.base_url", "https://api.kucoin.com")
	v.SetDefault("exchange.sandbox_url", "https://openapi-sandbox.kucoin.com")
	v.SetDefault("exchange.request_timeout", 10*time.Second)
	v.SetDefault("exchange.rate_limit", 10)
	v.SetDefault("exchange.rate_burst", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "both")
	v.SetDefault("log.file", "logs/margin_bot.log")
	v.SetDefault("log.max_size", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)

	v.SetDefault("bot.profile", "normal")
	v.SetDefault("bot.cycle_interval", 0)
	v.SetDefault("bot.pause_poll", 10*time.Second)
	v.SetDefault("bot.entry_poll", 10*time.Second)
	v.SetDefault("bot.error_delay", 2*time.Second)
	v.SetDefault("bot.settle_delay", 2*time.Second)
	v.SetDefault("bot.startup_delay", 2*time.Second)

	v.SetDefault("indicator.refresh_interval", 8*time.Second)
	v.SetDefault("indicator.candle_interval", "2hour")
	v.SetDefault("indicator.lookback", 1879200*time.Second)

	v.SetDefault("poller.interval", 500*time.Millisecond)
	v.SetDefault("poller.history_limit", 100)

	v.SetDefault("store.path", "")
	v.SetDefault("package.path", "")
	v.SetDefault("package.password", "")
	v.SetDefault("package.bypass", false)
	v.SetDefault("console.stdin", true)
}
