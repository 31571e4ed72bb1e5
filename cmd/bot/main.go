package main

import (
	"margin_bot/internal/modules/config"
	"margin_bot/internal/modules/console"
	"margin_bot/internal/modules/exchange"
	"margin_bot/internal/modules/health"
	"margin_bot/internal/modules/logging"
	"margin_bot/internal/modules/postgres"
	"margin_bot/internal/modules/storage"
	"margin_bot/internal/modules/strategy"

	telegram "margin_bot/internal/modules/telegram_bot"

	"margin_bot/internal/modules/runner"

	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		logging.FxLogger(),
		config.Module(),
		logging.Module(),
		postgres.Module(),
		storage.Module(),
		exchange.Module(),
		strategy.Module(),
		telegram.Module(),
		runner.Module(),
		console.Module(),
		health.Module(),
	)
	// Run ждёт SIGINT/SIGTERM или exit из консоли, затем гасит модули в обратном порядке
	app.Run()
}
