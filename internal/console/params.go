package console

import (
	"fmt"
	"strconv"
	"strings"

	"margin_bot/internal/models"
)

// parseParams разбирает аргументы start вида key=value.
func parseParams(args []string) (models.BotParams, error) {
	var p models.BotParams
	for _, a := range args {
		key, val, ok := strings.Cut(a, "=")
		if !ok {
			return p, fmt.Errorf("argument %q is not key=value", a)
		}

		var err error
		switch strings.ToLower(key) {
		case "owner":
			p.Owner = val
		case "chat", "chat_id":
			p.ChatID, err = strconv.ParseInt(val, 10, 64)
		case "pair":
			p.Pair, err = models.ParsePair(val)
		case "key", "public":
			p.Creds.Key = val
		case "secret":
			p.Creds.Secret = val
		case "passphrase", "password":
			p.Creds.Passphrase = val
		case "sandbox":
			p.Creds.Sandbox, err = strconv.ParseBool(val)
		case "your_base":
			p.YourBase, err = parseAmount(val)
		case "your_quote":
			p.YourQuote, err = parseAmount(val)
		case "margin_base":
			p.MarginBase, err = parseAmount(val)
		case "margin_quote":
			p.MarginQuote, err = parseAmount(val)
		default:
			return p, fmt.Errorf("unknown parameter %q", key)
		}
		if err != nil {
			return p, fmt.Errorf("%s: %w", key, err)
		}
	}
	return p, p.Validate()
}

// запятая тоже принимается как десятичный разделитель
func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}
