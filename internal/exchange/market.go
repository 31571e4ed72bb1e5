package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"margin_bot/internal/models"
)

// Candles возвращает свечи в хронологическом порядке (биржа отдаёт от новых к старым).
func (c *Client) Candles(ctx context.Context, symbol, interval string, start, end time.Time) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("type", NormInterval(interval))
	q.Set("startAt", strconv.FormatInt(start.Unix(), 10))
	q.Set("endAt", strconv.FormatInt(end.Unix(), 10))

	raw, err := call[[][]string](ctx, c, http.MethodGet, "/api/v1/market/candles", q, nil, false)
	if err != nil {
		return nil, err
	}

	out := make([]models.Candle, 0, len(raw))
	var n numbers
	for _, row := range raw {
		// формат: [time, open, close, high, low, volume, turnover]
		if len(row) < 6 {
			return nil, &RequestError{Op: "candles", Err: fmt.Errorf("short candle row: %v", row)}
		}
		ts, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, &RequestError{Op: "candles", Err: err}
		}
		cd := models.Candle{
			OpenTime: time.Unix(ts, 0).UTC(),
			Open:     n.float("open", row[1]),
			Close:    n.float("close", row[2]),
			High:     n.float("high", row[3]),
			Low:      n.float("low", row[4]),
			Volume:   n.float("volume", row[5]),
		}
		if len(row) > 6 {
			cd.Turnover = n.float("turnover", row[6])
		}
		// цена закрытия идёт в EMA, пустой она быть не может
		if row[2] == "" {
			return nil, &RequestError{Op: "candles", Err: fmt.Errorf("empty close at %s", row[0])}
		}
		if err := n.wrap("candles"); err != nil {
			return nil, err
		}
		out = append(out, cd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	return out, nil
}

// NormInterval приводит таймфрейм к виду биржи: "2h" -> "2hour", "15m" -> "15min".
func NormInterval(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	switch s {
	case "1m", "3m", "5m", "15m", "30m":
		return strings.TrimSuffix(s, "m") + "min"
	case "60m", "1h", "2h", "4h", "6h", "8h", "12h":
		if s == "60m" {
			s = "1h"
		}
		return strings.TrimSuffix(s, "h") + "hour"
	case "1d":
		return "1day"
	case "1w":
		return "1week"
	default:
		return s
	}
}

type tickerDTO struct {
	Time    int64  `json:"time"`
	Price   string `json:"price"`
	BestBid string `json:"bestBid"`
	BestAsk string `json:"bestAsk"`
}

func (c *Client) Ticker(ctx context.Context, symbol string) (models.Ticker, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	d, err := call[tickerDTO](ctx, c, http.MethodGet, "/api/v1/market/orderbook/level1", q, nil, false)
	if err != nil {
		return models.Ticker{}, err
	}
	if d.Price == "" {
		return models.Ticker{}, &RequestError{Op: "ticker", Err: fmt.Errorf("empty price for %s", symbol)}
	}
	var n numbers
	tk := models.Ticker{
		Symbol:  symbol,
		Price:   n.float("price", d.Price),
		BestBid: n.float("bestBid", d.BestBid),
		BestAsk: n.float("bestAsk", d.BestAsk),
		Time:    time.UnixMilli(d.Time).UTC(),
	}
	if err := n.wrap("ticker"); err != nil {
		return models.Ticker{}, err
	}
	return tk, nil
}

type currencyDTO struct {
	Currency          string `json:"currency"`
	FullName          string `json:"fullName"`
	Precision         int    `json:"precision"`
	WithdrawalMinSize string `json:"withdrawalMinSize"`
}

func (c *Client) Currency(ctx context.Context, code string) (models.Currency, error) {
	d, err := call[currencyDTO](ctx, c, http.MethodGet, "/api/v1/currencies/"+url.PathEscape(code), nil, nil, false)
	if err != nil {
		return models.Currency{}, err
	}
	var n numbers
	cur := models.Currency{
		Code:              d.Currency,
		Name:              d.FullName,
		WithdrawalMinSize: n.float("withdrawalMinSize", d.WithdrawalMinSize),
		Precision:         d.Precision,
	}
	if err := n.wrap("currency"); err != nil {
		return models.Currency{}, err
	}
	return cur, nil
}
