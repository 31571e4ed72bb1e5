package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"margin_bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(Config{BaseURL: srv.URL, RequestTimeout: time.Second}, models.Credentials{
		Key: "key", Secret: "secret", Passphrase: "pass",
	})
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func TestCandlesChronological(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/market/candles", r.URL.Path)
		assert.Equal(t, "2hour", r.URL.Query().Get("type"))
		assert.Equal(t, "BTC-USDT", r.URL.Query().Get("symbol"))
		_, _ = io.WriteString(w, `{"code":"200000","data":[
			["1700007200","2","3","4","1","10","20"],
			["1700000000","1","2","3","0.5","11","21"]
		]}`)
	})

	got, err := c.Candles(context.Background(), "BTC-USDT", "2hour", time.Unix(1690000000, 0), time.Unix(1700010000, 0))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Close)
	assert.Equal(t, 3.0, got[1].Close)
	assert.True(t, got[0].OpenTime.Before(got[1].OpenTime))
}

func TestAPIErrorOnCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"400005","msg":"Invalid signature"}`)
	})

	_, err := c.Accounts(context.Background(), models.AccountTypeMargin)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "400005", apiErr.Code)
	assert.True(t, IsFatal(err))
}

func TestAPIErrorOnStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"code":"429000","msg":"too many requests"}`)
	})

	_, err := c.Ticker(context.Background(), "BTC-USDT")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.False(t, IsFatal(err))
}

func TestRequestErrorOnInvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>maintenance</html>`)
	})

	_, err := c.Currency(context.Background(), "BTC")
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestSignedHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ts := r.Header.Get("KC-API-TIMESTAMP")
		assert.Equal(t, "1700000000000", ts)
		assert.Equal(t, "key", r.Header.Get("KC-API-KEY"))
		assert.Equal(t, "2", r.Header.Get("KC-API-KEY-VERSION"))

		mac := hmac.New(sha256.New, []byte("secret"))
		mac.Write([]byte(ts + "GET" + "/api/v1/accounts?type=margin"))
		assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), r.Header.Get("KC-API-SIGN"))

		_, _ = io.WriteString(w, `{"code":"200000","data":[
			{"id":"1","currency":"USDT","type":"margin","balance":"10.5","available":"10","holds":"0.5"}
		]}`)
	})

	accs, err := c.Accounts(context.Background(), models.AccountTypeMargin)
	require.NoError(t, err)
	acc, ok := models.FindAccount(accs, "USDT", models.AccountTypeMargin)
	require.True(t, ok)
	assert.Equal(t, 10.0, acc.Available)
	assert.Equal(t, 10.5, acc.Balance)
}

func TestMarketOrderValidatedBeforeRequest(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `{"code":"200000","data":{"orderId":"abc"}}`)
	})

	_, err := c.CreateMarketOrder(context.Background(), models.MarketOrder{Symbol: "BTC-USDT", Side: models.SideBuy})
	assert.ErrorIs(t, err, models.ErrNeedSizeOrFunds)
	_, err = c.CreateMarketOrder(context.Background(), models.MarketOrder{Symbol: "BTC-USDT", Side: models.SideBuy, Size: 1, Funds: 1})
	assert.ErrorIs(t, err, models.ErrSizeAndFunds)
	assert.Equal(t, int32(0), hits.Load())

	id, err := c.CreateMarketOrder(context.Background(), models.MarketOrder{Symbol: "BTC-USDT", Side: models.SideBuy, Funds: 12.5})
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
	assert.Equal(t, int32(1), hits.Load())
}

func TestLatestOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "MARGIN_TRADE", r.URL.Query().Get("tradeType"))
		_, _ = io.WriteString(w, `{"code":"200000","data":{"currentPage":1,"items":[
			{"id":"o1","symbol":"BTC-USDT","side":"buy","dealSize":"0.01","dealFunds":"300","createdAt":1700000000000}
		]}}`)
	})

	o, err := c.LatestOrder(context.Background(), "BTC-USDT")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)
	assert.Equal(t, models.SideBuy, o.Side)
	assert.Equal(t, 0.01, o.DealSize)
	assert.Equal(t, 300.0, o.DealFunds)
}

func TestNewClientOID(t *testing.T) {
	a, b := NewClientOID(), NewClientOID()
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, len(a), 40)
}

func TestNormInterval(t *testing.T) {
	for raw, want := range map[string]string{
		"2hour": "2hour",
		"2h":    "2hour",
		"60m":   "1hour",
		"15m":   "15min",
		" 1D ":  "1day",
		"1w":    "1week",
	} {
		assert.Equal(t, want, NormInterval(raw), raw)
	}
}

func TestMalformedNumbers(t *testing.T) {
	tests := []struct {
		name string
		body string
		call func(c *Client) error
		op   string
	}{
		{
			name: "candle close",
			body: `{"code":"200000","data":[["1700000000","1","garbage","3","0.5","11","21"]]}`,
			call: func(c *Client) error {
				_, err := c.Candles(context.Background(), "BTC-USDT", "2hour", time.Unix(0, 0), time.Unix(1700010000, 0))
				return err
			},
			op: "candles",
		},
		{
			name: "empty candle close",
			body: `{"code":"200000","data":[["1700000000","1","","3","0.5","11","21"]]}`,
			call: func(c *Client) error {
				_, err := c.Candles(context.Background(), "BTC-USDT", "2hour", time.Unix(0, 0), time.Unix(1700010000, 0))
				return err
			},
			op: "candles",
		},
		{
			name: "ticker price",
			body: `{"code":"200000","data":{"time":1700000000000,"price":"n/a"}}`,
			call: func(c *Client) error {
				_, err := c.Ticker(context.Background(), "BTC-USDT")
				return err
			},
			op: "ticker",
		},
		{
			name: "ticker without price",
			body: `{"code":"200000","data":{"time":1700000000000}}`,
			call: func(c *Client) error {
				_, err := c.Ticker(context.Background(), "BTC-USDT")
				return err
			},
			op: "ticker",
		},
		{
			name: "order deal funds",
			body: `{"code":"200000","data":{"items":[{"id":"o1","side":"buy","dealSize":"0.01","dealFunds":"NaN"}]}}`,
			call: func(c *Client) error {
				_, err := c.LatestOrder(context.Background(), "BTC-USDT")
				return err
			},
			op: "latest order",
		},
		{
			name: "account available",
			body: `{"code":"200000","data":[{"currency":"USDT","type":"margin","balance":"1","available":"1,5"}]}`,
			call: func(c *Client) error {
				_, err := c.Accounts(context.Background(), models.AccountTypeMargin)
				return err
			},
			op: "accounts",
		},
		{
			name: "currency min size",
			body: `{"code":"200000","data":{"currency":"BTC","withdrawalMinSize":"x"}}`,
			call: func(c *Client) error {
				_, err := c.Currency(context.Background(), "BTC")
				return err
			},
			op: "currency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})

			err := tt.call(c)
			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr), "err: %v", err)
			assert.Equal(t, tt.op, reqErr.Op)
			var apiErr *APIError
			assert.False(t, errors.As(err, &apiErr))
		})
	}
}

func TestTickerOptionalFieldsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"200000","data":{"time":1700000000000,"price":"30000.5","bestBid":""}}`)
	})

	tk, err := c.Ticker(context.Background(), "BTC-USDT")
	require.NoError(t, err)
	assert.Equal(t, 30000.5, tk.Price)
	assert.Zero(t, tk.BestBid)
}
