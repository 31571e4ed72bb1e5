package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"margin_bot/internal/models"
	"margin_bot/pkg/tracing"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://api.kucoin.com"
	DefaultSandboxURL = "https://openapi-sandbox.kucoin.com"

	successCode = "200000"
	tradeType   = "MARGIN_TRADE"
)

type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	SandboxURL     string        `mapstructure:"sandbox_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"` // запросов в секунду
	RateBurst      int           `mapstructure:"rate_burst"`
}

type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	now     func() time.Time

	apiKey    string
	apiSecret string
	passph    string
}

func NewClient(cfg Config, creds models.Credentials) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if creds.Sandbox {
		base = cfg.SandboxURL
		if base == "" {
			base = DefaultSandboxURL
		}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(base, "/"),
		limiter:   rate.NewLimiter(limit, burst),
		now:       time.Now,
		apiKey:    creds.Key,
		apiSecret: creds.Secret,
		passph:    creds.Passphrase,
	}
}

type envelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

// call выполняет запрос и раскладывает поле data в T.
func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any, signed bool) (out T, err error) {
	span, ctx := tracing.StartSpan(ctx, "kucoin "+method+" "+path, map[string]any{"signed": signed})
	defer func() { tracing.Finish(span, err) }()

	if err = c.limiter.Wait(ctx); err != nil {
		return out, &RequestError{Op: path, Err: err}
	}

	req, err := c.generateRequest(ctx, method, path, query, body, signed)
	if err != nil {
		return out, &RequestError{Op: path, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return out, &RequestError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, &RequestError{Op: path, Err: err}
	}

	var env envelope[T]
	decodeErr := sonic.Unmarshal(rb, &env)
	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Msg}
		if decodeErr != nil {
			apiErr.Message = string(rb)
		}
		return out, apiErr
	}
	if decodeErr != nil {
		return out, &RequestError{Op: path, Err: fmt.Errorf("invalid response: %w", decodeErr)}
	}
	if env.Code != successCode {
		return out, &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Msg}
	}
	return env.Data, nil
}

func (c *Client) generateRequest(ctx context.Context, method, path string, query url.Values, body any, signed bool) (*http.Request, error) {
	endpoint := path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = sonic.Marshal(body)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if !signed {
		return req, nil
	}

	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	req.Header.Set("KC-API-KEY", c.apiKey)
	req.Header.Set("KC-API-SIGN", c.sign(ts+strings.ToUpper(method)+endpoint+string(payload)))
	req.Header.Set("KC-API-TIMESTAMP", ts)
	req.Header.Set("KC-API-PASSPHRASE", c.sign(c.passph))
	req.Header.Set("KC-API-KEY-VERSION", "2")
	return req, nil
}

func (c *Client) sign(msg string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// numbers разбирает числовые поля ответа и запоминает первую ошибку.
// Пустая строка = поле не заполнено биржей, это 0.
type numbers struct {
	err error
}

func (n *numbers) float(field, s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
		err = errors.New("not a finite number")
	}
	if err != nil {
		if n.err == nil {
			n.err = fmt.Errorf("field %s=%q: %w", field, s, err)
		}
		return 0
	}
	return f
}

// wrap возвращает RequestError, если хоть одно поле не разобралось.
func (n *numbers) wrap(op string) error {
	if n.err == nil {
		return nil
	}
	return &RequestError{Op: op, Err: n.err}
}
