package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"margin_bot/internal/models"

	"github.com/google/uuid"
	"github.com/jxskiss/base62"
)

var ErrNoOrders = errors.New("no orders for symbol")

type orderReq struct {
	ClientOID string `json:"clientOid"`
	Side      string `json:"side"`
	Symbol    string `json:"symbol"`
	Type      string `json:"type"`
	TradeType string `json:"tradeType"`
	Size      string `json:"size,omitempty"`
	Funds     string `json:"funds,omitempty"`
	Price     string `json:"price,omitempty"`
	Stop      string `json:"stop,omitempty"`
	StopPrice string `json:"stopPrice,omitempty"`
	Remark    string `json:"remark,omitempty"`
}

type orderResp struct {
	OrderID string `json:"orderId"`
}

// NewClientOID: короткий уникальный id ордера (uuid в base62).
func NewClientOID() string {
	id := uuid.New()
	return base62.EncodeToString(id[:])
}

// CreateMarketOrder валидирует ордер до похода в сеть.
func (c *Client) CreateMarketOrder(ctx context.Context, o models.MarketOrder) (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}
	req := orderReq{
		ClientOID: o.ClientOID,
		Side:      string(o.Side),
		Symbol:    o.Symbol,
		Type:      "market",
		TradeType: tradeType,
		Remark:    o.Remark,
	}
	if req.ClientOID == "" {
		req.ClientOID = NewClientOID()
	}
	if o.Size > 0 {
		req.Size = formatAmount(o.Size)
	} else {
		req.Funds = formatAmount(o.Funds)
	}

	resp, err := call[orderResp](ctx, c, http.MethodPost, "/api/v1/orders", nil, req, true)
	if err != nil {
		return "", err
	}
	return resp.OrderID, nil
}

func (c *Client) CreateLimitOrder(ctx context.Context, o models.LimitOrder) (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}
	req := orderReq{
		ClientOID: o.ClientOID,
		Side:      string(o.Side),
		Symbol:    o.Symbol,
		Type:      "limit",
		TradeType: tradeType,
		Price:     formatAmount(o.Price),
		Size:      formatAmount(o.Size),
		Stop:      string(o.Stop),
	}
	if req.ClientOID == "" {
		req.ClientOID = NewClientOID()
	}
	if o.StopPrice > 0 {
		req.StopPrice = formatAmount(o.StopPrice)
	}
	resp, err := call[orderResp](ctx, c, http.MethodPost, "/api/v1/orders", nil, req, true)
	if err != nil {
		return "", err
	}
	return resp.OrderID, nil
}

type orderDTO struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Type      string `json:"type"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Funds     string `json:"funds"`
	DealSize  string `json:"dealSize"`
	DealFunds string `json:"dealFunds"`
	CreatedAt int64  `json:"createdAt"`
}

type ordersPage struct {
	CurrentPage int        `json:"currentPage"`
	TotalNum    int        `json:"totalNum"`
	Items       []orderDTO `json:"items"`
}

// LatestOrder: самый свежий маржинальный ордер по паре с фактическим исполнением.
func (c *Client) LatestOrder(ctx context.Context, symbol string) (models.Order, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("tradeType", tradeType)
	q.Set("pageSize", "10")

	page, err := call[ordersPage](ctx, c, http.MethodGet, "/api/v1/orders", q, nil, true)
	if err != nil {
		return models.Order{}, err
	}
	if len(page.Items) == 0 {
		return models.Order{}, ErrNoOrders
	}
	d := page.Items[0]
	var n numbers
	o := models.Order{
		ID:        d.ID,
		Symbol:    d.Symbol,
		Side:      models.Side(d.Side),
		Type:      d.Type,
		Price:     n.float("price", d.Price),
		Size:      n.float("size", d.Size),
		Funds:     n.float("funds", d.Funds),
		DealSize:  n.float("dealSize", d.DealSize),
		DealFunds: n.float("dealFunds", d.DealFunds),
		CreatedAt: time.UnixMilli(d.CreatedAt).UTC(),
	}
	if err := n.wrap("latest order"); err != nil {
		return models.Order{}, err
	}
	return o, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
