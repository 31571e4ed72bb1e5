package exchange

import (
	"context"
	"net/http"
	"net/url"

	"margin_bot/internal/models"
)

type accountDTO struct {
	ID        string `json:"id"`
	Currency  string `json:"currency"`
	Type      string `json:"type"`
	Balance   string `json:"balance"`
	Available string `json:"available"`
	Holds     string `json:"holds"`
}

// Accounts: счета пользователя; accountType пустой = все типы.
func (c *Client) Accounts(ctx context.Context, accountType string) ([]models.Account, error) {
	var q url.Values
	if accountType != "" {
		q = url.Values{}
		q.Set("type", accountType)
	}
	raw, err := call[[]accountDTO](ctx, c, http.MethodGet, "/api/v1/accounts", q, nil, true)
	if err != nil {
		return nil, err
	}
	out := make([]models.Account, 0, len(raw))
	var n numbers
	for _, a := range raw {
		out = append(out, models.Account{
			ID:        a.ID,
			Currency:  a.Currency,
			Type:      a.Type,
			Balance:   n.float("balance", a.Balance),
			Available: n.float("available", a.Available),
			Holds:     n.float("holds", a.Holds),
		})
	}
	if err := n.wrap("accounts"); err != nil {
		return nil, err
	}
	return out, nil
}
