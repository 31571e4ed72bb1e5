package models

import (
	"errors"
	"fmt"
)

var (
	ErrNeedSizeOrFunds = errors.New("need size or funds parameter")
	ErrSizeAndFunds    = errors.New("need size or funds parameter, not both")
	ErrStopNeedsPrice  = errors.New("stop order requires stop price")
	ErrPriceNeedsStop  = errors.New("stop price requires stop type")
)

// MarketOrder: buy тратит Funds (в base), sell продаёт Size (в quote).
type MarketOrder struct {
	Symbol    string
	Side      Side
	Size      float64
	Funds     float64
	ClientOID string
	Remark    string
}

func (o MarketOrder) Validate() error {
	if o.Symbol == "" {
		return errors.New("symbol is required")
	}
	if o.Side != SideBuy && o.Side != SideSell {
		return fmt.Errorf("unknown side %q", o.Side)
	}
	switch {
	case o.Size <= 0 && o.Funds <= 0:
		return ErrNeedSizeOrFunds
	case o.Size > 0 && o.Funds > 0:
		return ErrSizeAndFunds
	}
	return nil
}

type StopType string

const (
	StopLoss  StopType = "loss"
	StopEntry StopType = "entry"
)

type LimitOrder struct {
	Symbol    string
	Side      Side
	Price     float64
	Size      float64
	Stop      StopType
	StopPrice float64
	ClientOID string
}

func (o LimitOrder) Validate() error {
	if o.Symbol == "" {
		return errors.New("symbol is required")
	}
	if o.Price <= 0 || o.Size <= 0 {
		return errors.New("limit order requires positive price and size")
	}
	if o.Stop != "" && o.StopPrice <= 0 {
		return ErrStopNeedsPrice
	}
	if o.Stop == "" && o.StopPrice > 0 {
		return ErrPriceNeedsStop
	}
	return nil
}
