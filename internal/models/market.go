package models

import "time"

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

const AccountTypeMargin = "margin"

// Candle: свеча в хронологическом порядке (старые раньше).
type Candle struct {
	OpenTime time.Time
	Open     float64
	Close    float64
	High     float64
	Low      float64
	Volume   float64
	Turnover float64
}

type Ticker struct {
	Symbol  string
	Price   float64
	BestBid float64
	BestAsk float64
	Time    time.Time
}

type Account struct {
	ID        string
	Currency  string
	Type      string
	Balance   float64
	Available float64
	Holds     float64
}

type Currency struct {
	Code              string
	Name              string
	WithdrawalMinSize float64
	Precision         int
}

// Order: последний ордер по паре, с фактическим исполнением.
type Order struct {
	ID        string
	Symbol    string
	Side      Side
	Type      string
	Price     float64
	Size      float64
	Funds     float64
	DealSize  float64
	DealFunds float64
	CreatedAt time.Time
}

// FindAccount ищет счёт нужного типа по валюте.
func FindAccount(accounts []Account, currency, accountType string) (Account, bool) {
	for _, a := range accounts {
		if a.Currency == currency && a.Type == accountType {
			return a, true
		}
	}
	return Account{}, false
}
