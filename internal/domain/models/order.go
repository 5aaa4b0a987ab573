package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

func (s OrderSide) Opposite() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

type OrderStatus string

const (
	Open      OrderStatus = "open"
	Filled    OrderStatus = "filled"
	Cancelled OrderStatus = "cancelled"
)

// Order is a full-amount limit order. LockedQuote is non-zero only while the
// order is an open buy; sell orders lock the base asset on the ledger instead.
type Order struct {
	Id              uuid.UUID
	UserId          int64
	Symbol          string
	Side            OrderSide
	Price           decimal.Decimal
	Amount          decimal.Decimal
	RemainingAmount decimal.Decimal
	LockedQuote     decimal.Decimal
	Status          OrderStatus
	CreatedAt       time.Time
}

// BaseAsset returns the traded asset, e.g. "BTC" for "BTC-USD".
func (o Order) BaseAsset() string {
	base, _ := SplitSymbol(o.Symbol)
	return base
}

// QuoteAsset returns the pricing currency, e.g. "USD" for "BTC-USD".
func (o Order) QuoteAsset() string {
	_, quote := SplitSymbol(o.Symbol)
	return quote
}

func (o Order) FilledAmount() decimal.Decimal {
	return o.Amount.Sub(o.RemainingAmount)
}

func SplitSymbol(symbol string) (string, string) {
	parts := strings.SplitN(symbol, "-", 2)
	if len(parts) != 2 {
		return symbol, ""
	}
	return parts[0], parts[1]
}
