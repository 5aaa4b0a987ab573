package transport

import (
	"time"

	"SpotExchange/internal/domain/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type RegisterResponse struct {
	Id int64 `json:"id"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Id    int64  `json:"id"`
	Email string `json:"email"`
}

type DepositRequest struct {
	UserID int64           `json:"user_id" validate:"required,gt=0"`
	Asset  string          `json:"asset" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type BalanceView struct {
	Asset     string          `json:"symbol"`
	Total     decimal.Decimal `json:"amount"`
	Locked    decimal.Decimal `json:"locked_amount"`
	Available decimal.Decimal `json:"available"`
}

type BalancesRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type BalancesResponse struct {
	Balances []BalanceView `json:"balances"`
}

type PlaceOrderRequest struct {
	UserID int64            `json:"user_id" validate:"required,gt=0"`
	Symbol string           `json:"symbol" validate:"required"`
	Side   models.OrderSide `json:"side" validate:"required,oneof=buy sell"`
	Price  decimal.Decimal  `json:"price" validate:"required"`
	Amount decimal.Decimal  `json:"amount" validate:"required"`
}

type PlaceOrderResponse struct {
	Order   OrderView `json:"order"`
	Matched bool      `json:"matched"`
}

type CancelOrderRequest struct {
	UserID  int64     `json:"user_id" validate:"required,gt=0"`
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

type CancelOrderResponse struct {
	Order OrderView `json:"order"`
}

type GetOrdersRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Status string `json:"status"`
}

type OrderView struct {
	Id              uuid.UUID          `json:"id"`
	Symbol          string             `json:"symbol"`
	Side            models.OrderSide   `json:"side"`
	Price           decimal.Decimal    `json:"price"`
	Amount          decimal.Decimal    `json:"amount"`
	RemainingAmount decimal.Decimal    `json:"remaining_amount"`
	FilledAmount    decimal.Decimal    `json:"filled_amount"`
	Status          models.OrderStatus `json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
}

func NewOrderView(o models.Order) OrderView {
	return OrderView{
		Id:              o.Id,
		Symbol:          o.Symbol,
		Side:            o.Side,
		Price:           o.Price,
		Amount:          o.Amount,
		RemainingAmount: o.RemainingAmount,
		FilledAmount:    o.FilledAmount(),
		Status:          o.Status,
		CreatedAt:       o.CreatedAt,
	}
}

type GetOrdersResponse struct {
	Orders []OrderView `json:"orders"`
}

type MatchSweepRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type MatchSweepResponse struct {
	Matched int `json:"matched"`
}

// BookLevel is one orderbook row with the cumulative total up to and
// including that row.
type BookLevel struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
	Total  decimal.Decimal `json:"total"`
}

type OrderbookResponse struct {
	Symbol string      `json:"symbol"`
	Bids   []BookLevel `json:"bids"`
	Asks   []BookLevel `json:"asks"`
}

type TradeView struct {
	Id         uuid.UUID       `json:"id"`
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	Amount     decimal.Decimal `json:"amount"`
	Commission decimal.Decimal `json:"commission"`
	CreatedAt  time.Time       `json:"created_at"`
}

type TradesResponse struct {
	Symbol string      `json:"symbol"`
	Trades []TradeView `json:"trades"`
}

type TickerResponse struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"last_price"`
}
