package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is the append-only record of a completed settlement. It references
// both orders but is owned by neither; it is never mutated after insert.
type Trade struct {
	Id          uuid.UUID
	BuyOrderId  uuid.UUID
	SellOrderId uuid.UUID
	Symbol      string
	Price       decimal.Decimal
	Amount      decimal.Decimal
	Commission  decimal.Decimal
	CreatedAt   time.Time
}

// MatchEvent is published once per involved account after a settlement
// commits. Side is from the recipient's perspective.
type MatchEvent struct {
	TradeId   uuid.UUID       `json:"trade_id"`
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Side      OrderSide       `json:"side"`
	CreatedAt time.Time       `json:"created_at"`
}

// Settlement carries everything the storage needs to convert two open orders
// into a trade in one atomic unit. All amounts are pre-rounded to the money
// scale; the storage applies them verbatim after re-checking both orders.
type Settlement struct {
	BuyOrder  Order
	SellOrder Order
	// Volume is the quote value of the trade at the execution price.
	Volume decimal.Decimal
	// SellerProceeds is Volume minus commission.
	SellerProceeds decimal.Decimal
	// BuyerRefund is the positive part of the buyer's locked quote in excess
	// of Volume (price improvement); zero when none.
	BuyerRefund decimal.Decimal
	Trade       Trade
}
