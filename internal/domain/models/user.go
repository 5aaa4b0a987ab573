package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	Id       int64
	Email    string
	PassHash []byte
	Created  time.Time
}

// Balance is one ledger row: a user's holding of one asset, quote currency
// included. Available funds are Total minus Locked.
type Balance struct {
	UserId int64
	Asset  string
	Total  decimal.Decimal
	Locked decimal.Decimal
}

func (b Balance) Available() decimal.Decimal {
	return b.Total.Sub(b.Locked)
}
