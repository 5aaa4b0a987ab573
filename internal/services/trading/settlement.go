package trading

import (
	"time"

	"SpotExchange/internal/domain/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// newSettlement prices a matched pair. The resting order's price is the
// execution price; the commission comes out of seller proceeds; a buyer whose
// limit beat the execution price gets the locked difference back. Every
// stored figure is rounded to the money scale here, before anything is
// applied.
func (s *Service) newSettlement(taker, resting models.Order) models.Settlement {
	buy, sell := taker, resting
	if taker.Side == models.Sell {
		buy, sell = resting, taker
	}

	execPrice := resting.Price
	amount := taker.RemainingAmount

	volume := models.RoundMoney(execPrice.Mul(amount))
	commission := models.RoundMoney(volume.Mul(s.commission))
	proceeds := volume.Sub(commission)

	refund := buy.LockedQuote.Sub(volume)
	if !refund.IsPositive() {
		refund = decimal.Zero
	}

	return models.Settlement{
		BuyOrder:       buy,
		SellOrder:      sell,
		Volume:         volume,
		SellerProceeds: proceeds,
		BuyerRefund:    refund,
		Trade: models.Trade{
			Id:          uuid.New(),
			BuyOrderId:  buy.Id,
			SellOrderId: sell.Id,
			Symbol:      taker.Symbol,
			Price:       execPrice,
			Amount:      amount,
			Commission:  commission,
			CreatedAt:   time.Now(),
		},
	}
}
