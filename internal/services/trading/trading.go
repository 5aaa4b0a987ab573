// Package trading is the custody-and-matching core of the venue. Placing an
// order reserves collateral and immediately attempts a match; a match settles
// both orders, moves balances and logs a trade as one atomic storage unit.
package trading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"SpotExchange/internal/domain/models"
	"SpotExchange/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSymbol = errors.New("symbol is invalid")
	ErrInvalidSide   = errors.New("side must be buy or sell")
	ErrInvalidPrice  = errors.New("price must be positive")
	ErrInvalidAmount = errors.New("amount must be positive")
)

type Service struct {
	log        *slog.Logger
	storage    OrderStorage
	publisher  EventPublisher
	prices     PriceCache
	commission decimal.Decimal
	tradeLimit int
}

type OrderStorage interface {
	PlaceOrder(ctx context.Context, order models.Order, lockAsset string, lockAmount decimal.Decimal) error
	GetOrder(ctx context.Context, id uuid.UUID) (models.Order, error)
	GetUserOrders(ctx context.Context, userId int64) ([]models.Order, error)
	OpenOrders(ctx context.Context, symbol string) ([]models.Order, error)
	RecentTrades(ctx context.Context, symbol string, limit int) ([]models.Trade, error)
	FindCounterOrder(ctx context.Context, order models.Order) (models.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID, userId int64) (models.Order, error)
	ApplySettlement(ctx context.Context, set models.Settlement) error
}

// EventPublisher receives one match event per involved account after a
// settlement commits. Failures are logged, never propagated.
type EventPublisher interface {
	PublishMatch(ctx context.Context, userId int64, event models.MatchEvent) error
}

type PriceCache interface {
	SaveLastPrice(ctx context.Context, symbol string, price decimal.Decimal) error
	LastPrice(ctx context.Context, symbol string) (string, error)
}

func New(log *slog.Logger, storage OrderStorage, publisher EventPublisher, prices PriceCache,
	commissionRate decimal.Decimal, tradeLimit int) *Service {
	return &Service{
		log:        log,
		storage:    storage,
		publisher:  publisher,
		prices:     prices,
		commission: commissionRate,
		tradeLimit: tradeLimit,
	}
}

// PlaceOrder validates the request, reserves collateral (quote for a buy,
// base for a sell), persists the open order and immediately attempts a
// match. The returned order reflects the match outcome.
func (s *Service) PlaceOrder(ctx context.Context, userId int64, symbol string, side models.OrderSide,
	price, amount decimal.Decimal) (models.Order, bool, error) {
	const op = "trading.PlaceOrder"

	if err := checkSymbol(symbol); err != nil {
		s.log.Error("Invalid symbol", "symbol", symbol, "err", err)
		return models.Order{}, false, fmt.Errorf("%s: %w", op, err)
	}
	if side != models.Buy && side != models.Sell {
		return models.Order{}, false, fmt.Errorf("%s: %w", op, ErrInvalidSide)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return models.Order{}, false, fmt.Errorf("%s: %w", op, ErrInvalidPrice)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return models.Order{}, false, fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	price = models.RoundMoney(price)
	amount = models.RoundMoney(amount)
	if amount.IsZero() {
		return models.Order{}, false, fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	order := models.Order{
		Id:              uuid.New(),
		UserId:          userId,
		Symbol:          symbol,
		Side:            side,
		Price:           price,
		Amount:          amount,
		RemainingAmount: amount,
		Status:          models.Open,
		CreatedAt:       time.Now(),
	}

	lockAsset, lockAmount := order.BaseAsset(), amount
	if side == models.Buy {
		order.LockedQuote = models.RoundMoney(price.Mul(amount))
		lockAsset, lockAmount = order.QuoteAsset(), order.LockedQuote
	}

	if err := s.storage.PlaceOrder(ctx, order, lockAsset, lockAmount); err != nil {
		s.log.Error("Failed to place order", "user_id", userId, "symbol", symbol, "err", err)
		return models.Order{}, false, fmt.Errorf("%s: %w", op, err)
	}

	// A failed match attempt never unwinds the placement; the order simply
	// rests open.
	matched, order, err := s.AttemptMatch(ctx, order)
	if err != nil {
		s.log.Error("Match attempt failed after placement", "order_id", order.Id, "err", err)
		return order, false, nil
	}

	return order, matched, nil
}

// AttemptMatch looks for one eligible counter-order and settles against it.
// No eligible counter, or a counter that another settlement claimed first,
// is a clean no-match outcome, not an error.
func (s *Service) AttemptMatch(ctx context.Context, order models.Order) (bool, models.Order, error) {
	const op = "trading.AttemptMatch"

	counter, err := s.storage.FindCounterOrder(ctx, order)
	if err != nil {
		if errors.Is(err, storage.ErrNoMatch) {
			return false, order, nil
		}
		s.log.Error("Failed to find counter order", "order_id", order.Id, "err", err)
		return false, order, fmt.Errorf("%s: %w", op, err)
	}

	// The counter-order was resting before this attempt, so its price is the
	// execution price.
	set := s.newSettlement(order, counter)

	if err := s.storage.ApplySettlement(ctx, set); err != nil {
		switch {
		case errors.Is(err, storage.ErrOrderNotOpen), errors.Is(err, storage.ErrOrderNotFound):
			// Lost the race for the counter-order; the order stays open for a
			// future attempt.
			s.log.Debug("Counter order no longer open", "order_id", order.Id, "counter_id", counter.Id)
			return false, order, nil
		case errors.Is(err, storage.ErrAssetIntegrity):
			s.log.Error("Settlement aborted on consistency error",
				"order_id", order.Id, "counter_id", counter.Id, "err", err)
			return false, order, nil
		default:
			s.log.Error("Failed to apply settlement", "order_id", order.Id, "err", err)
			return false, order, fmt.Errorf("%s: %w", op, err)
		}
	}

	order.Status = models.Filled
	order.RemainingAmount = decimal.Zero
	order.LockedQuote = decimal.Zero

	s.afterSettlement(ctx, set)

	return true, order, nil
}

// afterSettlement runs the fire-and-forget side effects of a committed
// settlement: one match event per involved account and the ticker cache.
func (s *Service) afterSettlement(ctx context.Context, set models.Settlement) {
	trade := set.Trade

	for _, side := range []struct {
		userId int64
		side   models.OrderSide
	}{
		{set.BuyOrder.UserId, models.Buy},
		{set.SellOrder.UserId, models.Sell},
	} {
		event := models.MatchEvent{
			TradeId:   trade.Id,
			Symbol:    trade.Symbol,
			Price:     trade.Price,
			Amount:    trade.Amount,
			Side:      side.side,
			CreatedAt: trade.CreatedAt,
		}
		if err := s.publisher.PublishMatch(ctx, side.userId, event); err != nil {
			s.log.Error("Failed to publish match event", "trade_id", trade.Id, "user_id", side.userId, "err", err)
		}
	}

	if err := s.prices.SaveLastPrice(ctx, trade.Symbol, trade.Price); err != nil {
		s.log.Error("Failed to cache last price", "symbol", trade.Symbol, "err", err)
	}
}

// CancelOrder returns the order's collateral and marks it cancelled. Only
// open orders cancel; the storage distinguishes not-found from not-open.
func (s *Service) CancelOrder(ctx context.Context, userId int64, orderId uuid.UUID) (models.Order, error) {
	const op = "trading.CancelOrder"

	order, err := s.storage.CancelOrder(ctx, orderId, userId)
	if err != nil {
		s.log.Error("Failed to cancel order", "order_id", orderId, "user_id", userId, "err", err)
		return models.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("Order cancelled", "order_id", orderId, "user_id", userId)
	return order, nil
}

// MatchSweep re-attempts matching for every open order of a user and reports
// how many settled.
func (s *Service) MatchSweep(ctx context.Context, userId int64) (int, error) {
	const op = "trading.MatchSweep"

	orders, err := s.storage.GetUserOrders(ctx, userId)
	if err != nil {
		s.log.Error("Failed to get user orders", "user_id", userId, "err", err)
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	matched := 0
	for _, order := range orders {
		if order.Status != models.Open {
			continue
		}
		ok, _, err := s.AttemptMatch(ctx, order)
		if err != nil {
			s.log.Error("Match attempt failed during sweep", "order_id", order.Id, "err", err)
			continue
		}
		if ok {
			matched++
		}
	}
	return matched, nil
}

// GetUserOrders returns the user's orders newest first, optionally filtered
// by symbol, side and status.
func (s *Service) GetUserOrders(ctx context.Context, userId int64, symbol, side, status string) ([]models.Order, error) {
	const op = "trading.GetUserOrders"

	orders, err := s.storage.GetUserOrders(ctx, userId)
	if err != nil {
		s.log.Error("Failed to get user orders", "user_id", userId, "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	filtered := orders[:0]
	for _, order := range orders {
		if symbol != "" && order.Symbol != symbol {
			continue
		}
		if side != "" && string(order.Side) != side {
			continue
		}
		if status != "" && string(order.Status) != status {
			continue
		}
		filtered = append(filtered, order)
	}
	return filtered, nil
}

// ListOpenOrders returns all open orders on a symbol, price-descending.
func (s *Service) ListOpenOrders(ctx context.Context, symbol string) ([]models.Order, error) {
	const op = "trading.ListOpenOrders"

	orders, err := s.storage.OpenOrders(ctx, symbol)
	if err != nil {
		s.log.Error("Failed to list open orders", "symbol", symbol, "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// ListRecentTrades returns the newest trades on a symbol, most recent first.
func (s *Service) ListRecentTrades(ctx context.Context, symbol string, limit int) ([]models.Trade, error) {
	const op = "trading.ListRecentTrades"

	if limit <= 0 || limit > s.tradeLimit {
		limit = s.tradeLimit
	}
	trades, err := s.storage.RecentTrades(ctx, symbol, limit)
	if err != nil {
		s.log.Error("Failed to list trades", "symbol", symbol, "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return trades, nil
}

func (s *Service) LastPrice(ctx context.Context, symbol string) (string, error) {
	const op = "trading.LastPrice"

	price, err := s.prices.LastPrice(ctx, symbol)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return price, nil
}

func checkSymbol(symbol string) error {
	base, quote := models.SplitSymbol(symbol)
	if base == "" || quote == "" {
		return ErrInvalidSymbol
	}
	return nil
}
