package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"SpotExchange/internal/domain/models"
	"SpotExchange/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const orderColumns = "id, user_id, symbol, side, price, amount, remaining_amount, locked_quote, status, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.Id, &o.UserId, &o.Symbol, &o.Side, &o.Price, &o.Amount,
		&o.RemainingAmount, &o.LockedQuote, &o.Status, &o.CreatedAt)
	return o, err
}

// PlaceOrder reserves the order's collateral and inserts the open order in
// one transaction. Nothing persists when the reservation fails.
func (s *Storage) PlaceOrder(ctx context.Context, order models.Order, lockAsset string, lockAmount decimal.Decimal) (err error) {
	const op = "postgres.PlaceOrder"
	log := slog.With("op", op, "order_id", order.Id)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		log.Error("Failed to begin transaction", "err", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	const queryReserve = `
        UPDATE balances SET locked = locked + $3
        WHERE user_id = $1 AND asset = $2 AND total - locked >= $3`

	tag, err := tx.Exec(ctx, queryReserve, order.UserId, lockAsset, lockAmount)
	if err != nil {
		log.Error("Failed to reserve collateral", "err", err)
		return fmt.Errorf("%s: reserve: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		log.Info("Insufficient funds for order", "user_id", order.UserId, "asset", lockAsset, "amount", lockAmount)
		return storage.ErrInsufficientFunds
	}

	const queryInsertOrder = `
        INSERT INTO orders(` + orderColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.Exec(ctx, queryInsertOrder, order.Id, order.UserId, order.Symbol, order.Side,
		order.Price, order.Amount, order.RemainingAmount, order.LockedQuote, order.Status, order.CreatedAt)
	if err != nil {
		log.Error("Failed to insert order", "err", err)
		return fmt.Errorf("%s: insert order: %w", op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		log.Error("Failed to commit transaction", "err", err)
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	log.Info("Order placed", "user_id", order.UserId, "symbol", order.Symbol, "side", order.Side)
	return nil
}

func (s *Storage) GetOrder(ctx context.Context, id uuid.UUID) (models.Order, error) {
	const op = "postgres.GetOrder"
	log := slog.With("op", op)

	const queryGetOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(s.db.QueryRow(ctx, queryGetOrder, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order, storage.ErrOrderNotFound
		}
		log.Error("Failed to get order", "id", id, "err", err)
		return order, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

func (s *Storage) GetUserOrders(ctx context.Context, userId int64) ([]models.Order, error) {
	const op = "postgres.GetUserOrders"

	const queryUserOrders = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	return s.queryOrders(ctx, op, queryUserOrders, userId)
}

// OpenOrders returns all open orders on a symbol, price-descending, for
// orderbook display.
func (s *Storage) OpenOrders(ctx context.Context, symbol string) ([]models.Order, error) {
	const op = "postgres.OpenOrders"

	const queryOpenOrders = `
        SELECT ` + orderColumns + ` FROM orders
        WHERE symbol = $1 AND status = 'open'
        ORDER BY price DESC, created_at ASC`
	return s.queryOrders(ctx, op, queryOpenOrders, symbol)
}

func (s *Storage) queryOrders(ctx context.Context, op, query string, args ...any) ([]models.Order, error) {
	log := slog.With("op", op)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		log.Error("Failed to query orders", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			log.Error("Failed to scan order", "err", err)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// FindCounterOrder runs the matching query: opposite side, same symbol, open,
// remaining amounts exactly equal, price compatible. Best price first, then
// earliest creation time, then ascending id as a stable final key.
func (s *Storage) FindCounterOrder(ctx context.Context, order models.Order) (models.Order, error) {
	const op = "postgres.FindCounterOrder"
	log := slog.With("op", op)

	const queryCounterForBuy = `
        SELECT ` + orderColumns + ` FROM orders
        WHERE symbol = $1 AND side = 'sell' AND status = 'open'
          AND remaining_amount = $2 AND price <= $3 AND id <> $4
        ORDER BY price ASC, created_at ASC, id ASC
        LIMIT 1`
	const queryCounterForSell = `
        SELECT ` + orderColumns + ` FROM orders
        WHERE symbol = $1 AND side = 'buy' AND status = 'open'
          AND remaining_amount = $2 AND price >= $3 AND id <> $4
        ORDER BY price DESC, created_at ASC, id ASC
        LIMIT 1`

	query := queryCounterForBuy
	if order.Side == models.Sell {
		query = queryCounterForSell
	}

	counter, err := scanOrder(s.db.QueryRow(ctx, query, order.Symbol, order.RemainingAmount, order.Price, order.Id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return counter, storage.ErrNoMatch
		}
		log.Error("Failed to find counter order", "order_id", order.Id, "err", err)
		return counter, fmt.Errorf("%s: %w", op, err)
	}
	return counter, nil
}

// CancelOrder releases the order's collateral and marks it cancelled in one
// transaction. The order row is locked first so two concurrent cancels yield
// exactly one success.
func (s *Storage) CancelOrder(ctx context.Context, id uuid.UUID, userId int64) (models.Order, error) {
	const op = "postgres.CancelOrder"
	log := slog.With("op", op, "order_id", id)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		log.Error("Failed to begin transaction", "err", err)
		return models.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	const queryLockOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE`
	order, err := scanOrder(tx.QueryRow(ctx, queryLockOrder, id, userId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, storage.ErrOrderNotFound
		}
		log.Error("Failed to lock order", "err", err)
		return models.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	if order.Status != models.Open {
		return models.Order{}, fmt.Errorf("%w: already %s", storage.ErrOrderNotOpen, order.Status)
	}

	releaseAsset, releaseAmount := order.QuoteAsset(), order.LockedQuote
	if order.Side == models.Sell {
		releaseAsset, releaseAmount = order.BaseAsset(), order.RemainingAmount
	}

	const queryRelease = `
        UPDATE balances SET locked = locked - $3
        WHERE user_id = $1 AND asset = $2 AND locked >= $3`

	tag, err := tx.Exec(ctx, queryRelease, order.UserId, releaseAsset, releaseAmount)
	if err != nil {
		log.Error("Failed to release collateral", "err", err)
		return models.Order{}, fmt.Errorf("%s: release: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		log.Error("Cancel aborted on ledger inconsistency", "asset", releaseAsset, "amount", releaseAmount)
		return models.Order{}, storage.ErrLockUnderflow
	}

	const queryCancel = `
        UPDATE orders SET status = 'cancelled', remaining_amount = 0, locked_quote = 0
        WHERE id = $1`
	if _, err = tx.Exec(ctx, queryCancel, id); err != nil {
		log.Error("Failed to cancel order", "err", err)
		return models.Order{}, fmt.Errorf("%s: cancel: %w", op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		log.Error("Failed to commit transaction", "err", err)
		return models.Order{}, fmt.Errorf("%s: commit: %w", op, err)
	}

	order.Status = models.Cancelled
	order.RemainingAmount = decimal.Zero
	order.LockedQuote = decimal.Zero
	log.Info("Order cancelled", "user_id", userId)
	return order, nil
}

// ApplySettlement converts two open orders into a filled pair plus a trade in
// one transaction. Both order rows are locked in ascending-id order so two
// settlements referencing each other's orders cannot deadlock; status is
// re-checked under the lock so only one attempt can fill a given order.
func (s *Storage) ApplySettlement(ctx context.Context, set models.Settlement) (err error) {
	const op = "postgres.ApplySettlement"
	log := slog.With("op", op, "trade_id", set.Trade.Id)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		log.Error("Failed to begin transaction", "err", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	first, second := set.BuyOrder.Id, set.SellOrder.Id
	if second.String() < first.String() {
		first, second = second, first
	}

	const queryLockOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	locked := make(map[uuid.UUID]models.Order, 2)
	for _, id := range []uuid.UUID{first, second} {
		order, err := scanOrder(tx.QueryRow(ctx, queryLockOrder, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return storage.ErrOrderNotFound
			}
			log.Error("Failed to lock order", "id", id, "err", err)
			return fmt.Errorf("%s: %w", op, err)
		}
		locked[id] = order
	}

	buy, sell := locked[set.BuyOrder.Id], locked[set.SellOrder.Id]
	amount := set.Trade.Amount
	if buy.Status != models.Open || sell.Status != models.Open ||
		!buy.RemainingAmount.Equal(amount) || !sell.RemainingAmount.Equal(amount) {
		return storage.ErrOrderNotOpen
	}

	base, quote := buy.BaseAsset(), buy.QuoteAsset()

	// Seller: locked base leaves the ledger, proceeds arrive in quote.
	const querySellerBase = `
        UPDATE balances SET total = total - $3, locked = locked - $3
        WHERE user_id = $1 AND asset = $2 AND locked >= $3 AND total >= $3`
	tag, err := tx.Exec(ctx, querySellerBase, sell.UserId, base, amount)
	if err != nil {
		log.Error("Failed to debit seller base", "err", err)
		return fmt.Errorf("%s: seller base: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		log.Error("Settlement aborted: seller locked base short of trade amount",
			"sell_order_id", sell.Id, "amount", amount)
		return storage.ErrAssetIntegrity
	}

	const queryCredit = `
        INSERT INTO balances(user_id, asset, total, locked)
        VALUES ($1, $2, $3, 0)
        ON CONFLICT (user_id, asset) DO UPDATE SET total = balances.total + $3`
	if _, err = tx.Exec(ctx, queryCredit, sell.UserId, quote, set.SellerProceeds); err != nil {
		log.Error("Failed to credit seller proceeds", "err", err)
		return fmt.Errorf("%s: seller quote: %w", op, err)
	}

	// The lock minus the volume is exactly what the buyer gets back; any other
	// leftover means the settlement was priced against a stale order.
	leftover := buy.LockedQuote.Sub(set.Volume)
	if leftover.IsNegative() || !leftover.Equal(set.BuyerRefund) {
		log.Error("Settlement aborted: buyer lock does not reconcile with trade volume",
			"buy_order_id", buy.Id, "locked_quote", buy.LockedQuote, "volume", set.Volume, "refund", set.BuyerRefund)
		return storage.ErrAssetIntegrity
	}

	// Buyer: the whole lock comes off while only the volume leaves the
	// total, which realizes any price-improvement refund.
	const queryBuyerQuote = `
        UPDATE balances SET total = total - $3, locked = locked - $4
        WHERE user_id = $1 AND asset = $2 AND locked >= $4 AND total >= $3`
	tag, err = tx.Exec(ctx, queryBuyerQuote, buy.UserId, quote, set.Volume, buy.LockedQuote)
	if err != nil {
		log.Error("Failed to debit buyer quote", "err", err)
		return fmt.Errorf("%s: buyer quote: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		log.Error("Settlement aborted: buyer locked quote short of trade volume",
			"buy_order_id", buy.Id, "volume", set.Volume)
		return storage.ErrAssetIntegrity
	}

	if _, err = tx.Exec(ctx, queryCredit, buy.UserId, base, amount); err != nil {
		log.Error("Failed to credit buyer base", "err", err)
		return fmt.Errorf("%s: buyer base: %w", op, err)
	}

	const queryFill = `
        UPDATE orders SET status = 'filled', remaining_amount = 0, locked_quote = 0
        WHERE id = $1`
	for _, id := range []uuid.UUID{buy.Id, sell.Id} {
		if _, err = tx.Exec(ctx, queryFill, id); err != nil {
			log.Error("Failed to fill order", "id", id, "err", err)
			return fmt.Errorf("%s: fill order: %w", op, err)
		}
	}

	const queryInsertTrade = `
        INSERT INTO trades(id, buy_order_id, sell_order_id, symbol, price, amount, commission, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = tx.Exec(ctx, queryInsertTrade, set.Trade.Id, set.Trade.BuyOrderId, set.Trade.SellOrderId,
		set.Trade.Symbol, set.Trade.Price, set.Trade.Amount, set.Trade.Commission, set.Trade.CreatedAt)
	if err != nil {
		log.Error("Failed to insert trade", "err", err)
		return fmt.Errorf("%s: insert trade: %w", op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		log.Error("Failed to commit transaction", "err", err)
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	log.Info("Settlement applied",
		"buy_order_id", buy.Id, "sell_order_id", sell.Id,
		"price", set.Trade.Price, "amount", amount, "commission", set.Trade.Commission)
	return nil
}

func (s *Storage) RecentTrades(ctx context.Context, symbol string, limit int) ([]models.Trade, error) {
	const op = "postgres.RecentTrades"
	log := slog.With("op", op)

	const queryTrades = `
        SELECT id, buy_order_id, sell_order_id, symbol, price, amount, commission, created_at
        FROM trades WHERE symbol = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2`

	rows, err := s.db.Query(ctx, queryTrades, symbol, limit)
	if err != nil {
		log.Error("Failed to query trades", "symbol", symbol, "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		err := rows.Scan(&t.Id, &t.BuyOrderId, &t.SellOrderId, &t.Symbol, &t.Price, &t.Amount, &t.Commission, &t.CreatedAt)
		if err != nil {
			log.Error("Failed to scan trade", "err", err)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}
