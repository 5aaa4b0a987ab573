// Package memstore is an in-memory implementation of the venue storage. It
// serializes every read-then-write unit behind one mutex and re-checks order
// status inside that unit, so two settlements can never both fill the same
// order. It backs the local environment and the test suite; the postgres
// storage provides the same contract on transactions with row locks.
package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"SpotExchange/internal/domain/models"
	"SpotExchange/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type balanceKey struct {
	userId int64
	asset  string
}

type Store struct {
	mu         sync.Mutex
	nextUserId int64
	users      map[int64]models.User
	emails     map[string]int64
	balances   map[balanceKey]*models.Balance
	orders     map[uuid.UUID]*models.Order
	trades     []models.Trade
}

func New() *Store {
	return &Store{
		users:    make(map[int64]models.User),
		emails:   make(map[string]int64),
		balances: make(map[balanceKey]*models.Balance),
		orders:   make(map[uuid.UUID]*models.Order),
	}
}

func (s *Store) CreateUser(ctx context.Context, email string, passHash []byte, createdAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emails[email]; ok {
		return 0, storage.ErrUserAlreadyExists
	}
	s.nextUserId++
	id := s.nextUserId
	s.users[id] = models.User{Id: id, Email: email, PassHash: passHash, Created: createdAt}
	s.emails[email] = id
	return id, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[email]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *Store) GetUserById(ctx context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return user, nil
}

// balance returns the row for (userId, asset), creating it zeroed when create
// is set. Callers must hold s.mu.
func (s *Store) balance(userId int64, asset string, create bool) *models.Balance {
	key := balanceKey{userId: userId, asset: asset}
	b, ok := s.balances[key]
	if !ok && create {
		b = &models.Balance{UserId: userId, Asset: asset, Total: decimal.Zero, Locked: decimal.Zero}
		s.balances[key] = b
	}
	return b
}

func (s *Store) Deposit(ctx context.Context, userId int64, asset string, amount decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userId]; !ok {
		return decimal.Zero, storage.ErrUserNotFound
	}
	b := s.balance(userId, asset, true)
	b.Total = b.Total.Add(models.RoundMoney(amount))
	return b.Total, nil
}

func (s *Store) Balances(ctx context.Context, userId int64) ([]models.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Balance
	for _, b := range s.balances {
		if b.UserId == userId {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out, nil
}

// Reserve moves amount from available into locked for one ledger row.
func (s *Store) Reserve(ctx context.Context, userId int64, asset string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reserve(userId, asset, amount)
}

// Release returns previously reserved amount to availability.
func (s *Store) Release(ctx context.Context, userId int64, asset string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.release(userId, asset, amount)
}

func (s *Store) reserve(userId int64, asset string, amount decimal.Decimal) error {
	b := s.balance(userId, asset, false)
	if b == nil || b.Available().LessThan(amount) {
		return storage.ErrInsufficientFunds
	}
	b.Locked = b.Locked.Add(amount)
	return nil
}

func (s *Store) release(userId int64, asset string, amount decimal.Decimal) error {
	b := s.balance(userId, asset, false)
	if b == nil || b.Locked.LessThan(amount) {
		return storage.ErrLockUnderflow
	}
	b.Locked = b.Locked.Sub(amount)
	return nil
}

// PlaceOrder reserves the order's collateral and inserts the open order as
// one unit. Nothing is inserted when the reservation fails.
func (s *Store) PlaceOrder(ctx context.Context, order models.Order, lockAsset string, lockAmount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[order.UserId]; !ok {
		return storage.ErrUserNotFound
	}
	if err := s.reserve(order.UserId, lockAsset, lockAmount); err != nil {
		return err
	}
	o := order
	s.orders[o.Id] = &o
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, storage.ErrOrderNotFound
	}
	return *o, nil
}

// GetUserOrders returns all of a user's orders, newest first.
func (s *Store) GetUserOrders(ctx context.Context, userId int64) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Order
	for _, o := range s.orders {
		if o.UserId == userId {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Id.String() > out[j].Id.String()
	})
	return out, nil
}

// OpenOrders returns all open orders on a symbol, price-descending.
func (s *Store) OpenOrders(ctx context.Context, symbol string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Order
	for _, o := range s.orders {
		if o.Symbol == symbol && o.Status == models.Open {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Price.Equal(out[j].Price) {
			return out[i].Price.GreaterThan(out[j].Price)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) RecentTrades(ctx context.Context, symbol string, limit int) ([]models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Trade
	for i := len(s.trades) - 1; i >= 0 && len(out) < limit; i-- {
		if s.trades[i].Symbol == symbol {
			out = append(out, s.trades[i])
		}
	}
	return out, nil
}

// FindCounterOrder runs the matching query for an order: opposite side, same
// symbol, open, remaining amounts exactly equal, price compatible. Best price
// wins, then earliest creation time, then ascending id as a stable final key.
func (s *Store) FindCounterOrder(ctx context.Context, order models.Order) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *models.Order
	for _, cand := range s.orders {
		if !s.eligible(order, cand) {
			continue
		}
		if best == nil || better(order.Side, cand, best) {
			best = cand
		}
	}
	if best == nil {
		return models.Order{}, storage.ErrNoMatch
	}
	return *best, nil
}

func (s *Store) eligible(order models.Order, cand *models.Order) bool {
	if cand.Id == order.Id || cand.Symbol != order.Symbol || cand.Status != models.Open {
		return false
	}
	if cand.Side != order.Side.Opposite() {
		return false
	}
	if !cand.RemainingAmount.Equal(order.RemainingAmount) {
		return false
	}
	if order.Side == models.Buy {
		return cand.Price.LessThanOrEqual(order.Price)
	}
	return cand.Price.GreaterThanOrEqual(order.Price)
}

// better reports whether a beats b as a counter-order for the given taker
// side.
func better(side models.OrderSide, a, b *models.Order) bool {
	if !a.Price.Equal(b.Price) {
		if side == models.Buy {
			return a.Price.LessThan(b.Price)
		}
		return a.Price.GreaterThan(b.Price)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Id.String() < b.Id.String()
}

// CancelOrder releases the order's collateral and marks it cancelled as one
// unit. The ledger is untouched when the order is not found or not open.
func (s *Store) CancelOrder(ctx context.Context, id uuid.UUID, userId int64) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok || o.UserId != userId {
		return models.Order{}, storage.ErrOrderNotFound
	}
	if o.Status != models.Open {
		return models.Order{}, fmt.Errorf("%w: already %s", storage.ErrOrderNotOpen, o.Status)
	}

	var err error
	if o.Side == models.Buy {
		err = s.release(o.UserId, o.QuoteAsset(), o.LockedQuote)
	} else {
		err = s.release(o.UserId, o.BaseAsset(), o.RemainingAmount)
	}
	if err != nil {
		slog.Error("cancel aborted on ledger inconsistency", "order_id", id, "err", err)
		return models.Order{}, err
	}

	o.Status = models.Cancelled
	o.RemainingAmount = decimal.Zero
	o.LockedQuote = decimal.Zero
	return *o, nil
}

// ApplySettlement converts two open orders into a filled pair plus a trade.
// Validation happens before any mutation, so a failed settlement leaves the
// prior state completely untouched.
func (s *Store) ApplySettlement(ctx context.Context, set models.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buy, ok := s.orders[set.BuyOrder.Id]
	if !ok {
		return storage.ErrOrderNotFound
	}
	sell, ok := s.orders[set.SellOrder.Id]
	if !ok {
		return storage.ErrOrderNotFound
	}
	amount := set.Trade.Amount
	if buy.Status != models.Open || sell.Status != models.Open {
		return storage.ErrOrderNotOpen
	}
	if !buy.RemainingAmount.Equal(amount) || !sell.RemainingAmount.Equal(amount) {
		return storage.ErrOrderNotOpen
	}

	base := buy.BaseAsset()
	quote := buy.QuoteAsset()

	sellerBase := s.balance(sell.UserId, base, false)
	if sellerBase == nil || sellerBase.Locked.LessThan(amount) || sellerBase.Total.LessThan(amount) {
		slog.Error("settlement aborted: seller locked base short of trade amount",
			"sell_order_id", sell.Id, "amount", amount)
		return storage.ErrAssetIntegrity
	}
	buyerQuote := s.balance(buy.UserId, quote, false)
	if buyerQuote == nil || buyerQuote.Locked.LessThan(buy.LockedQuote) || buyerQuote.Total.LessThan(set.Volume) {
		slog.Error("settlement aborted: buyer locked quote short of trade volume",
			"buy_order_id", buy.Id, "volume", set.Volume)
		return storage.ErrAssetIntegrity
	}
	// The lock minus the volume is exactly what the buyer gets back; any other
	// leftover means the settlement was priced against a stale order.
	leftover := buy.LockedQuote.Sub(set.Volume)
	if leftover.IsNegative() || !leftover.Equal(set.BuyerRefund) {
		slog.Error("settlement aborted: buyer lock does not reconcile with trade volume",
			"buy_order_id", buy.Id, "locked_quote", buy.LockedQuote, "volume", set.Volume, "refund", set.BuyerRefund)
		return storage.ErrAssetIntegrity
	}

	// Validated; apply. Seller gives up the locked base and receives the
	// proceeds; the buyer's whole lock is removed while only the volume
	// leaves the total, which realizes any price-improvement refund.
	sellerBase.Total = sellerBase.Total.Sub(amount)
	sellerBase.Locked = sellerBase.Locked.Sub(amount)
	sellerQuote := s.balance(sell.UserId, quote, true)
	sellerQuote.Total = sellerQuote.Total.Add(set.SellerProceeds)

	buyerQuote.Total = buyerQuote.Total.Sub(set.Volume)
	buyerQuote.Locked = buyerQuote.Locked.Sub(buy.LockedQuote)
	buyerBase := s.balance(buy.UserId, base, true)
	buyerBase.Total = buyerBase.Total.Add(amount)

	for _, o := range []*models.Order{buy, sell} {
		o.Status = models.Filled
		o.RemainingAmount = decimal.Zero
		o.LockedQuote = decimal.Zero
	}
	s.trades = append(s.trades, set.Trade)
	return nil
}
