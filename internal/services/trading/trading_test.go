package trading_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"SpotExchange/internal/domain/models"
	"SpotExchange/internal/services/trading"
	"SpotExchange/internal/storage"
	"SpotExchange/internal/storage/memstore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	userId int64
	event  models.MatchEvent
}

func (p *fakePublisher) PublishMatch(ctx context.Context, userId int64, event models.MatchEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{userId: userId, event: event})
	return nil
}

func (p *fakePublisher) all() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

type fakePriceCache struct {
	mu     sync.Mutex
	prices map[string]string
}

func (c *fakePriceCache) SaveLastPrice(ctx context.Context, symbol string, price decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[symbol] = price.String()
	return nil
}

func (c *fakePriceCache) LastPrice(ctx context.Context, symbol string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	price, ok := c.prices[symbol]
	if !ok {
		return "", storage.ErrPriceNotFound
	}
	return price, nil
}

func newTestService(t *testing.T) (*trading.Service, *memstore.Store, *fakePublisher, *fakePriceCache) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	publisher := &fakePublisher{}
	prices := &fakePriceCache{prices: make(map[string]string)}
	svc := trading.New(log, store, publisher, prices, dec("0.015"), 50)
	return svc, store, publisher, prices
}

func fundedUser(t *testing.T, store *memstore.Store, asset, amount string) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := store.CreateUser(ctx, uuid.NewString()+"@test.io", []byte("hash"), time.Now())
	require.NoError(t, err)
	_, err = store.Deposit(ctx, id, asset, dec(amount))
	require.NoError(t, err)
	return id
}

func balanceOf(t *testing.T, store *memstore.Store, userId int64, asset string) models.Balance {
	t.Helper()
	balances, err := store.Balances(context.Background(), userId)
	require.NoError(t, err)
	for _, b := range balances {
		if b.Asset == asset {
			return b
		}
	}
	return models.Balance{UserId: userId, Asset: asset, Total: decimal.Zero, Locked: decimal.Zero}
}

func TestPlaceOrder_Validation(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	userId := fundedUser(t, store, "USD", "1000")
	ctx := context.Background()

	tests := []struct {
		name    string
		symbol  string
		side    models.OrderSide
		price   string
		amount  string
		wantErr error
	}{
		{"bad symbol", "BTCUSD", models.Buy, "100", "1", trading.ErrInvalidSymbol},
		{"bad side", "BTC-USD", models.OrderSide("hold"), "100", "1", trading.ErrInvalidSide},
		{"zero price", "BTC-USD", models.Buy, "0", "1", trading.ErrInvalidPrice},
		{"negative price", "BTC-USD", models.Buy, "-1", "1", trading.ErrInvalidPrice},
		{"zero amount", "BTC-USD", models.Buy, "100", "0", trading.ErrInvalidAmount},
		{"amount rounds to zero", "BTC-USD", models.Buy, "100", "0.0004", trading.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.PlaceOrder(ctx, userId, tt.symbol, tt.side, dec(tt.price), dec(tt.amount))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPlaceOrder_InsufficientFunds(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	buyer := fundedUser(t, store, "USD", "50")
	_, _, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("100"), dec("1"))
	assert.ErrorIs(t, err, storage.ErrInsufficientFunds)

	seller := fundedUser(t, store, "BTC", "0.5")
	_, _, err = svc.PlaceOrder(ctx, seller, "BTC-USD", models.Sell, dec("100"), dec("1"))
	assert.ErrorIs(t, err, storage.ErrInsufficientFunds)
}

func TestPlaceOrder_ReservesCollateral(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	buyer := fundedUser(t, store, "USD", "1000")
	order, matched, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("100.5"), dec("2"))
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Equal(t, models.Open, order.Status)
	assert.True(t, order.LockedQuote.Equal(dec("201")))

	b := balanceOf(t, store, buyer, "USD")
	assert.True(t, b.Locked.Equal(dec("201")))
	assert.True(t, b.Available().Equal(dec("799")))

	seller := fundedUser(t, store, "BTC", "3")
	sellOrder, matched, err := svc.PlaceOrder(ctx, seller, "BTC-USD", models.Sell, dec("200"), dec("2"))
	require.NoError(t, err)
	assert.False(t, matched)
	assert.True(t, sellOrder.LockedQuote.IsZero())

	sb := balanceOf(t, store, seller, "BTC")
	assert.True(t, sb.Locked.Equal(dec("2")))
	assert.True(t, sb.Available().Equal(dec("1")))
}

func TestMatch_FullAmountOnly(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	seller := fundedUser(t, store, "BTC", "5")
	_, matched, err := svc.PlaceOrder(ctx, seller, "BTC-USD", models.Sell, dec("100"), dec("5"))
	require.NoError(t, err)
	require.False(t, matched)

	buyer := fundedUser(t, store, "USD", "10000")

	// Smaller and larger amounts never split the resting order.
	_, matched, err = svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("100"), dec("3"))
	require.NoError(t, err)
	assert.False(t, matched)

	_, matched, err = svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("100"), dec("7"))
	require.NoError(t, err)
	assert.False(t, matched)

	// The exact amount matches.
	order, matched, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("100"), dec("5"))
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, models.Filled, order.Status)
	assert.True(t, order.RemainingAmount.IsZero())
}

func TestMatch_PriceCompatibility(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	seller := fundedUser(t, store, "BTC", "1")
	_, _, err := svc.PlaceOrder(ctx, seller, "BTC-USD", models.Sell, dec("100"), dec("1"))
	require.NoError(t, err)

	// A bid below the ask does not cross.
	buyer := fundedUser(t, store, "USD", "1000")
	_, matched, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("99"), dec("1"))
	require.NoError(t, err)
	assert.False(t, matched)

	// A bid at the ask crosses.
	_, matched, err = svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("100"), dec("1"))
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestMatch_PricePriority(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	sellerA := fundedUser(t, store, "BTC", "1")
	sellerB := fundedUser(t, store, "BTC", "1")
	sellerC := fundedUser(t, store, "BTC", "1")

	orderAt100, _, err := svc.PlaceOrder(ctx, sellerA, "BTC-USD", models.Sell, dec("100"), dec("1"))
	require.NoError(t, err)
	orderAt101, _, err := svc.PlaceOrder(ctx, sellerB, "BTC-USD", models.Sell, dec("101"), dec("1"))
	require.NoError(t, err)
	orderAt99, _, err := svc.PlaceOrder(ctx, sellerC, "BTC-USD", models.Sell, dec("99"), dec("1"))
	require.NoError(t, err)

	buyer := fundedUser(t, store, "USD", "1000")
	_, matched, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("102"), dec("1"))
	require.NoError(t, err)
	require.True(t, matched)

	// The cheapest ask fills; the rest stay open.
	filled, err := store.GetOrder(ctx, orderAt99.Id)
	require.NoError(t, err)
	assert.Equal(t, models.Filled, filled.Status)

	for _, id := range []uuid.UUID{orderAt100.Id, orderAt101.Id} {
		still, err := store.GetOrder(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.Open, still.Status)
	}

	trades, err := store.RecentTrades(ctx, "BTC-USD", 1)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(dec("99")))
}

func TestMatch_FIFOTieBreak(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	sellerA := fundedUser(t, store, "BTC", "1")
	sellerB := fundedUser(t, store, "BTC", "1")

	// Same price, explicit creation times one second apart.
	early := models.Order{
		Id: uuid.New(), UserId: sellerA, Symbol: "BTC-USD", Side: models.Sell,
		Price: dec("100"), Amount: dec("1"), RemainingAmount: dec("1"),
		Status: models.Open, CreatedAt: time.Now().Add(-time.Second),
	}
	late := models.Order{
		Id: uuid.New(), UserId: sellerB, Symbol: "BTC-USD", Side: models.Sell,
		Price: dec("100"), Amount: dec("1"), RemainingAmount: dec("1"),
		Status: models.Open, CreatedAt: time.Now(),
	}
	require.NoError(t, store.PlaceOrder(ctx, late, "BTC", dec("1")))
	require.NoError(t, store.PlaceOrder(ctx, early, "BTC", dec("1")))

	buyer := fundedUser(t, store, "USD", "1000")
	_, matched, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("100"), dec("1"))
	require.NoError(t, err)
	require.True(t, matched)

	gotEarly, err := store.GetOrder(ctx, early.Id)
	require.NoError(t, err)
	assert.Equal(t, models.Filled, gotEarly.Status)

	gotLate, err := store.GetOrder(ctx, late.Id)
	require.NoError(t, err)
	assert.Equal(t, models.Open, gotLate.Status)
}

func TestSettlement_CommissionScenario(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	seller := fundedUser(t, store, "BTC", "1")
	buyer := fundedUser(t, store, "USD", "100")

	_, _, err := svc.PlaceOrder(ctx, seller, "BTC-USD", models.Sell, dec("100"), dec("1"))
	require.NoError(t, err)

	_, matched, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("100"), dec("1"))
	require.NoError(t, err)
	require.True(t, matched)

	trades, err := store.RecentTrades(ctx, "BTC-USD", 1)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(dec("100")))
	assert.True(t, trades[0].Amount.Equal(dec("1")))
	assert.True(t, trades[0].Commission.Equal(dec("1.500")))

	// Seller: base gone, 98.500 quote in, nothing locked.
	sellerBase := balanceOf(t, store, seller, "BTC")
	assert.True(t, sellerBase.Total.IsZero())
	assert.True(t, sellerBase.Locked.IsZero())
	sellerQuote := balanceOf(t, store, seller, "USD")
	assert.True(t, sellerQuote.Total.Equal(dec("98.500")))

	// Buyer: paid exactly the volume, owns the base, no refund.
	buyerQuote := balanceOf(t, store, buyer, "USD")
	assert.True(t, buyerQuote.Total.IsZero())
	assert.True(t, buyerQuote.Locked.IsZero())
	buyerBase := balanceOf(t, store, buyer, "BTC")
	assert.True(t, buyerBase.Total.Equal(dec("1")))
}

func TestSettlement_PriceImprovementRefund(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	seller := fundedUser(t, store, "BTC", "1")
	buyer := fundedUser(t, store, "USD", "105")

	_, _, err := svc.PlaceOrder(ctx, seller, "BTC-USD", models.Sell, dec("100"), dec("1"))
	require.NoError(t, err)

	// Limit 105 settles at the resting 100: 5.000 comes back to the buyer.
	_, matched, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("105"), dec("1"))
	require.NoError(t, err)
	require.True(t, matched)

	trades, err := store.RecentTrades(ctx, "BTC-USD", 1)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(dec("100")))

	buyerQuote := balanceOf(t, store, buyer, "USD")
	assert.True(t, buyerQuote.Total.Equal(dec("5.000")))
	assert.True(t, buyerQuote.Locked.IsZero())

	sellerQuote := balanceOf(t, store, seller, "USD")
	assert.True(t, sellerQuote.Total.Equal(dec("98.500")))
}

func TestSettlement_RestingBuyPriceWins(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	buyer := fundedUser(t, store, "USD", "105")
	seller := fundedUser(t, store, "BTC", "1")

	// The buy order rests first, so its 105 is the execution price when the
	// cheaper ask arrives.
	_, _, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("105"), dec("1"))
	require.NoError(t, err)

	_, matched, err := svc.PlaceOrder(ctx, seller, "BTC-USD", models.Sell, dec("100"), dec("1"))
	require.NoError(t, err)
	require.True(t, matched)

	trades, err := store.RecentTrades(ctx, "BTC-USD", 1)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(dec("105")))
	assert.True(t, trades[0].Commission.Equal(dec("1.575")))

	sellerQuote := balanceOf(t, store, seller, "USD")
	assert.True(t, sellerQuote.Total.Equal(dec("103.425")))

	// No refund: the buyer's lock equals the volume exactly.
	buyerQuote := balanceOf(t, store, buyer, "USD")
	assert.True(t, buyerQuote.Total.IsZero())
	assert.True(t, buyerQuote.Locked.IsZero())
}

func TestSettlement_ConservesValue(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	seller := fundedUser(t, store, "BTC", "2.5")
	buyer := fundedUser(t, store, "USD", "500")

	_, _, err := svc.PlaceOrder(ctx, seller, "BTC-USD", models.Sell, dec("123.456"), dec("2.5"))
	require.NoError(t, err)
	_, matched, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("130"), dec("2.5"))
	require.NoError(t, err)
	require.True(t, matched)

	trades, err := store.RecentTrades(ctx, "BTC-USD", 1)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	trade := trades[0]

	volume := models.RoundMoney(trade.Price.Mul(trade.Amount))

	// Base conservation: seller's loss is the buyer's gain.
	assert.True(t, balanceOf(t, store, seller, "BTC").Total.IsZero())
	assert.True(t, balanceOf(t, store, buyer, "BTC").Total.Equal(dec("2.5")))

	// Quote conservation: buyer's net spend equals seller proceeds plus the
	// commission.
	buyerSpent := dec("500").Sub(balanceOf(t, store, buyer, "USD").Total)
	sellerGained := balanceOf(t, store, seller, "USD").Total
	assert.True(t, buyerSpent.Equal(volume))
	assert.True(t, sellerGained.Add(trade.Commission).Equal(volume))
}

func TestMatchEvents_OnePerAccount(t *testing.T) {
	svc, store, publisher, prices := newTestService(t)
	ctx := context.Background()

	seller := fundedUser(t, store, "BTC", "1")
	buyer := fundedUser(t, store, "USD", "100")

	_, _, err := svc.PlaceOrder(ctx, seller, "BTC-USD", models.Sell, dec("100"), dec("1"))
	require.NoError(t, err)
	_, matched, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("100"), dec("1"))
	require.NoError(t, err)
	require.True(t, matched)

	events := publisher.all()
	require.Len(t, events, 2)

	bySide := make(map[models.OrderSide]int64)
	for _, e := range events {
		bySide[e.event.Side] = e.userId
		assert.Equal(t, "BTC-USD", e.event.Symbol)
		assert.True(t, e.event.Price.Equal(dec("100")))
		assert.True(t, e.event.Amount.Equal(dec("1")))
	}
	assert.Equal(t, buyer, bySide[models.Buy])
	assert.Equal(t, seller, bySide[models.Sell])

	last, err := prices.LastPrice(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, "100", last)
}

func TestLastPrice_MissBeforeAnyTrade(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	// A symbol without trades reports a miss, not a failure, so callers can
	// map it separately from a broken cache.
	_, err := svc.LastPrice(context.Background(), "BTC-USD")
	assert.ErrorIs(t, err, storage.ErrPriceNotFound)
}

func TestCancelOrder_BuyRefundsQuoteLock(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	buyer := fundedUser(t, store, "USD", "1000")
	order, _, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("100"), dec("2"))
	require.NoError(t, err)

	cancelled, err := svc.CancelOrder(ctx, buyer, order.Id)
	require.NoError(t, err)
	assert.Equal(t, models.Cancelled, cancelled.Status)
	assert.True(t, cancelled.RemainingAmount.IsZero())
	assert.True(t, cancelled.LockedQuote.IsZero())

	b := balanceOf(t, store, buyer, "USD")
	assert.True(t, b.Total.Equal(dec("1000")))
	assert.True(t, b.Locked.IsZero())
}

func TestCancelOrder_SellUnlocksBase(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	seller := fundedUser(t, store, "BTC", "3")
	order, _, err := svc.PlaceOrder(ctx, seller, "BTC-USD", models.Sell, dec("100"), dec("2"))
	require.NoError(t, err)

	_, err = svc.CancelOrder(ctx, seller, order.Id)
	require.NoError(t, err)

	// The asset stays in the total; only the lock comes off.
	b := balanceOf(t, store, seller, "BTC")
	assert.True(t, b.Total.Equal(dec("3")))
	assert.True(t, b.Locked.IsZero())
}

func TestCancelOrder_Idempotency(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	buyer := fundedUser(t, store, "USD", "1000")
	order, _, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("100"), dec("1"))
	require.NoError(t, err)

	_, err = svc.CancelOrder(ctx, buyer, order.Id)
	require.NoError(t, err)

	before := balanceOf(t, store, buyer, "USD")

	// Second cancel fails with the same error kind and moves nothing.
	_, err = svc.CancelOrder(ctx, buyer, order.Id)
	assert.ErrorIs(t, err, storage.ErrOrderNotOpen)

	after := balanceOf(t, store, buyer, "USD")
	assert.True(t, before.Total.Equal(after.Total))
	assert.True(t, before.Locked.Equal(after.Locked))
}

func TestCancelOrder_FilledFailsSameKind(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	seller := fundedUser(t, store, "BTC", "1")
	buyer := fundedUser(t, store, "USD", "100")

	sellOrder, _, err := svc.PlaceOrder(ctx, seller, "BTC-USD", models.Sell, dec("100"), dec("1"))
	require.NoError(t, err)
	_, matched, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("100"), dec("1"))
	require.NoError(t, err)
	require.True(t, matched)

	_, err = svc.CancelOrder(ctx, seller, sellOrder.Id)
	assert.ErrorIs(t, err, storage.ErrOrderNotOpen)
}

func TestCancelOrder_NotFound(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	buyer := fundedUser(t, store, "USD", "1000")

	_, err := svc.CancelOrder(context.Background(), buyer, uuid.New())
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
}

func TestConcurrentMatch_ExactlyOneWinner(t *testing.T) {
	svc, store, publisher, _ := newTestService(t)
	ctx := context.Background()

	seller := fundedUser(t, store, "BTC", "5")
	_, _, err := svc.PlaceOrder(ctx, seller, "BTC-USD", models.Sell, dec("100"), dec("5"))
	require.NoError(t, err)

	buyerA := fundedUser(t, store, "USD", "500")
	buyerB := fundedUser(t, store, "USD", "500")

	type result struct {
		matched bool
		err     error
	}
	var wg sync.WaitGroup
	results := make(chan result, 2)
	for _, buyer := range []int64{buyerA, buyerB} {
		wg.Add(1)
		go func(userId int64) {
			defer wg.Done()
			_, matched, err := svc.PlaceOrder(ctx, userId, "BTC-USD", models.Buy, dec("100"), dec("5"))
			results <- result{matched: matched, err: err}
		}(buyer)
	}
	wg.Wait()
	close(results)

	matchedCount := 0
	for r := range results {
		require.NoError(t, r.err)
		if r.matched {
			matchedCount++
		}
	}
	assert.Equal(t, 1, matchedCount)

	// The seller sold exactly once and one buy order rests open.
	sellerBase := balanceOf(t, store, seller, "BTC")
	assert.True(t, sellerBase.Total.IsZero())
	assert.True(t, sellerBase.Locked.IsZero())

	openOrders, err := store.OpenOrders(ctx, "BTC-USD")
	require.NoError(t, err)
	require.Len(t, openOrders, 1)
	assert.Equal(t, models.Buy, openOrders[0].Side)

	// One settlement, two events.
	assert.Len(t, publisher.all(), 2)
}

func TestMatchSweep(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	buyer := fundedUser(t, store, "USD", "1000")
	// Two bids rest with nothing to cross.
	_, matched, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("100"), dec("1"))
	require.NoError(t, err)
	require.False(t, matched)
	_, matched, err = svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("100"), dec("2"))
	require.NoError(t, err)
	require.False(t, matched)

	// An ask arrives but only one bid has the matching amount.
	seller := fundedUser(t, store, "BTC", "2")
	sellerOrder := models.Order{
		Id: uuid.New(), UserId: seller, Symbol: "BTC-USD", Side: models.Sell,
		Price: dec("100"), Amount: dec("2"), RemainingAmount: dec("2"),
		Status: models.Open, CreatedAt: time.Now(),
	}
	require.NoError(t, store.PlaceOrder(ctx, sellerOrder, "BTC", dec("2")))

	count, err := svc.MatchSweep(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	orders, err := svc.GetUserOrders(ctx, buyer, "", "", string(models.Open))
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.True(t, orders[0].Amount.Equal(dec("1")))
}

func TestGetUserOrders_Filters(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	buyer := fundedUser(t, store, "USD", "10000")
	_, _, err := svc.PlaceOrder(ctx, buyer, "BTC-USD", models.Buy, dec("100"), dec("1"))
	require.NoError(t, err)
	_, _, err = svc.PlaceOrder(ctx, buyer, "ETH-USD", models.Buy, dec("10"), dec("1"))
	require.NoError(t, err)

	all, err := svc.GetUserOrders(ctx, buyer, "", "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	btc, err := svc.GetUserOrders(ctx, buyer, "BTC-USD", "", "")
	require.NoError(t, err)
	require.Len(t, btc, 1)
	assert.Equal(t, "BTC-USD", btc[0].Symbol)

	sells, err := svc.GetUserOrders(ctx, buyer, "", string(models.Sell), "")
	require.NoError(t, err)
	assert.Empty(t, sells)
}
