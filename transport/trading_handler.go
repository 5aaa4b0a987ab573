package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"SpotExchange/internal/domain/models"
	"SpotExchange/internal/domain/models/transport"
	"SpotExchange/internal/services/trading"
	"SpotExchange/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TradingHandler struct {
	log            *slog.Logger
	tradingService tradingService
	validate       *validator.Validate
	defaultSymbol  string
}

type tradingService interface {
	PlaceOrder(ctx context.Context, userId int64, symbol string, side models.OrderSide,
		price, amount decimal.Decimal) (models.Order, bool, error)
	CancelOrder(ctx context.Context, userId int64, orderId uuid.UUID) (models.Order, error)
	MatchSweep(ctx context.Context, userId int64) (int, error)
	GetUserOrders(ctx context.Context, userId int64, symbol, side, status string) ([]models.Order, error)
	ListOpenOrders(ctx context.Context, symbol string) ([]models.Order, error)
	ListRecentTrades(ctx context.Context, symbol string, limit int) ([]models.Trade, error)
	LastPrice(ctx context.Context, symbol string) (string, error)
}

func NewTradingHandler(log *slog.Logger, tradingService tradingService, validate *validator.Validate,
	defaultSymbol string) *TradingHandler {
	return &TradingHandler{
		log:            log,
		tradingService: tradingService,
		validate:       validate,
		defaultSymbol:  defaultSymbol,
	}
}

func (h *TradingHandler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Route("/api/trading", func(router chi.Router) {
		router.Post("/orders", h.PostPlaceOrder)
		router.Post("/orders/cancel", h.PostCancelOrder)
		router.Post("/orders/list", h.PostUserOrders)
		router.Post("/orders/match", h.PostMatchSweep)
		router.Get("/orderbook", h.GetOrderbook)
		router.Get("/trades", h.GetTrades)
		router.Get("/ticker", h.GetTicker)
	})

	return router
}

func (h *TradingHandler) PostPlaceOrder(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req transport.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("Failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.log.Error("Validation failed", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid order parameters")
		return
	}

	order, matched, err := h.tradingService.PlaceOrder(r.Context(), req.UserID, req.Symbol, req.Side, req.Price, req.Amount)
	if err != nil {
		h.log.Error("Failed to place order", "error", err, "userId", req.UserID)

		switch {
		case errors.Is(err, trading.ErrInvalidSymbol):
			writeError(w, http.StatusBadRequest, "Invalid symbol")
		case errors.Is(err, trading.ErrInvalidSide):
			writeError(w, http.StatusBadRequest, "Side must be buy or sell")
		case errors.Is(err, trading.ErrInvalidPrice):
			writeError(w, http.StatusBadRequest, "Price must be positive")
		case errors.Is(err, trading.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "Amount must be positive")
		case errors.Is(err, storage.ErrInsufficientFunds):
			writeError(w, http.StatusBadRequest, "Insufficient balance")
		case errors.Is(err, storage.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to place order")
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(transport.PlaceOrderResponse{
		Order:   transport.NewOrderView(order),
		Matched: matched,
	})
}

func (h *TradingHandler) PostCancelOrder(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req transport.CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("Failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.log.Error("Validation failed", "error", err)
		writeError(w, http.StatusBadRequest, "Order ID and user ID are required")
		return
	}

	order, err := h.tradingService.CancelOrder(r.Context(), req.UserID, req.OrderID)
	if err != nil {
		h.log.Error("Failed to cancel order", "error", err, "orderId", req.OrderID)

		switch {
		case errors.Is(err, storage.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, storage.ErrOrderNotOpen):
			writeError(w, http.StatusConflict, "Order is not open")
		default:
			// Consistency aborts stay generic to the caller.
			writeError(w, http.StatusInternalServerError, "Failed to cancel order")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(transport.CancelOrderResponse{Order: transport.NewOrderView(order)})
}

func (h *TradingHandler) PostUserOrders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req transport.GetOrdersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("Failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.log.Error("Validation failed", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	orders, err := h.tradingService.GetUserOrders(r.Context(), req.UserID, req.Symbol, req.Side, req.Status)
	if err != nil {
		h.log.Error("Failed to get orders", "error", err, "userId", req.UserID)
		writeError(w, http.StatusInternalServerError, "Failed to get orders")
		return
	}

	views := make([]transport.OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, transport.NewOrderView(order))
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(transport.GetOrdersResponse{Orders: views})
}

func (h *TradingHandler) PostMatchSweep(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req transport.MatchSweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("Failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.log.Error("Validation failed", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	matched, err := h.tradingService.MatchSweep(r.Context(), req.UserID)
	if err != nil {
		h.log.Error("Failed to match orders", "error", err, "userId", req.UserID)
		writeError(w, http.StatusInternalServerError, "Failed to match orders")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(transport.MatchSweepResponse{Matched: matched})
}

// GetOrderbook splits a symbol's open orders into bids (price-descending)
// and asks (price-ascending) with cumulative totals.
func (h *TradingHandler) GetOrderbook(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	symbol := h.symbolParam(r)
	orders, err := h.tradingService.ListOpenOrders(r.Context(), symbol)
	if err != nil {
		h.log.Error("Failed to get orderbook", "error", err, "symbol", symbol)
		writeError(w, http.StatusInternalServerError, "Failed to get orderbook")
		return
	}

	bids := make([]transport.BookLevel, 0)
	asks := make([]transport.BookLevel, 0)
	cumulativeBid := decimal.Zero
	for _, order := range orders {
		if order.Side == models.Buy {
			cumulativeBid = cumulativeBid.Add(order.RemainingAmount)
			bids = append(bids, transport.BookLevel{
				Price:  order.Price,
				Amount: order.RemainingAmount,
				Total:  cumulativeBid,
			})
		} else {
			asks = append(asks, transport.BookLevel{
				Price:  order.Price,
				Amount: order.RemainingAmount,
			})
		}
	}

	// Orders arrive price-descending; asks display best (lowest) first.
	cumulativeAsk := decimal.Zero
	for i, j := 0, len(asks)-1; i < j; i, j = i+1, j-1 {
		asks[i], asks[j] = asks[j], asks[i]
	}
	for i := range asks {
		cumulativeAsk = cumulativeAsk.Add(asks[i].Amount)
		asks[i].Total = cumulativeAsk
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(transport.OrderbookResponse{
		Symbol: symbol,
		Bids:   bids,
		Asks:   asks,
	})
}

func (h *TradingHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	symbol := h.symbolParam(r)
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	trades, err := h.tradingService.ListRecentTrades(r.Context(), symbol, limit)
	if err != nil {
		h.log.Error("Failed to get trades", "error", err, "symbol", symbol)
		writeError(w, http.StatusInternalServerError, "Failed to get trades")
		return
	}

	views := make([]transport.TradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, transport.TradeView{
			Id:         t.Id,
			Symbol:     t.Symbol,
			Price:      t.Price,
			Amount:     t.Amount,
			Commission: t.Commission,
			CreatedAt:  t.CreatedAt,
		})
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(transport.TradesResponse{Symbol: symbol, Trades: views})
}

func (h *TradingHandler) GetTicker(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	symbol := h.symbolParam(r)
	price, err := h.tradingService.LastPrice(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, storage.ErrPriceNotFound) {
			writeError(w, http.StatusNotFound, "No trades yet for symbol")
			return
		}
		h.log.Error("Failed to get last price", "error", err, "symbol", symbol)
		writeError(w, http.StatusInternalServerError, "Failed to get ticker")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(transport.TickerResponse{Symbol: symbol, LastPrice: price})
}

func (h *TradingHandler) symbolParam(r *http.Request) string {
	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		return symbol
	}
	return h.defaultSymbol
}
