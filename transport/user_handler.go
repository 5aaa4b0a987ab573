package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"SpotExchange/internal/domain/models"
	"SpotExchange/internal/domain/models/transport"
	"SpotExchange/internal/services/user"
	"SpotExchange/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type UserHandler struct {
	log         *slog.Logger
	userService userService
	validate    *validator.Validate
}

type userService interface {
	RegisterNewUser(ctx context.Context, email string, password string) (int64, error)
	Login(ctx context.Context, email, password string) (int64, string, error)
	Deposit(ctx context.Context, id int64, asset string, amount decimal.Decimal) (decimal.Decimal, error)
	Balances(ctx context.Context, id int64) ([]models.Balance, error)
}

func NewUserHandler(log *slog.Logger, userService userService, validate *validator.Validate) *UserHandler {
	return &UserHandler{
		log:         log,
		userService: userService,
		validate:    validate,
	}
}

func (h *UserHandler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Route("/api/user", func(router chi.Router) {
		router.Post("/register", h.PostRegister)
		router.Post("/login", h.PostLogin)
		router.Post("/deposit", h.PostDeposit)
		router.Post("/balances", h.PostBalances)
	})

	return router
}

func (h *UserHandler) PostRegister(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req transport.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("Failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.log.Error("Validation failed", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid registration parameters")
		return
	}

	id, err := h.userService.RegisterNewUser(r.Context(), req.Email, req.Password)
	if err != nil {
		h.log.Error("Failed to register user", "error", err, "email", req.Email)

		if errors.Is(err, user.ErrUserAlreadyExists) {
			writeError(w, http.StatusConflict, "User already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(transport.RegisterResponse{Id: id})
}

func (h *UserHandler) PostLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req transport.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("Failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.log.Error("Validation failed", "error", err)
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	id, email, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.log.Error("Failed to login", "error", err, "email", req.Email)

		if errors.Is(err, user.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to login")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(transport.LoginResponse{Id: id, Email: email})
}

func (h *UserHandler) PostDeposit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req transport.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("Failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.log.Error("Validation failed", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid deposit parameters")
		return
	}

	total, err := h.userService.Deposit(r.Context(), req.UserID, req.Asset, req.Amount)
	if err != nil {
		h.log.Error("Failed to deposit", "error", err, "userId", req.UserID)

		switch {
		case errors.Is(err, user.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "Amount must be positive")
		case errors.Is(err, storage.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to deposit")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(transport.BalanceView{
		Asset: req.Asset,
		Total: total,
	})
}

func (h *UserHandler) PostBalances(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req transport.BalancesRequest
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

	balances, err := h.userService.Balances(r.Context(), req.UserID)
	if err != nil {
		h.log.Error("Failed to get balances", "error", err, "userId", req.UserID)
		writeError(w, http.StatusInternalServerError, "Failed to get balances")
		return
	}

	views := make([]transport.BalanceView, 0, len(balances))
	for _, b := range balances {
		views = append(views, transport.BalanceView{
			Asset:     b.Asset,
			Total:     b.Total,
			Locked:    b.Locked,
			Available: b.Available(),
		})
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(transport.BalancesResponse{Balances: views})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(transport.ErrorResponse{Error: msg})
}
