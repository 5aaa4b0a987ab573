package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"SpotExchange/internal/domain/models"
	"SpotExchange/internal/storage"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type UserService struct {
	log            *slog.Logger
	manager        Manager
	balanceManager BalanceManager
}

type Manager interface {
	CreateUser(ctx context.Context, email string, passHash []byte, createdAt time.Time) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserById(ctx context.Context, id int64) (models.User, error)
}

type BalanceManager interface {
	Deposit(ctx context.Context, userId int64, asset string, amount decimal.Decimal) (decimal.Decimal, error)
	Balances(ctx context.Context, userId int64) ([]models.Balance, error)
}

func New(log *slog.Logger, manager Manager, balanceManager BalanceManager) *UserService {
	return &UserService{
		log:            log,
		manager:        manager,
		balanceManager: balanceManager,
	}
}

func (us *UserService) RegisterNewUser(ctx context.Context, email string, password string) (int64, error) {
	const op = "user.RegisterNewUser"

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		us.log.Error("Failed to generate password hash", "err", err)
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := us.manager.CreateUser(ctx, email, passHash, time.Now())
	if err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			us.log.Error("Failed to register already exists user", "email", email)
			return 0, ErrUserAlreadyExists
		}
		us.log.Error("Failed to register user", "email", email, "err", err)
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (us *UserService) Login(ctx context.Context, email, password string) (int64, string, error) {
	const op = "user.Login"

	user, err := us.manager.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			us.log.Warn("user not found", "email", email)
			return 0, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		us.log.Error("Failed to get user by email", "email", email, "err", err)
		return 0, "", fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		us.log.Warn("invalid credentials", "email", email)
		return 0, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	return user.Id, user.Email, nil
}

// Deposit credits amount of one asset to the user, quote currency included.
func (us *UserService) Deposit(ctx context.Context, id int64, asset string, amount decimal.Decimal) (decimal.Decimal, error) {
	const op = "user.Deposit"

	if amount.LessThanOrEqual(decimal.Zero) {
		us.log.Error("Deposit amount below zero", "id", id, "amount", amount)
		return decimal.Zero, ErrInvalidAmount
	}

	total, err := us.balanceManager.Deposit(ctx, id, asset, amount)
	if err != nil {
		us.log.Error("Failed to deposit", "id", id, "asset", asset, "err", err)
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	return total, nil
}

func (us *UserService) Balances(ctx context.Context, id int64) ([]models.Balance, error) {
	const op = "user.Balances"

	balances, err := us.balanceManager.Balances(ctx, id)
	if err != nil {
		us.log.Error("Failed to get balances", "id", id, "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return balances, nil
}
