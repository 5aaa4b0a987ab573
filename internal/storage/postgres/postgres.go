package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"SpotExchange/internal/domain/models"
	"SpotExchange/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	uniqueViolation = "23505"
)

type Storage struct {
	db *pgxpool.Pool
}

func New(connString string) (*Storage, error) {
	const op = "postgres.New"
	log := slog.With("op", op)

	db, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		log.Error("Failed to connect to database", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := db.Ping(context.Background()); err != nil {
		log.Error("Failed to ping database", "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) CreateUser(ctx context.Context, email string, passHash []byte, createdAt time.Time) (int64, error) {
	const op = "postgres.CreateUser"
	log := slog.With("op", op)

	const queryCreateUser = "INSERT INTO users(email, pass_hash, created) VALUES ($1, $2, $3) RETURNING id"
	var userId int64
	err := s.db.QueryRow(ctx, queryCreateUser, email, passHash, createdAt).Scan(&userId)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			log.Error("User already exists", "email", email)
			return 0, storage.ErrUserAlreadyExists
		}
		log.Error("Failed to create user", "email", email, "err", err)
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return userId, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "postgres.GetUserByEmail"
	log := slog.With("op", op)

	const queryGetUser = `SELECT id, email, pass_hash, created FROM users WHERE email = $1`
	var user models.User
	err := s.db.QueryRow(ctx, queryGetUser, email).Scan(&user.Id, &user.Email, &user.PassHash, &user.Created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, storage.ErrUserNotFound
		}
		log.Error("Failed to get user", "email", email, "err", err)
		return user, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (s *Storage) GetUserById(ctx context.Context, id int64) (models.User, error) {
	const op = "postgres.GetUserById"
	log := slog.With("op", op)

	const queryGetUser = `SELECT id, email, pass_hash, created FROM users WHERE id = $1`
	var user models.User
	err := s.db.QueryRow(ctx, queryGetUser, id).Scan(&user.Id, &user.Email, &user.PassHash, &user.Created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, storage.ErrUserNotFound
		}
		log.Error("Failed to get user", "id", id, "err", err)
		return user, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Deposit credits amount to the user's ledger row for the asset, creating
// the row on first use.
func (s *Storage) Deposit(ctx context.Context, userId int64, asset string, amount decimal.Decimal) (decimal.Decimal, error) {
	const op = "postgres.Deposit"
	log := slog.With("op", op)

	const queryDeposit = `
        INSERT INTO balances(user_id, asset, total, locked)
        VALUES ($1, $2, $3, 0)
        ON CONFLICT (user_id, asset) DO UPDATE SET total = balances.total + $3
        RETURNING total`

	var total decimal.Decimal
	err := s.db.QueryRow(ctx, queryDeposit, userId, asset, models.RoundMoney(amount)).Scan(&total)
	if err != nil {
		log.Error("Failed to deposit", "user_id", userId, "asset", asset, "err", err)
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("Deposit applied", "user_id", userId, "asset", asset, "total", total)
	return total, nil
}

func (s *Storage) Balances(ctx context.Context, userId int64) ([]models.Balance, error) {
	const op = "postgres.Balances"
	log := slog.With("op", op)

	const queryBalances = `SELECT user_id, asset, total, locked FROM balances WHERE user_id = $1 ORDER BY asset`
	rows, err := s.db.Query(ctx, queryBalances, userId)
	if err != nil {
		log.Error("Failed to get balances", "user_id", userId, "err", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var balances []models.Balance
	for rows.Next() {
		var b models.Balance
		if err := rows.Scan(&b.UserId, &b.Asset, &b.Total, &b.Locked); err != nil {
			log.Error("Failed to scan balance", "user_id", userId, "err", err)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		balances = append(balances, b)
	}
	return balances, nil
}

// Reserve moves amount from available into locked. The guard lives in the
// UPDATE predicate, so a concurrent reservation can never oversell the row.
func (s *Storage) Reserve(ctx context.Context, userId int64, asset string, amount decimal.Decimal) error {
	const op = "postgres.Reserve"

	const queryReserve = `
        UPDATE balances SET locked = locked + $3
        WHERE user_id = $1 AND asset = $2 AND total - locked >= $3`

	tag, err := s.db.Exec(ctx, queryReserve, userId, asset, amount)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrInsufficientFunds
	}
	return nil
}

// Release returns previously reserved amount to availability.
func (s *Storage) Release(ctx context.Context, userId int64, asset string, amount decimal.Decimal) error {
	const op = "postgres.Release"

	const queryRelease = `
        UPDATE balances SET locked = locked - $3
        WHERE user_id = $1 AND asset = $2 AND locked >= $3`

	tag, err := s.db.Exec(ctx, queryRelease, userId, asset, amount)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrLockUnderflow
	}
	return nil
}
