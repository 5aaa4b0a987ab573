package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"SpotExchange/internal/config"
	"SpotExchange/internal/storage"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const prefix = "exchange:ticker:last"

const lastPriceTTL = 24 * time.Hour

// Redis caches the last execution price per symbol for ticker display. It is
// written after each settlement commits; losing it never affects custody.
type Redis struct {
	client *redis.Client
}

func New(redisConfig config.RedisConfig) *Redis {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Host + ":" + strconv.Itoa(redisConfig.Port),
		Password: redisConfig.Password,
		DB:       redisConfig.Db,
	})

	return &Redis{
		client: redisClient,
	}
}

func (s *Redis) SaveLastPrice(ctx context.Context, symbol string, price decimal.Decimal) error {
	log := slog.With("method", "SaveLastPrice")

	key := prefix + ":" + symbol
	if err := s.client.Set(ctx, key, price.String(), lastPriceTTL).Err(); err != nil {
		log.Error("failed to save last price", "symbol", symbol, "err", err)
		return fmt.Errorf("failed to save last price: %w", err)
	}

	log.Debug("saved last price", "symbol", symbol, "price", price)
	return nil
}

func (s *Redis) LastPrice(ctx context.Context, symbol string) (string, error) {
	log := slog.With("method", "LastPrice")

	price, err := s.client.Get(ctx, prefix+":"+symbol).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrPriceNotFound
		}
		log.Error("failed to get last price", "symbol", symbol, "err", err)
		return "", fmt.Errorf("failed to get last price: %w", err)
	}
	return price, nil
}
