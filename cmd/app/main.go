package main

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"

	natsbroker "SpotExchange/internal/brokers/nats"
	"SpotExchange/internal/config"
	"SpotExchange/internal/services/trading"
	"SpotExchange/internal/services/user"
	"SpotExchange/internal/storage/memstore"
	"SpotExchange/internal/storage/postgres"
	"SpotExchange/internal/storage/redis"
	handler "SpotExchange/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
)

const (
	envLocal = "local"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting application",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.HTTPPort),
	)

	var (
		orderStore   trading.OrderStorage
		userStore    user.Manager
		balanceStore user.BalanceManager
	)
	if cfg.Env == envLocal {
		log.Info("using in-memory storage")
		mem := memstore.New()
		orderStore, userStore, balanceStore = mem, mem, mem
	} else {
		log.Info("connecting to postgres", "host", cfg.PostgresCfg.Host)
		pg, err := postgres.New(cfg.PostgresCfg.ConnString())
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			panic(err)
		}
		orderStore, userStore, balanceStore = pg, pg, pg
	}

	redisClient := redis.New(cfg.RedisCfg)

	nc, err := nats.Connect(cfg.NatsCfg.URL)
	if err != nil {
		log.Error("failed to connect to nats", "error", err)
		panic(err)
	}
	log.Info("connected to nats broker", "url", cfg.NatsCfg.URL)
	js, err := nc.JetStream()
	if err != nil {
		log.Error("failed to get jetstream context", "error", err)
		panic(err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     "TRADES-STREAM",
		Subjects: []string{natsbroker.MatchSubjectPrefix + "*"},
	})
	if err != nil {
		log.Error("failed to add trades stream", "error", err)
		panic(err)
	}
	publisher, err := natsbroker.New(nc)
	if err != nil {
		log.Error("failed to create publisher", "error", err)
		panic(err)
	}

	commission, err := decimal.NewFromString(cfg.TradingCfg.CommissionRate)
	if err != nil {
		log.Error("invalid commission rate", "rate", cfg.TradingCfg.CommissionRate, "error", err)
		panic(err)
	}

	validate := validator.New()

	userService := user.New(log, userStore, balanceStore)
	tradingService := trading.New(log, orderStore, publisher, redisClient, commission, cfg.TradingCfg.TradeLimit)

	userHandler := handler.NewUserHandler(log, userService, validate)
	tradingHandler := handler.NewTradingHandler(log, tradingService, validate, cfg.TradingCfg.DefaultSymbol)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Mount("/user", userHandler.Routes())
	r.Mount("/trading", tradingHandler.Routes())

	port := ":" + strconv.Itoa(cfg.HTTPPort)
	log.Info("Starting server on " + port)
	if err := http.ListenAndServe(port, r); err != nil {
		log.Error("Server failed", "error", err)
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(
				os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(
				os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	slog.SetDefault(log)
	return log
}
