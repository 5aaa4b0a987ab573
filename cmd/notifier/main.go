// The notifier relays settlement events to users. It consumes the per-user
// match subjects and hands each event to a worker pool; delivery here is a
// structured log line, with the real push transport expected to hang off the
// same consumer.
package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	natsbroker "SpotExchange/internal/brokers/nats"
	"SpotExchange/internal/config"
	"SpotExchange/internal/domain/models"

	"github.com/nats-io/nats.go"
)

type userEvent struct {
	userId int64
	event  models.MatchEvent
}

func main() {
	cfg := config.MustLoad()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(log)

	nc, err := nats.Connect(cfg.NatsCfg.URL)
	if err != nil {
		log.Error("notifier nats.Connect err", "error", err)
		panic(err)
	}
	js, err := nc.JetStream()
	if err != nil {
		log.Error("notifier jetstream creating err", "error", err)
		panic(err)
	}

	updates := make(chan userEvent, 1024)
	var wg sync.WaitGroup
	workerCount := runtime.NumCPU()
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ue := range updates {
				notify(log, ue)
			}
		}()
	}

	const prefix = natsbroker.MatchSubjectPrefix
	_, err = js.Subscribe(prefix+"*", func(msg *nats.Msg) {
		if !strings.HasPrefix(msg.Subject, prefix) {
			return
		}
		userId, err := strconv.ParseInt(msg.Subject[len(prefix):], 10, 64)
		if err != nil {
			log.Error("invalid user subject", "subject", msg.Subject, "error", err)
			return
		}

		var event models.MatchEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Error("invalid match event", "subject", msg.Subject, "error", err)
			return
		}

		updates <- userEvent{userId: userId, event: event}
	}, nats.Durable("MATCH_NOTIFIER"))
	if err != nil {
		log.Error("notifier subscribe err", "error", err)
		panic(err)
	}

	log.Info("notifier started", "workers", workerCount)
	wg.Wait()
}

func notify(log *slog.Logger, ue userEvent) {
	log.Info("order matched",
		"user_id", ue.userId,
		"trade_id", ue.event.TradeId,
		"symbol", ue.event.Symbol,
		"side", ue.event.Side,
		"price", ue.event.Price,
		"amount", ue.event.Amount,
	)
}
