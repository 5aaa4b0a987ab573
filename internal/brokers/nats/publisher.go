package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"SpotExchange/internal/domain/models"

	"github.com/nats-io/nats.go"
)

// MatchSubjectPrefix is the per-user subject space for settlement events; the
// notifier consumes MatchSubjectPrefix + "*".
const MatchSubjectPrefix = "trades."

// Publisher pushes one match event per involved account onto JetStream after
// a settlement commits. Publishing is fire-and-forget: a broker failure is
// logged, never propagated into settlement.
type Publisher struct {
	js nats.JetStreamContext
}

func New(nc *nats.Conn) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("nats.New: %w", err)
	}
	return &Publisher{js: js}, nil
}

func (p *Publisher) PublishMatch(ctx context.Context, userId int64, event models.MatchEvent) error {
	const op = "nats.PublishMatch"
	log := slog.With("op", op)

	data, err := json.Marshal(event)
	if err != nil {
		log.Error("marshalling match event", "err", err, "trade_id", event.TradeId)
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	subject := MatchSubjectPrefix + strconv.FormatInt(userId, 10)
	if _, err := p.js.Publish(subject, data); err != nil {
		log.Error("publishing match event", "subject", subject, "err", err)
		return fmt.Errorf("%s: publish: %w", op, err)
	}

	log.Debug("match event published", "subject", subject, "trade_id", event.TradeId)
	return nil
}
