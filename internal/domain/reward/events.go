package reward

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// EventsChannel carries post-commit reward events for the notification
// collaborator. Publishing never blocks a ledger transaction: it runs after
// commit and a failure is only logged.
const EventsChannel = "rewards:events"

// Event is the payload published after a ledger write commits
type Event struct {
	Event         string          `json:"event"`
	UserID        uuid.UUID       `json:"user_id"`
	Type          TxType          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID uuid.UUID       `json:"transaction_id,omitempty"`
	TxHash        string          `json:"tx_hash,omitempty"`
}

// Publisher publishes reward events to redis. A nil client disables it.
type Publisher struct {
	redis *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{redis: rdb}
}

func (p *Publisher) Publish(ctx context.Context, ev Event) {
	if p == nil || p.redis == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode reward event")
		return
	}

	ctx2, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := p.redis.Publish(ctx2, EventsChannel, data).Err(); err != nil {
		log.Warn().Err(err).Str("channel", EventsChannel).Msg("Failed to publish reward event")
	}
}
