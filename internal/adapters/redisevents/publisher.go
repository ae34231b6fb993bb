// Package redisevents publishes mission events to a Redis channel. The
// notification dispatchers (email, Telegram) subscribe to this channel from
// their own processes.
package redisevents

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/events"
)

type Publisher struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

func NewPublisher(client *redis.Client, channel string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{client: client, channel: channel, log: log}
}

// Publish sends the event as JSON. Delivery is best-effort: marshaling or
// Redis failures are logged and swallowed so a broker outage never blocks a
// mission transition.
func (p *Publisher) Publish(ctx context.Context, ev events.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("marshal mission event",
			zap.String("type", string(ev.Type)),
			zap.Error(err),
		)
		return
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		p.log.Warn("publish mission event",
			zap.String("type", string(ev.Type)),
			zap.String("channel", p.channel),
			zap.Error(err),
		)
	}
}
