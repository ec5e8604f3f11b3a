package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultRelayChannel = "chord:events"

// RedisRelay shares events between server nodes over Redis pub/sub. Every
// node publishes to the relay and delivers what it receives to its own hub.
type RedisRelay struct {
	rdb     *redis.Client
	hub     *Hub
	channel string
	log     zerolog.Logger
}

type relayEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func NewRedisRelay(rdb *redis.Client, hub *Hub, logger zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		rdb:     rdb,
		hub:     hub,
		channel: defaultRelayChannel,
		log:     logger.With().Str("component", "relay").Logger(),
	}
}

func (r *RedisRelay) Publish(ctx context.Context, name string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(relayEnvelope{Event: name, Payload: raw})
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("relay publish: %w", err)
	}
	return nil
}

// Run forwards relayed events to the local hub until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("relay subscribe: %w", err)
	}
	r.log.Info().Str("channel", r.channel).Msg("relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env relayEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.log.Warn().Err(err).Msg("dropping malformed relay message")
				continue
			}
			if err := r.hub.Publish(ctx, env.Event, env.Payload); err != nil {
				r.log.Warn().Err(err).Str("event", env.Event).Msg("local delivery failed")
			}
		}
	}
}
