package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"chatrelay/internal/config"
	"chatrelay/internal/logger"
	"chatrelay/pkg/models"
)

func newRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

type RedisProducer struct {
	client *redis.Client
	logger logger.Logger
}

func NewRedisProducer(cfg config.RedisConfig, log logger.Logger) *RedisProducer {
	return &RedisProducer{
		client: newRedisClient(cfg),
		logger: log,
	}
}

func (p *RedisProducer) Publish(ctx context.Context, channel string, env models.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := p.client.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis channel %s: %w", channel, err)
	}

	return nil
}

func (p *RedisProducer) Close() error {
	return p.client.Close()
}

type RedisConsumer struct {
	client *redis.Client
	logger logger.Logger
}

func NewRedisConsumer(cfg config.RedisConfig, log logger.Logger) *RedisConsumer {
	return &RedisConsumer{
		client: newRedisClient(cfg),
		logger: log,
	}
}

func (c *RedisConsumer) Consume(ctx context.Context, channel string, handler HandlerFunc) error {
	sub := c.client.Subscribe(ctx, channel)
	defer sub.Close()

	// Fail fast if the subscription could not be established.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to redis channel %s: %w", channel, err)
	}

	c.logger.InfowCtx(ctx, "Subscribed to channel", "channel", channel)

	msgCh := sub.Channel()
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return fmt.Errorf("redis subscription closed for channel %s", channel)
			}

			var env models.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				c.logger.ErrorwCtx(ctx, "Failed to unmarshal envelope",
					"error", err,
					"channel", channel,
				)
				continue
			}

			if err := handler(ctx, env); err != nil {
				c.logger.ErrorwCtx(ctx, "Handler failed for envelope",
					"error", err,
					"channel", channel,
					"message_id", env.ID,
				)
			}

		case <-ctx.Done():
			c.logger.InfowCtx(ctx, "Stopped consuming",
				"channel", channel,
				"reason", "context canceled",
			)
			return ctx.Err()
		}
	}
}

func (c *RedisConsumer) Close() error {
	return c.client.Close()
}
