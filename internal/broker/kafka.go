package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"chatrelay/internal/config"
	"chatrelay/internal/constants"
	"chatrelay/internal/logger"
	"chatrelay/pkg/models"
)

type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return &KafkaProducer{writer: w, logger: log}
}

func (p *KafkaProducer) Publish(ctx context.Context, channel string, env models.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic: channel,
			Key:   []byte(strconv.FormatInt(env.ID, 10)),
			Value: body,
			Time:  time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type KafkaConsumer struct {
	cfg    config.KafkaConfig
	logger logger.Logger

	// mu guards reader, which Consume assigns while Close may run on a
	// shutdown goroutine.
	mu     sync.Mutex
	reader *kafka.Reader
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		cfg:    cfg,
		logger: log,
	}
}

func (c *KafkaConsumer) Consume(ctx context.Context, channel string, handler HandlerFunc) error {
	c.logger.Infow("Creating Kafka reader",
		"topic", channel,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
	)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    channel,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	c.mu.Lock()
	c.reader = reader
	c.mu.Unlock()

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.InfowCtx(ctx, "Stopped consuming",
					"topic", channel,
					"reason", "context canceled",
				)
				return ctx.Err()
			}
			return fmt.Errorf("failed to fetch kafka message: %w", err)
		}

		var env models.Envelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			c.logger.ErrorwCtx(ctx, "Failed to unmarshal envelope",
				"error", err,
				"topic", channel,
			)
			_ = reader.CommitMessages(ctx, m)
			continue
		}

		// At-most-once: commit regardless of handler outcome; a failed
		// fan-out is not replayed.
		if err := handler(ctx, env); err != nil {
			c.logger.ErrorwCtx(ctx, "Handler failed for envelope",
				"error", err,
				"topic", channel,
				"message_id", env.ID,
			)
		}

		if err := reader.CommitMessages(ctx, m); err != nil {
			c.logger.ErrorwCtx(ctx, "Failed to commit message",
				"error", err,
				"topic", channel,
			)
		}
	}
}

func (c *KafkaConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
