package broker

import (
	"fmt"

	"chatrelay/internal/config"
	"chatrelay/internal/logger"
)

func NewProducer(cfg config.BrokerConfig, log logger.Logger) (Producer, error) {
	var producer Producer

	switch cfg.Type {
	case "redis":
		producer = NewRedisProducer(cfg.Redis, log)
	case "kafka":
		producer = NewKafkaProducer(cfg.Kafka, log)
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}

	if cfg.CircuitBreaker.Enabled {
		producer = NewCircuitBreakerProducer(producer, cfg.CircuitBreaker)
	}

	return producer, nil
}

func NewConsumer(cfg config.BrokerConfig, log logger.Logger) (Consumer, error) {
	switch cfg.Type {
	case "redis":
		return NewRedisConsumer(cfg.Redis, log), nil
	case "kafka":
		return NewKafkaConsumer(cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}
