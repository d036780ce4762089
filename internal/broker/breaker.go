package broker

import (
	"context"

	"chatrelay/internal/config"
	"chatrelay/pkg/circuitbreaker"
	"chatrelay/pkg/models"
)

// CircuitBreakerProducer fails publishes fast while the broker is known to be
// down, instead of letting every request block on a dead connection.
type CircuitBreakerProducer struct {
	inner   Producer
	breaker *circuitbreaker.Wrapper
}

func NewCircuitBreakerProducer(inner Producer, cfg config.CircuitBreakerConfig) *CircuitBreakerProducer {
	breakerCfg := circuitbreaker.DefaultConfig("broker-publish")
	if cfg.MaxRequests > 0 {
		breakerCfg.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		breakerCfg.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		breakerCfg.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 {
		breakerCfg.FailureRatio = cfg.FailureRatio
	}
	if cfg.MinRequests > 0 {
		breakerCfg.MinRequests = cfg.MinRequests
	}

	return &CircuitBreakerProducer{
		inner:   inner,
		breaker: circuitbreaker.NewWrapper(breakerCfg),
	}
}

func (p *CircuitBreakerProducer) Publish(ctx context.Context, channel string, env models.Envelope) error {
	return p.breaker.ExecuteWithContext(ctx, func() error {
		return p.inner.Publish(ctx, channel, env)
	})
}

func (p *CircuitBreakerProducer) Close() error {
	return p.inner.Close()
}
