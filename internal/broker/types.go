package broker

import (
	"context"

	"chatrelay/pkg/models"
)

type HandlerFunc func(ctx context.Context, env models.Envelope) error

// Producer publishes envelopes to a named channel. Delivery is at-most-once:
// responsibility ends once the broker acknowledges the publish. There is no
// retry, no deduplication, and no ordering guarantee across subscribers.
type Producer interface {
	Publish(ctx context.Context, channel string, env models.Envelope) error
	Close() error
}

// Consumer delivers every envelope published on a channel to the handler.
// Consume blocks until ctx is cancelled or the subscription fails.
type Consumer interface {
	Consume(ctx context.Context, channel string, handler HandlerFunc) error
	Close() error
}
