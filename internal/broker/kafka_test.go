package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/config"
	"chatrelay/internal/logger"
	"chatrelay/pkg/models"
)

func TestKafkaConsumer_CloseBeforeConsume(t *testing.T) {
	consumer := NewKafkaConsumer(config.KafkaConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "relay",
	}, logger.NopLogger())

	assert.NoError(t, consumer.Close())
}

func TestKafkaConsumer_CloseUnblocksConsume(t *testing.T) {
	// Unreachable broker: Consume keeps retrying the fetch until the reader
	// is closed underneath it.
	consumer := NewKafkaConsumer(config.KafkaConfig{
		Brokers: []string{"localhost:1"},
		GroupID: "relay",
	}, logger.NopLogger())

	errCh := make(chan error, 1)
	go func() {
		errCh <- consumer.Consume(context.Background(), "chat-channel", func(context.Context, models.Envelope) error {
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		consumer.mu.Lock()
		defer consumer.mu.Unlock()
		return consumer.reader != nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, consumer.Close())

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Consume did not return after Close")
	}
}
