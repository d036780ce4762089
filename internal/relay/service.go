package relay

import (
	"context"
	"strconv"

	"chatrelay/internal/broker"
	"chatrelay/internal/logger"
	"chatrelay/pkg/errors"
	"chatrelay/pkg/logging"
	"chatrelay/pkg/metrics"
	"chatrelay/pkg/models"
)

// Service accepts validated submissions, stamps them into envelopes, and
// hands them to the broker. Fan-out to subscribers is entirely the broker's
// job; the service's responsibility ends at the publish acknowledgment.
type Service struct {
	producer broker.Producer
	stamper  *models.Stamper
	channel  string
	logger   logger.Logger
}

func NewService(producer broker.Producer, stamper *models.Stamper, channel string, log logger.Logger) (*Service, error) {
	if producer == nil {
		return nil, errors.ErrConfiguration.WithMessage("broker producer is not configured")
	}
	if channel == "" {
		return nil, errors.ErrConfiguration.WithMessage("broadcast channel is not configured")
	}

	return &Service{
		producer: producer,
		stamper:  stamper,
		channel:  channel,
		logger:   log,
	}, nil
}

// Send validates a submission, stamps exactly one envelope, and publishes it
// once. Stamping and publish initiation run back to back; nothing suspends
// between them.
func (s *Service) Send(ctx context.Context, userID, text string) (models.Envelope, error) {
	if err := ValidateSubmission(text, userID); err != nil {
		return models.Envelope{}, err
	}

	env := s.stamper.Stamp(userID, text)
	ctx = logging.WithMessageID(ctx, strconv.FormatInt(env.ID, 10))

	if err := s.producer.Publish(ctx, s.channel, env); err != nil {
		metrics.MessagesPublishedTotal.WithLabelValues(s.channel, "error").Inc()
		s.logger.ErrorwCtx(ctx, "Failed to publish envelope",
			"error", err,
			"channel", s.channel,
		)
		return models.Envelope{}, errors.Wrap(err, errors.ErrDeliveryFailed)
	}

	metrics.MessagesPublishedTotal.WithLabelValues(s.channel, "ok").Inc()
	s.logger.InfowCtx(ctx, "Envelope published",
		"channel", s.channel,
		"user_id", userID,
	)

	return env, nil
}

func (s *Service) Channel() string {
	return s.channel
}
