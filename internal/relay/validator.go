package relay

import (
	"chatrelay/pkg/errors"
	"chatrelay/pkg/metrics"
)

// ValidateSubmission gates envelope creation. A rejected submission has no
// side effects: no envelope is stamped and nothing reaches the broker.
func ValidateSubmission(text, userID string) error {
	if text == "" || userID == "" {
		metrics.MessagesRejectedTotal.WithLabelValues("missing_fields").Inc()
		return errors.ErrInvalidInput.WithMessage("Message and userId are required")
	}
	return nil
}
