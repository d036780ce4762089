package socket

import (
	"time"

	"chatrelay/pkg/models"
)

// InboundEvent is the client-to-server message event.
type InboundEvent struct {
	Text string `json:"text"`
}

// OutboundEvent is the server-to-all-clients message event. The sender
// reference travels as "user" on the socket wire format.
type OutboundEvent struct {
	ID        int64     `json:"id"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func NewOutboundEvent(env models.Envelope) OutboundEvent {
	return OutboundEvent{
		ID:        env.ID,
		User:      env.UserID,
		Text:      env.Text,
		Timestamp: env.Timestamp,
	}
}
