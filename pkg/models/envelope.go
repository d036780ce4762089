package models

import "time"

// Envelope is the broadcast unit. One envelope exists per accepted
// submission; it is never mutated after stamping and never persisted.
type Envelope struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
