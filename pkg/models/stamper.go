package models

import (
	"sync"

	"github.com/jonboulle/clockwork"
)

// Stamper assigns ids and timestamps to envelopes from a single clock read.
// Ids are the clock's millisecond reading and are clamped so they never
// decrease within one instance; uniqueness under concurrent submissions in
// the same millisecond is best-effort.
type Stamper struct {
	clock clockwork.Clock

	mu     sync.Mutex
	lastID int64
}

func NewStamper(clock clockwork.Clock) *Stamper {
	return &Stamper{clock: clock}
}

func (s *Stamper) Stamp(userID, text string) Envelope {
	now := s.clock.Now().UTC()
	id := now.UnixMilli()

	s.mu.Lock()
	if id < s.lastID {
		id = s.lastID
	}
	s.lastID = id
	s.mu.Unlock()

	return Envelope{
		ID:        id,
		UserID:    userID,
		Text:      text,
		Timestamp: now,
	}
}
