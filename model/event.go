package model

import (
	"time"
)

// Event is the part of an event the inventory manager reads: ownership and
// start time.
type Event struct {
	EventID     int64     `json:"event_id,omitempty"`
	Title       string    `json:"title,omitempty"`
	StartsAt    time.Time `json:"starts_at,omitempty"`
	OrganizerID int64     `json:"organizer_id,omitempty"`
}

// Started reports whether the event is underway or over at now.
func (e *Event) Started(now time.Time) bool {
	return !now.Before(e.StartsAt)
}
