package model

import (
	"time"
)

// TicketType is a priced class of tickets for an event. Capacity is the
// total ever offered; Quantity is what remains after committed purchases.
type TicketType struct {
	TicketTypeID int64      `json:"ticket_type_id,omitempty"`
	EventID      int64      `json:"event_id,omitempty"`
	Name         string     `json:"name,omitempty"`
	Price        float64    `json:"price"`
	Capacity     int        `json:"capacity"`
	Quantity     int        `json:"quantity"`
	CreatedDate  *time.Time `json:"created_date,omitempty"`
}

// Sold is the number of tickets currently held by purchases.
func (t *TicketType) Sold() int {
	return t.Capacity - t.Quantity
}

type Reservation struct {
	ReservationID int64     `json:"reservation_id,omitempty"`
	TicketTypeID  int64     `json:"ticket_type_id,omitempty"`
	UserID        int64     `json:"user_id,omitempty"`
	Quantity      int       `json:"quantity"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the hold no longer blocks inventory at now.
func (r *Reservation) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

type Availability struct {
	TicketTypeID int64 `json:"ticket_type_id"`
	Capacity     int   `json:"capacity"`
	Sold         int   `json:"sold"`
	Reserved     int   `json:"reserved"`
	Available    int   `json:"available"`
}
