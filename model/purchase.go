package model

import (
	"time"
)

const (
	PurchaseActive    = "Active"
	PurchaseCancelled = "Cancelled"
)

// PurchaseState tracks a purchase attempt through the commit sequence.
type PurchaseState string

const (
	PurchaseRequested  PurchaseState = "REQUESTED"
	PurchaseReserved   PurchaseState = "RESERVED"
	PurchaseCommitted  PurchaseState = "COMMITTED"
	PurchaseFailed     PurchaseState = "FAILED"
	PurchaseRolledBack PurchaseState = "ROLLED_BACK"
)

type Purchase struct {
	PurchaseID   int64      `json:"purchase_id,omitempty"`
	UserID       int64      `json:"user_id,omitempty"`
	TicketTypeID int64      `json:"ticket_type_id,omitempty"`
	Quantity     int        `json:"quantity"`
	PurchaseDate time.Time  `json:"purchase_date"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}

// PurchaseDetail is a purchase joined with its ticket type and event.
type PurchaseDetail struct {
	Purchase
	EventID        int64     `json:"event_id,omitempty"`
	EventTitle     string    `json:"event_title,omitempty"`
	EventDate      time.Time `json:"event_date"`
	TicketTypeName string    `json:"ticket_type,omitempty"`
	Price          float64   `json:"price"`
	TotalPrice     float64   `json:"total_price"`
	Status         string    `json:"status,omitempty"`
}

// Fill derives TotalPrice and Status from the joined columns.
func (p *PurchaseDetail) Fill() {
	p.TotalPrice = p.Price * float64(p.Quantity)
	p.Status = PurchaseActive
	if p.CancelledAt != nil {
		p.Status = PurchaseCancelled
	}
}

// Receipt is returned for a committed purchase.
type Receipt struct {
	PurchaseID   int64   `json:"purchase_id"`
	TicketTypeID int64   `json:"ticket_type_id"`
	Quantity     int     `json:"quantity"`
	TotalPrice   float64 `json:"total_price"`
	Replayed     bool    `json:"replayed,omitempty"`
}
