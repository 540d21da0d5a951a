// Package notify delivers purchase confirmations. Delivery happens after the
// purchase commits; failures are reported to the caller but never undo it.
package notify

import (
	"context"
	"fmt"
	"time"

	"ticketing-backend/logger"
)

// Confirmation describes a committed purchase.
type Confirmation struct {
	PurchaseID  int64     `json:"purchase_id"`
	UserID      int64     `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	Username    string    `json:"username,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	EventID     int64     `json:"event_id"`
	EventTitle  string    `json:"event_title"`
	TicketType  string    `json:"ticket_type"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	TotalPrice  float64   `json:"total_price"`
	PurchasedAt time.Time `json:"purchased_at"`
}

func (c Confirmation) subject() string {
	return fmt.Sprintf("Your tickets for %s", c.EventTitle)
}

func (c Confirmation) text() string {
	name := c.Username
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(
		"Hi %s,\n\nYour purchase #%d is confirmed: %d x %s for %s.\nTotal paid: %.2f\n",
		name, c.PurchaseID, c.Quantity, c.TicketType, c.EventTitle, c.TotalPrice,
	)
}

func (c Confirmation) html() string {
	return fmt.Sprintf(
		"<p>Your purchase <strong>#%d</strong> is confirmed.</p><p>%d x %s for %s</p><p>Total paid: %.2f</p>",
		c.PurchaseID, c.Quantity, c.TicketType, c.EventTitle, c.TotalPrice,
	)
}

type Notifier interface {
	PurchaseConfirmed(ctx context.Context, conf Confirmation) error
}

// Log only records the confirmation in the service log.
type Log struct{}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) PurchaseConfirmed(ctx context.Context, conf Confirmation) error {
	logger.Infof(ctx, "purchaseConfirmed: purchase %d, user %d, event %d, %d x %s, total %.2f",
		conf.PurchaseID, conf.UserID, conf.EventID, conf.Quantity, conf.TicketType, conf.TotalPrice)
	return nil
}
