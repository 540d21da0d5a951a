// Package store holds the transactional storage sessions used by the ticket
// inventory manager.
package store

import (
	"context"
	"errors"
	"time"

	"ticketing-backend/model"
)

// ErrNotFound is returned by Tx lookups that match no row.
var ErrNotFound = errors.New("no record found")

// Store opens transactional sessions.
type Store interface {
	// WithTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back when fn returns an error or panics.
	WithTx(ctx context.Context, fn func(Tx) error) error
	Ping(ctx context.Context) error
}

// Tx is the set of statements available inside one transaction.
type Tx interface {
	FetchEvent(ctx context.Context, eventID int64) (*model.Event, error)

	CreateTicketType(ctx context.Context, tt *model.TicketType) (int64, error)
	// FetchTicketType with forUpdate holds a row lock on the ticket type until
	// the transaction ends.
	FetchTicketType(ctx context.Context, ticketTypeID int64, forUpdate bool) (*model.TicketType, error)
	ListTicketTypes(ctx context.Context, eventID int64) ([]model.TicketType, error)
	UpdateTicketType(ctx context.Context, tt *model.TicketType) (int64, error)
	DeleteTicketType(ctx context.Context, ticketTypeID int64) (int64, error)

	// DecrementQuantity only applies when at least qty remain; the returned
	// row count is 0 otherwise.
	DecrementQuantity(ctx context.Context, ticketTypeID int64, qty int) (int64, error)
	IncrementQuantity(ctx context.Context, ticketTypeID int64, qty int) (int64, error)

	ReleaseExpiredReservations(ctx context.Context, now time.Time) (int64, error)
	// ReservedQuantity sums holds on the ticket type that expire after now,
	// ignoring holds owned by excludeUserID (0 ignores none).
	ReservedQuantity(ctx context.Context, ticketTypeID, excludeUserID int64, now time.Time) (int, error)
	CreateReservation(ctx context.Context, r *model.Reservation) (int64, error)
	DeleteReservations(ctx context.Context, ticketTypeID, userID int64) (int64, error)

	CountPurchases(ctx context.Context, ticketTypeID int64) (int, error)
	UserPurchasedQuantity(ctx context.Context, userID, eventID int64) (int, error)
	CreatePurchase(ctx context.Context, p *model.Purchase) (int64, error)
	// FetchPurchase matches on owner too; cancelled purchases are included.
	FetchPurchase(ctx context.Context, purchaseID, userID int64) (*model.PurchaseDetail, error)
	CancelPurchase(ctx context.Context, purchaseID, userID int64, at time.Time) (int64, error)
	// ListPurchases returns the user's purchases, newest first.
	ListPurchases(ctx context.Context, userID int64, includeCancelled bool) ([]model.PurchaseDetail, error)
}
