package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketing-backend/model"
	"ticketing-backend/notify"
	"ticketing-backend/store"
)

const (
	DefaultMaxPerUser     = 10
	DefaultReservationTTL = 15 * time.Minute
)

type Config struct {
	// MaxPerUser caps the tickets one user may hold per event.
	MaxPerUser     int
	ReservationTTL time.Duration
}

// NewTicket returns the ticket inventory manager.
func NewTicket(cfg Config, notifier notify.Notifier) *Ticket {
	if cfg.MaxPerUser <= 0 {
		cfg.MaxPerUser = DefaultMaxPerUser
	}
	if cfg.ReservationTTL <= 0 {
		cfg.ReservationTTL = DefaultReservationTTL
	}
	if notifier == nil {
		notifier = notify.NewLog()
	}
	return &Ticket{
		cfg:      cfg,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Ticket manages ticket type inventory, reservations and purchases. Every
// method runs inside one transaction of the store it is given.
type Ticket struct {
	cfg      Config
	notifier notify.Notifier
	now      func() time.Time
}

// available sweeps expired holds and returns what can still be sold from tt.
// Holds owned by excludeUserID are not subtracted. All availability reads go
// through here so none of them can skip the sweep.
func (s *Ticket) available(ctx context.Context, tx store.Tx, tt *model.TicketType, excludeUserID int64) (int, int, error) {
	now := s.now()
	if _, err := tx.ReleaseExpiredReservations(ctx, now); err != nil {
		return 0, 0, fmt.Errorf("available: error releasing expired reservations: %w", err)
	}

	reserved, err := tx.ReservedQuantity(ctx, tt.TicketTypeID, excludeUserID, now)
	if err != nil {
		return 0, 0, fmt.Errorf("available: error summing reservations of ticket type %d: %w", tt.TicketTypeID, err)
	}

	available := tt.Quantity - reserved
	if available < 0 {
		available = 0
	}
	return available, reserved, nil
}

func fetchTicketType(ctx context.Context, tx store.Tx, ticketTypeID int64, forUpdate bool) (*model.TicketType, error) {
	tt, err := tx.FetchTicketType(ctx, ticketTypeID, forUpdate)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrTicketTypeNotFound, ticketTypeID)
	}
	return tt, err
}

func fetchEvent(ctx context.Context, tx store.Tx, eventID int64) (*model.Event, error) {
	e, err := tx.FetchEvent(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrEventNotFound, eventID)
	}
	return e, err
}

// AvailableQuantity returns capacity minus sold minus active holds.
func (s *Ticket) AvailableQuantity(ctx context.Context, st store.Store, ticketTypeID int64) (int, error) {
	a, err := s.Availability(ctx, st, ticketTypeID)
	if err != nil {
		return 0, err
	}
	return a.Available, nil
}

// Availability returns the inventory breakdown of a ticket type.
func (s *Ticket) Availability(ctx context.Context, st store.Store, ticketTypeID int64) (*model.Availability, error) {
	var a model.Availability
	err := st.WithTx(ctx, func(tx store.Tx) error {
		tt, err := fetchTicketType(ctx, tx, ticketTypeID, false)
		if err != nil {
			return err
		}

		available, reserved, err := s.available(ctx, tx, tt, 0)
		if err != nil {
			return err
		}

		a = model.Availability{
			TicketTypeID: tt.TicketTypeID,
			Capacity:     tt.Capacity,
			Sold:         tt.Sold(),
			Reserved:     reserved,
			Available:    available,
		}
		return nil
	})
	if err != nil {
		return nil, classify("availability", err)
	}
	return &a, nil
}

// Reserve places a temporary hold of quantity tickets for userID. The hold
// blocks other buyers until it expires or the user purchases.
func (s *Ticket) Reserve(ctx context.Context, st store.Store, ticketTypeID, userID int64, quantity int) (*model.Reservation, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var r model.Reservation
	err := st.WithTx(ctx, func(tx store.Tx) error {
		tt, err := fetchTicketType(ctx, tx, ticketTypeID, true)
		if err != nil {
			return err
		}

		available, _, err := s.available(ctx, tx, tt, 0)
		if err != nil {
			return err
		}
		if quantity > available {
			return insufficientInventory(quantity, available)
		}

		r = model.Reservation{
			TicketTypeID: ticketTypeID,
			UserID:       userID,
			Quantity:     quantity,
			ExpiresAt:    s.now().Add(s.cfg.ReservationTTL),
		}
		r.ReservationID, err = tx.CreateReservation(ctx, &r)
		return err
	})
	if err != nil {
		return nil, classify("reserve", err)
	}
	return &r, nil
}

// UserPurchasedQuantity sums the user's active purchases for an event.
func (s *Ticket) UserPurchasedQuantity(ctx context.Context, st store.Store, userID, eventID int64) (int, error) {
	var total int
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if _, err := fetchEvent(ctx, tx, eventID); err != nil {
			return err
		}
		var err error
		total, err = tx.UserPurchasedQuantity(ctx, userID, eventID)
		return err
	})
	if err != nil {
		return 0, classify("userPurchasedQuantity", err)
	}
	return total, nil
}
