package ticket

import (
	"context"
	"fmt"
	"strings"

	"ticketing-backend/logger"
	"ticketing-backend/model"
	"ticketing-backend/store"
)

// authorize fails unless caller is an admin or the organizer of event.
func authorize(caller *model.Identity, event *model.Event) error {
	if caller == nil {
		return ErrForbidden
	}
	if caller.HasRole(model.RoleAdmin) {
		return nil
	}
	if caller.HasRole(model.RoleOrganizer) && caller.UserID == event.OrganizerID {
		return nil
	}
	return fmt.Errorf("%w: event %d", ErrForbidden, event.EventID)
}

func validateTicketType(tt *model.TicketType) error {
	if strings.TrimSpace(tt.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTicketType)
	}
	if tt.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidTicketType)
	}
	if tt.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidTicketType)
	}
	return nil
}

// ownedTicketType fetches a ticket type of eventID and checks the caller may
// manage it. A ticket type of another event is reported as not found.
func ownedTicketType(ctx context.Context, tx store.Tx, caller *model.Identity, eventID, ticketTypeID int64) (*model.TicketType, error) {
	event, err := fetchEvent(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, event); err != nil {
		return nil, err
	}

	tt, err := fetchTicketType(ctx, tx, ticketTypeID, true)
	if err != nil {
		return nil, err
	}
	if tt.EventID != eventID {
		return nil, fmt.Errorf("%w: %d in event %d", ErrTicketTypeNotFound, ticketTypeID, eventID)
	}
	return tt, nil
}

// CreateTicketType adds a ticket type to an event with its full capacity
// available.
func (s *Ticket) CreateTicketType(ctx context.Context, st store.Store, caller *model.Identity, eventID int64, in *model.TicketTypeInput) (*model.TicketType, error) {
	if in == nil || in.Name == nil || in.Price == nil || in.Capacity == nil {
		return nil, fmt.Errorf("%w: name, price and capacity are required", ErrInvalidTicketType)
	}

	now := s.now()
	tt := model.TicketType{
		EventID:     eventID,
		Name:        strings.TrimSpace(*in.Name),
		Price:       *in.Price,
		Capacity:    *in.Capacity,
		Quantity:    *in.Capacity,
		CreatedDate: &now,
	}
	if err := validateTicketType(&tt); err != nil {
		return nil, err
	}

	err := st.WithTx(ctx, func(tx store.Tx) error {
		event, err := fetchEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := authorize(caller, event); err != nil {
			return err
		}

		tt.TicketTypeID, err = tx.CreateTicketType(ctx, &tt)
		return err
	})
	if err != nil {
		return nil, classify("createTicketType", err)
	}

	logger.Infof(ctx, "createTicketType: ticket type %d created for event %d with capacity %d", tt.TicketTypeID, eventID, tt.Capacity)
	return &tt, nil
}

func (s *Ticket) ListTicketTypes(ctx context.Context, st store.Store, eventID int64) ([]model.TicketType, error) {
	var tts []model.TicketType
	err := st.WithTx(ctx, func(tx store.Tx) error {
		if _, err := fetchEvent(ctx, tx, eventID); err != nil {
			return err
		}
		var err error
		tts, err = tx.ListTicketTypes(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, classify("listTicketTypes", err)
	}
	return tts, nil
}

func (s *Ticket) GetTicketType(ctx context.Context, st store.Store, eventID, ticketTypeID int64) (*model.TicketType, error) {
	var tt *model.TicketType
	err := st.WithTx(ctx, func(tx store.Tx) error {
		var err error
		tt, err = fetchTicketType(ctx, tx, ticketTypeID, false)
		if err != nil {
			return err
		}
		if tt.EventID != eventID {
			return fmt.Errorf("%w: %d in event %d", ErrTicketTypeNotFound, ticketTypeID, eventID)
		}
		return nil
	})
	if err != nil {
		return nil, classify("getTicketType", err)
	}
	return tt, nil
}

// UpdateTicketType applies the non-nil fields of in. Capacity can only change
// before any ticket is sold, and never below what is currently held.
func (s *Ticket) UpdateTicketType(ctx context.Context, st store.Store, caller *model.Identity, eventID, ticketTypeID int64, in *model.TicketTypeInput) (*model.TicketType, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidTicketType)
	}

	var tt *model.TicketType
	err := st.WithTx(ctx, func(tx store.Tx) error {
		var err error
		tt, err = ownedTicketType(ctx, tx, caller, eventID, ticketTypeID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			tt.Name = strings.TrimSpace(*in.Name)
		}
		if in.Price != nil {
			tt.Price = *in.Price
		}
		if in.Capacity != nil && *in.Capacity != tt.Capacity {
			if tt.Sold() > 0 {
				return fmt.Errorf("%w: %d tickets sold, capacity is fixed", ErrTicketTypeInUse, tt.Sold())
			}
			_, reserved, err := s.available(ctx, tx, tt, 0)
			if err != nil {
				return err
			}
			if *in.Capacity < reserved {
				return fmt.Errorf("%w: %d tickets on hold", ErrTicketTypeInUse, reserved)
			}
			tt.Capacity = *in.Capacity
			tt.Quantity = *in.Capacity
		}
		if err := validateTicketType(tt); err != nil {
			return err
		}

		// The row is locked; MySQL reports 0 rows for an update that
		// changes nothing, so the count is not checked.
		_, err = tx.UpdateTicketType(ctx, tt)
		return err
	})
	if err != nil {
		return nil, classify("updateTicketType", err)
	}
	return tt, nil
}

// DeleteTicketType removes a ticket type that was never purchased and has no
// live holds.
func (s *Ticket) DeleteTicketType(ctx context.Context, st store.Store, caller *model.Identity, eventID, ticketTypeID int64) (*model.TicketType, error) {
	var tt *model.TicketType
	err := st.WithTx(ctx, func(tx store.Tx) error {
		var err error
		tt, err = ownedTicketType(ctx, tx, caller, eventID, ticketTypeID)
		if err != nil {
			return err
		}

		n, err := tx.CountPurchases(ctx, ticketTypeID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d purchases recorded", ErrTicketTypeInUse, n)
		}

		_, reserved, err := s.available(ctx, tx, tt, 0)
		if err != nil {
			return err
		}
		if reserved > 0 {
			return fmt.Errorf("%w: %d tickets on hold", ErrTicketTypeInUse, reserved)
		}

		rows, err := tx.DeleteTicketType(ctx, ticketTypeID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: %d", ErrTicketTypeNotFound, ticketTypeID)
		}
		return nil
	})
	if err != nil {
		return nil, classify("deleteTicketType", err)
	}

	logger.Infof(ctx, "deleteTicketType: ticket type %d of event %d deleted", ticketTypeID, eventID)
	return tt, nil
}
