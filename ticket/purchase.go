package ticket

import (
	"context"
	"errors"
	"fmt"

	c "ticketing-backend/context"
	"ticketing-backend/logger"
	"ticketing-backend/model"
	"ticketing-backend/notify"
	"ticketing-backend/store"
)

// Purchase commits quantity tickets of a ticket type to buyer. The checks,
// the hold, the decrement and the purchase row share one transaction; on any
// failure none of them persist. The confirmation is sent after commit and
// its failure does not affect the purchase.
func (s *Ticket) Purchase(ctx context.Context, st store.Store, ticketTypeID int64, buyer *model.Identity, quantity int) (*model.Receipt, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	state := model.PurchaseRequested
	var receipt model.Receipt
	var conf notify.Confirmation

	err := st.WithTx(ctx, func(tx store.Tx) error {
		// The row lock serializes purchases of the same ticket type.
		tt, err := fetchTicketType(ctx, tx, ticketTypeID, true)
		if err != nil {
			return err
		}

		event, err := fetchEvent(ctx, tx, tt.EventID)
		if err != nil {
			return err
		}

		// The buyer's own holds are what this purchase consumes.
		available, _, err := s.available(ctx, tx, tt, buyer.UserID)
		if err != nil {
			return err
		}
		if quantity > available {
			return insufficientInventory(quantity, available)
		}

		held, err := tx.UserPurchasedQuantity(ctx, buyer.UserID, tt.EventID)
		if err != nil {
			return fmt.Errorf("purchase: error summing purchases of user %d: %w", buyer.UserID, err)
		}
		if held+quantity > s.cfg.MaxPerUser {
			return userCapExceeded(held, quantity, s.cfg.MaxPerUser)
		}

		now := s.now()
		hold := model.Reservation{
			TicketTypeID: ticketTypeID,
			UserID:       buyer.UserID,
			Quantity:     quantity,
			ExpiresAt:    now.Add(s.cfg.ReservationTTL),
		}
		if _, err := tx.CreateReservation(ctx, &hold); err != nil {
			return fmt.Errorf("purchase: error holding tickets: %w", err)
		}
		state = model.PurchaseReserved

		rows, err := tx.DecrementQuantity(ctx, ticketTypeID, quantity)
		if err != nil {
			return fmt.Errorf("purchase: error decrementing ticket type %d: %w", ticketTypeID, err)
		}
		if rows == 0 {
			return insufficientInventory(quantity, tt.Quantity)
		}

		p := model.Purchase{
			UserID:       buyer.UserID,
			TicketTypeID: ticketTypeID,
			Quantity:     quantity,
			PurchaseDate: now,
		}
		purchaseID, err := tx.CreatePurchase(ctx, &p)
		if err != nil {
			return fmt.Errorf("purchase: error recording purchase: %w", err)
		}

		if _, err := tx.DeleteReservations(ctx, ticketTypeID, buyer.UserID); err != nil {
			return fmt.Errorf("purchase: error releasing holds: %w", err)
		}

		receipt = model.Receipt{
			PurchaseID:   purchaseID,
			TicketTypeID: ticketTypeID,
			Quantity:     quantity,
			TotalPrice:   tt.Price * float64(quantity),
		}
		conf = notify.Confirmation{
			PurchaseID:  purchaseID,
			UserID:      buyer.UserID,
			Email:       buyer.Email,
			Username:    buyer.Username,
			Phone:       buyer.Phone,
			EventID:     event.EventID,
			EventTitle:  event.Title,
			TicketType:  tt.Name,
			Quantity:    quantity,
			UnitPrice:   tt.Price,
			TotalPrice:  receipt.TotalPrice,
			PurchasedAt: now,
		}
		return nil
	})
	if err != nil {
		failed := model.PurchaseFailed
		if state == model.PurchaseReserved {
			failed = model.PurchaseRolledBack
		}
		logger.Infof(ctx, "purchase: ticket type %d, user %d, quantity %d: %s -> %s: %v", ticketTypeID, buyer.UserID, quantity, state, failed, err)
		return nil, classify("purchase", err)
	}

	logger.Infof(ctx, "purchase: ticket type %d, user %d, quantity %d: %s, purchase %d", ticketTypeID, buyer.UserID, quantity, model.PurchaseCommitted, receipt.PurchaseID)
	go s.confirm(c.Detach(ctx), conf)

	return &receipt, nil
}

func (s *Ticket) confirm(ctx context.Context, conf notify.Confirmation) {
	defer func() {
		if p := recover(); p != nil {
			logger.Errorf(ctx, "confirm: notifier panicked for purchase %d: %v", conf.PurchaseID, p)
		}
	}()

	if err := s.notifier.PurchaseConfirmed(ctx, conf); err != nil {
		logger.Errorf(ctx, "confirm: unable to send confirmation for purchase %d: %+v", conf.PurchaseID, err)
	}
}

// CancelPurchase returns a purchase's tickets to inventory. Only the owner
// may cancel, and only before the event starts.
func (s *Ticket) CancelPurchase(ctx context.Context, st store.Store, purchaseID, userID int64) (*model.PurchaseDetail, error) {
	var pd *model.PurchaseDetail
	err := st.WithTx(ctx, func(tx store.Tx) error {
		var err error
		pd, err = tx.FetchPurchase(ctx, purchaseID, userID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrPurchaseNotFound, purchaseID)
		}
		if err != nil {
			return fmt.Errorf("cancelPurchase: error fetching purchase %d: %w", purchaseID, err)
		}
		if pd.CancelledAt != nil {
			return fmt.Errorf("%w: %d already cancelled", ErrPurchaseNotFound, purchaseID)
		}

		now := s.now()
		if !now.Before(pd.EventDate) {
			return fmt.Errorf("%w: event %d started at %s", ErrEventAlreadyStarted, pd.EventID, pd.EventDate)
		}

		rows, err := tx.IncrementQuantity(ctx, pd.TicketTypeID, pd.Quantity)
		if err != nil {
			return fmt.Errorf("cancelPurchase: error restoring ticket type %d: %w", pd.TicketTypeID, err)
		}
		if rows == 0 {
			return fmt.Errorf("cancelPurchase: ticket type %d cannot take back %d tickets", pd.TicketTypeID, pd.Quantity)
		}

		rows, err = tx.CancelPurchase(ctx, purchaseID, userID, now)
		if err != nil {
			return fmt.Errorf("cancelPurchase: error cancelling purchase %d: %w", purchaseID, err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: %d", ErrPurchaseNotFound, purchaseID)
		}
		pd.CancelledAt = &now
		pd.Fill()
		return nil
	})
	if err != nil {
		return nil, classify("cancelPurchase", err)
	}

	logger.Infof(ctx, "cancelPurchase: purchase %d cancelled by user %d", purchaseID, userID)
	return pd, nil
}

// GetPurchase returns one of the user's purchases, cancelled or not.
func (s *Ticket) GetPurchase(ctx context.Context, st store.Store, purchaseID, userID int64) (*model.PurchaseDetail, error) {
	var pd *model.PurchaseDetail
	err := st.WithTx(ctx, func(tx store.Tx) error {
		var err error
		pd, err = tx.FetchPurchase(ctx, purchaseID, userID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrPurchaseNotFound, purchaseID)
		}
		return err
	})
	if err != nil {
		return nil, classify("getPurchase", err)
	}
	return pd, nil
}

// ListPurchases returns the user's active purchases, newest first.
func (s *Ticket) ListPurchases(ctx context.Context, st store.Store, userID int64) ([]model.PurchaseDetail, error) {
	return s.listPurchases(ctx, st, userID, false)
}

// PurchaseHistory returns all of the user's purchases, cancelled included.
func (s *Ticket) PurchaseHistory(ctx context.Context, st store.Store, userID int64) ([]model.PurchaseDetail, error) {
	return s.listPurchases(ctx, st, userID, true)
}

func (s *Ticket) listPurchases(ctx context.Context, st store.Store, userID int64, includeCancelled bool) ([]model.PurchaseDetail, error) {
	var pds []model.PurchaseDetail
	err := st.WithTx(ctx, func(tx store.Tx) error {
		var err error
		pds, err = tx.ListPurchases(ctx, userID, includeCancelled)
		return err
	})
	if err != nil {
		return nil, classify("listPurchases", err)
	}
	return pds, nil
}
