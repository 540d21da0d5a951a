package ticket

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrUserCapExceeded       = errors.New("user ticket cap exceeded")
	ErrEventAlreadyStarted   = errors.New("event already started")
	ErrPurchaseNotFound      = errors.New("purchase not found")
	ErrTransactionFailure    = errors.New("transaction failure")

	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrEventNotFound      = errors.New("event not found")
	ErrInvalidQuantity    = errors.New("quantity must be a positive number")
	ErrInvalidTicketType  = errors.New("invalid ticket type")
	ErrTicketTypeInUse    = errors.New("ticket type in use")
	ErrForbidden          = errors.New("not allowed to manage this event")
)

var domainErrors = []error{
	ErrInsufficientInventory,
	ErrUserCapExceeded,
	ErrEventAlreadyStarted,
	ErrPurchaseNotFound,
	ErrTicketTypeNotFound,
	ErrEventNotFound,
	ErrInvalidQuantity,
	ErrInvalidTicketType,
	ErrTicketTypeInUse,
	ErrForbidden,
}

func insufficientInventory(requested, available int) error {
	if available < 0 {
		available = 0
	}
	return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientInventory, requested, available)
}

func userCapExceeded(held, requested, max int) error {
	return fmt.Errorf("%w: holds %d, requested %d, limit %d per event", ErrUserCapExceeded, held, requested, max)
}

// classify passes domain errors through and marks everything else as a
// storage failure of the named operation.
func classify(op string, err error) error {
	for _, de := range domainErrors {
		if errors.Is(err, de) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransactionFailure, err)
}
