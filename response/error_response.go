package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ticketing-backend/idempotency"
	"ticketing-backend/logger"
	"ticketing-backend/ticket"
)

type ErrorResponse struct {
	StatusCode  int    `json:"-"`
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

func (r ErrorResponse) Error() string {
	return fmt.Sprintf("StatusCode: %d, Success: %t, Message: %s, Status: %s, Description: %s", r.StatusCode, r.Success, r.Message, r.Status, r.Description)
}

func (r ErrorResponse) Send(ctx context.Context, w http.ResponseWriter) {
	if r.StatusCode >= http.StatusInternalServerError {
		logger.Errorf(ctx, r.Error())
	} else {
		logger.Infof(ctx, r.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.StatusCode)
	json.NewEncoder(w).Encode(r)
}

// FromError turns an error from the ticket manager into the response sent to
// the client. Storage failures are not described to the client.
func FromError(err error) ErrorResponse {
	var er ErrorResponse
	if errors.As(err, &er) {
		return er
	}

	switch {
	case errors.Is(err, ticket.ErrInsufficientInventory):
		return conflict("Not enough tickets available", "INSUFFICIENT_INVENTORY", err)
	case errors.Is(err, ticket.ErrUserCapExceeded):
		return ErrorResponse{
			StatusCode:  http.StatusUnprocessableEntity,
			Message:     "Ticket limit per user reached for this event",
			Status:      "USER_CAP_EXCEEDED",
			Description: err.Error(),
		}
	case errors.Is(err, ticket.ErrEventAlreadyStarted):
		return conflict("The event has already started", "EVENT_ALREADY_STARTED", err)
	case errors.Is(err, ticket.ErrTicketTypeInUse):
		return conflict("The ticket type has sales or holds", "TICKET_TYPE_IN_USE", err)
	case errors.Is(err, idempotency.ErrInProgress):
		return conflict("A request with this Idempotency-Key is still in progress", "REQUEST_IN_PROGRESS", err)
	case errors.Is(err, idempotency.ErrKeyMismatch):
		return ErrorResponse{
			StatusCode:  http.StatusUnprocessableEntity,
			Message:     "The Idempotency-Key was already used for a different purchase",
			Status:      "IDEMPOTENCY_KEY_MISMATCH",
			Description: err.Error(),
		}
	case errors.Is(err, ticket.ErrPurchaseNotFound):
		return ResourceNotFound("Purchase not found", err.Error())
	case errors.Is(err, ticket.ErrTicketTypeNotFound):
		return ResourceNotFound("Ticket type not found", err.Error())
	case errors.Is(err, ticket.ErrEventNotFound):
		return ResourceNotFound("Event not found", err.Error())
	case errors.Is(err, ticket.ErrInvalidQuantity), errors.Is(err, ticket.ErrInvalidTicketType):
		return InvalidData(err.Error())
	case errors.Is(err, ticket.ErrForbidden):
		return Forbidden(err.Error())
	}
	return SomethingWrong()
}

func conflict(message, status string, err error) ErrorResponse {
	return ErrorResponse{
		StatusCode:  http.StatusConflict,
		Message:     message,
		Status:      status,
		Description: err.Error(),
	}
}

func BadRequest(message, description string) ErrorResponse {
	return ErrorResponse{
		StatusCode:  http.StatusBadRequest,
		Success:     false,
		Message:     message,
		Status:      "BAD REQUEST",
		Description: description,
	}
}

func ResourceNotFound(message, description string) ErrorResponse {
	return ErrorResponse{
		StatusCode:  http.StatusNotFound,
		Success:     false,
		Message:     message,
		Status:      "NOT FOUND",
		Description: description,
	}
}

func Unauthorized() ErrorResponse {
	return ErrorResponse{
		StatusCode: http.StatusUnauthorized,
		Success:    false,
		Message:    "No valid Auth Token",
		Status:     "UNAUTHORISED",
	}
}

func Forbidden(description string) ErrorResponse {
	return ErrorResponse{
		StatusCode:  http.StatusForbidden,
		Success:     false,
		Message:     "You are not allowed to perform this action",
		Status:      "FORBIDDEN",
		Description: description,
	}
}

func SomethingWrong() ErrorResponse {
	return ErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Success:    false,
		Message:    "Sorry, Something went wrong",
		Status:     "SOMETHING_WRONG",
	}
}

func InvalidData(description string) ErrorResponse {
	return ErrorResponse{
		StatusCode:  http.StatusBadRequest,
		Success:     false,
		Message:     "Invalid data passed",
		Status:      "INVALID_DATA",
		Description: description,
	}
}
