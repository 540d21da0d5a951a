package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ticketing-backend/idempotency"
	"ticketing-backend/model"
	"ticketing-backend/ticket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		err    error
		code   int
		status string
	}{
		{fmt.Errorf("%w: requested 3", ticket.ErrInsufficientInventory), http.StatusConflict, "INSUFFICIENT_INVENTORY"},
		{ticket.ErrUserCapExceeded, http.StatusUnprocessableEntity, "USER_CAP_EXCEEDED"},
		{ticket.ErrEventAlreadyStarted, http.StatusConflict, "EVENT_ALREADY_STARTED"},
		{ticket.ErrTicketTypeInUse, http.StatusConflict, "TICKET_TYPE_IN_USE"},
		{idempotency.ErrInProgress, http.StatusConflict, "REQUEST_IN_PROGRESS"},
		{fmt.Errorf("%w: order-1", idempotency.ErrKeyMismatch), http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_MISMATCH"},
		{ticket.ErrPurchaseNotFound, http.StatusNotFound, "NOT FOUND"},
		{ticket.ErrTicketTypeNotFound, http.StatusNotFound, "NOT FOUND"},
		{ticket.ErrEventNotFound, http.StatusNotFound, "NOT FOUND"},
		{ticket.ErrInvalidQuantity, http.StatusBadRequest, "INVALID_DATA"},
		{ticket.ErrInvalidTicketType, http.StatusBadRequest, "INVALID_DATA"},
		{ticket.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{fmt.Errorf("purchase: %w: %w", ticket.ErrTransactionFailure, errors.New("deadlock")), http.StatusInternalServerError, "SOMETHING_WRONG"},
		{errors.New("boom"), http.StatusInternalServerError, "SOMETHING_WRONG"},
		{Unauthorized(), http.StatusUnauthorized, "UNAUTHORISED"},
	}
	for _, test := range tests {
		t.Run(test.status, func(t *testing.T) {
			r := FromError(test.err)
			assert.Equal(t, test.code, r.StatusCode)
			assert.Equal(t, test.status, r.Status)
		})
	}

	assert.Empty(t, FromError(errors.New("dsn: password=hunter2")).Description, "internal errors are not described")
}

func TestErrorResponseSend(t *testing.T) {
	w := httptest.NewRecorder()
	InvalidData("quantity must be a positive number").Send(context.Background(), w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "INVALID_DATA", body["status"])
	assert.NotContains(t, body, "StatusCode")
}

func TestSuccessResponseSend(t *testing.T) {
	w := httptest.NewRecorder()
	purchases := []model.PurchaseDetail{}
	OK(&Data{Purchases: &purchases}).Send(w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"purchases":[]}}`, w.Body.String())

	w = httptest.NewRecorder()
	Created(&Data{Receipt: &model.Receipt{PurchaseID: 4, TicketTypeID: 2, Quantity: 1, TotalPrice: 10}}).Send(w)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"data":{"receipt":{"purchase_id":4,"ticket_type_id":2,"quantity":1,"total_price":10}}}`, w.Body.String())
}
