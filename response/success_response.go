package response

import (
	"encoding/json"
	"net/http"

	"ticketing-backend/model"
)

type SuccessResponse struct {
	Data       *Data `json:"data"`
	StatusCode int   `json:"-"`
}

type Data struct {
	TicketType        *model.TicketType       `json:"ticket_type,omitempty"`
	TicketTypes       *[]model.TicketType     `json:"ticket_types,omitempty"`
	Availability      *model.Availability     `json:"availability,omitempty"`
	Reservation       *model.Reservation      `json:"reservation,omitempty"`
	Receipt           *model.Receipt          `json:"receipt,omitempty"`
	Purchase          *model.PurchaseDetail   `json:"purchase,omitempty"`
	Purchases         *[]model.PurchaseDetail `json:"purchases,omitempty"`
	PurchasedQuantity *int                    `json:"purchased_quantity,omitempty"`
	Health            *model.Health           `json:"health,omitempty"`
}

func (r SuccessResponse) Send(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.StatusCode)
	json.NewEncoder(w).Encode(r)
}

func OK(data *Data) SuccessResponse {
	return SuccessResponse{Data: data, StatusCode: http.StatusOK}
}

func Created(data *Data) SuccessResponse {
	return SuccessResponse{Data: data, StatusCode: http.StatusCreated}
}
