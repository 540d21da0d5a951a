package model

type TicketTypeRequest struct {
	Data struct {
		TicketType *TicketTypeInput `json:"ticket_type,omitempty"`
	} `json:"data"`
}

// TicketTypeInput carries create and update fields. Nil fields are left
// unchanged on update.
type TicketTypeInput struct {
	Name     *string  `json:"name,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Capacity *int     `json:"capacity,omitempty"`
}

type QuantityRequest struct {
	Data struct {
		Quantity int `json:"quantity"`
	} `json:"data"`
}
