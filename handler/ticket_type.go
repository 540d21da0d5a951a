package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ticketing-backend/factory"
	"ticketing-backend/model"
	"ticketing-backend/response"
	"ticketing-backend/ticket"
)

func decodeTicketType(r *http.Request) (*model.TicketTypeInput, error) {
	var req model.TicketTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, response.BadRequest("invalid request body", fmt.Sprintf("error unmarshalling request body: %+v", err))
	}
	if req.Data.TicketType == nil {
		return nil, response.BadRequest("invalid request body", "data.ticket_type is required")
	}
	return req.Data.TicketType, nil
}

func CreateTicketType(service *ticket.Ticket, f factory.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		caller, err := identity(r)
		if err != nil {
			sendError(ctx, w, "createTicketType", err)
			return
		}
		eventID, err := pathID(r, "eventID")
		if err != nil {
			sendError(ctx, w, "createTicketType", err)
			return
		}
		in, err := decodeTicketType(r)
		if err != nil {
			sendError(ctx, w, "createTicketType", err)
			return
		}

		tt, err := service.CreateTicketType(ctx, f.Store(ctx), caller, eventID, in)
		if err != nil {
			sendError(ctx, w, "createTicketType", err)
			return
		}

		response.Created(&response.Data{TicketType: tt}).Send(w)
	}
}

func ListTicketTypes(service *ticket.Ticket, f factory.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		eventID, err := pathID(r, "eventID")
		if err != nil {
			sendError(ctx, w, "listTicketTypes", err)
			return
		}

		tts, err := service.ListTicketTypes(ctx, f.Store(ctx), eventID)
		if err != nil {
			sendError(ctx, w, "listTicketTypes", err)
			return
		}

		response.OK(&response.Data{TicketTypes: &tts}).Send(w)
	}
}

func GetTicketType(service *ticket.Ticket, f factory.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		eventID, err := pathID(r, "eventID")
		if err != nil {
			sendError(ctx, w, "getTicketType", err)
			return
		}
		ticketTypeID, err := pathID(r, "ticketTypeID")
		if err != nil {
			sendError(ctx, w, "getTicketType", err)
			return
		}

		tt, err := service.GetTicketType(ctx, f.Store(ctx), eventID, ticketTypeID)
		if err != nil {
			sendError(ctx, w, "getTicketType", err)
			return
		}

		response.OK(&response.Data{TicketType: tt}).Send(w)
	}
}

func UpdateTicketType(service *ticket.Ticket, f factory.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		caller, err := identity(r)
		if err != nil {
			sendError(ctx, w, "updateTicketType", err)
			return
		}
		eventID, err := pathID(r, "eventID")
		if err != nil {
			sendError(ctx, w, "updateTicketType", err)
			return
		}
		ticketTypeID, err := pathID(r, "ticketTypeID")
		if err != nil {
			sendError(ctx, w, "updateTicketType", err)
			return
		}
		in, err := decodeTicketType(r)
		if err != nil {
			sendError(ctx, w, "updateTicketType", err)
			return
		}

		tt, err := service.UpdateTicketType(ctx, f.Store(ctx), caller, eventID, ticketTypeID, in)
		if err != nil {
			sendError(ctx, w, "updateTicketType", err)
			return
		}

		response.OK(&response.Data{TicketType: tt}).Send(w)
	}
}

func DeleteTicketType(service *ticket.Ticket, f factory.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		caller, err := identity(r)
		if err != nil {
			sendError(ctx, w, "deleteTicketType", err)
			return
		}
		eventID, err := pathID(r, "eventID")
		if err != nil {
			sendError(ctx, w, "deleteTicketType", err)
			return
		}
		ticketTypeID, err := pathID(r, "ticketTypeID")
		if err != nil {
			sendError(ctx, w, "deleteTicketType", err)
			return
		}

		tt, err := service.DeleteTicketType(ctx, f.Store(ctx), caller, eventID, ticketTypeID)
		if err != nil {
			sendError(ctx, w, "deleteTicketType", err)
			return
		}

		response.OK(&response.Data{TicketType: tt}).Send(w)
	}
}

func Availability(service *ticket.Ticket, f factory.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ticketTypeID, err := pathID(r, "ticketTypeID")
		if err != nil {
			sendError(ctx, w, "availability", err)
			return
		}

		a, err := service.Availability(ctx, f.Store(ctx), ticketTypeID)
		if err != nil {
			sendError(ctx, w, "availability", err)
			return
		}

		response.OK(&response.Data{Availability: a}).Send(w)
	}
}
