package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"ticketing-backend/factory"
	"ticketing-backend/idempotency"
	"ticketing-backend/logger"
	"ticketing-backend/model"
	"ticketing-backend/response"
	"ticketing-backend/store"
	"ticketing-backend/ticket"
)

const IdempotencyKeyHeader = "Idempotency-Key"

func decodeQuantity(r *http.Request) (int, error) {
	var req model.QuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return 0, response.BadRequest("invalid request body", fmt.Sprintf("error unmarshalling request body: %+v", err))
	}
	if req.Data.Quantity <= 0 {
		return 0, response.InvalidData("data.quantity must be a positive number")
	}
	return req.Data.Quantity, nil
}

func Reserve(service *ticket.Ticket, f factory.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		caller, err := identity(r)
		if err != nil {
			sendError(ctx, w, "reserve", err)
			return
		}
		ticketTypeID, err := pathID(r, "ticketTypeID")
		if err != nil {
			sendError(ctx, w, "reserve", err)
			return
		}
		quantity, err := decodeQuantity(r)
		if err != nil {
			sendError(ctx, w, "reserve", err)
			return
		}

		res, err := service.Reserve(ctx, f.Store(ctx), ticketTypeID, caller.UserID, quantity)
		if err != nil {
			sendError(ctx, w, "reserve", err)
			return
		}

		response.Created(&response.Data{Reservation: res}).Send(w)
	}
}

// Purchase buys tickets for the caller. With keys set, a request repeating
// an earlier Idempotency-Key gets the earlier receipt back.
func Purchase(service *ticket.Ticket, f factory.Factory, keys *idempotency.Keys) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		caller, err := identity(r)
		if err != nil {
			sendError(ctx, w, "purchase", err)
			return
		}
		ticketTypeID, err := pathID(r, "ticketTypeID")
		if err != nil {
			sendError(ctx, w, "purchase", err)
			return
		}
		quantity, err := decodeQuantity(r)
		if err != nil {
			sendError(ctx, w, "purchase", err)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		claimed := keys != nil && key != ""
		if claimed {
			replay, err := keys.Begin(caller.UserID, key, ticketTypeID, quantity)
			if err != nil {
				sendError(ctx, w, "purchase", err)
				return
			}
			if replay != nil {
				logger.Infof(ctx, "purchase: replaying purchase %d for key %s", replay.PurchaseID, key)
				response.OK(&response.Data{Receipt: replay}).Send(w)
				return
			}
		}

		receipt, err := service.Purchase(ctx, f.Store(ctx), ticketTypeID, caller, quantity)
		if err != nil {
			if claimed {
				if err := keys.Abort(caller.UserID, key); err != nil {
					logger.Errorf(ctx, "purchase: %+v", err)
				}
			}
			sendError(ctx, w, "purchase", err)
			return
		}

		if claimed {
			if err := keys.Complete(caller.UserID, key, receipt); err != nil {
				logger.Errorf(ctx, "purchase: %+v", err)
			}
		}

		response.Created(&response.Data{Receipt: receipt}).Send(w)
	}
}

func PurchasedQuantity(service *ticket.Ticket, f factory.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		caller, err := identity(r)
		if err != nil {
			sendError(ctx, w, "purchasedQuantity", err)
			return
		}
		eventID, err := pathID(r, "eventID")
		if err != nil {
			sendError(ctx, w, "purchasedQuantity", err)
			return
		}

		n, err := service.UserPurchasedQuantity(ctx, f.Store(ctx), caller.UserID, eventID)
		if err != nil {
			sendError(ctx, w, "purchasedQuantity", err)
			return
		}

		response.OK(&response.Data{PurchasedQuantity: &n}).Send(w)
	}
}

func ListPurchases(service *ticket.Ticket, f factory.Factory) http.HandlerFunc {
	return listPurchases("listPurchases", f, service.ListPurchases)
}

func PurchaseHistory(service *ticket.Ticket, f factory.Factory) http.HandlerFunc {
	return listPurchases("purchaseHistory", f, service.PurchaseHistory)
}

type purchaseLister func(ctx context.Context, st store.Store, userID int64) ([]model.PurchaseDetail, error)

func listPurchases(op string, f factory.Factory, list purchaseLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		caller, err := identity(r)
		if err != nil {
			sendError(ctx, w, op, err)
			return
		}

		pds, err := list(ctx, f.Store(ctx), caller.UserID)
		if err != nil {
			sendError(ctx, w, op, err)
			return
		}

		response.OK(&response.Data{Purchases: &pds}).Send(w)
	}
}

func GetPurchase(service *ticket.Ticket, f factory.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		caller, err := identity(r)
		if err != nil {
			sendError(ctx, w, "getPurchase", err)
			return
		}
		purchaseID, err := pathID(r, "purchaseID")
		if err != nil {
			sendError(ctx, w, "getPurchase", err)
			return
		}

		pd, err := service.GetPurchase(ctx, f.Store(ctx), purchaseID, caller.UserID)
		if err != nil {
			sendError(ctx, w, "getPurchase", err)
			return
		}

		response.OK(&response.Data{Purchase: pd}).Send(w)
	}
}

func CancelPurchase(service *ticket.Ticket, f factory.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		caller, err := identity(r)
		if err != nil {
			sendError(ctx, w, "cancelPurchase", err)
			return
		}
		purchaseID, err := pathID(r, "purchaseID")
		if err != nil {
			sendError(ctx, w, "cancelPurchase", err)
			return
		}

		pd, err := service.CancelPurchase(ctx, f.Store(ctx), purchaseID, caller.UserID)
		if err != nil {
			sendError(ctx, w, "cancelPurchase", err)
			return
		}

		response.OK(&response.Data{Purchase: pd}).Send(w)
	}
}
