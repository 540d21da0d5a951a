package router

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/spf13/viper"

	"ticketing-backend/config"
	"ticketing-backend/factory"
	"ticketing-backend/handler"
	"ticketing-backend/healthcheck"
	"ticketing-backend/idempotency"
	"ticketing-backend/logger"
	"ticketing-backend/middleware"
	"ticketing-backend/model"
	"ticketing-backend/response"
	"ticketing-backend/ticket"
)

// Router returns the router for all the API handler.
func Router(ctx context.Context, f factory.Factory) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.SetCorrelationIDHeader)
	r.Use(middleware.PanicHandler)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		response.ResourceNotFound(fmt.Sprintf("The requested resource was not found: path: %s, method: %s", req.URL.Path, req.Method), "The requested resource was not found!").Send(req.Context(), w)
	})

	r.Use(middleware.ResponseTimeLogging)
	r.Use(middleware.RequestLogging)
	r.Use(middleware.SetContentTypeHeader)

	secret := viper.GetString(config.Secret)
	if secret == "" {
		logger.Fatalf(ctx, "router: %s must be set", config.Secret)
	}

	ticketService := ticket.NewTicket(ticket.Config{
		MaxPerUser:     viper.GetInt(config.MaxTicketsPerUser),
		ReservationTTL: viper.GetDuration(config.ReservationTTL),
	}, f.Notifier(ctx))

	var keys *idempotency.Keys
	if client := f.Redis(ctx); client != nil {
		keys = idempotency.NewKeys(client, viper.GetDuration(config.RedisIdempotencyLockTTL), viper.GetDuration(config.RedisIdempotencyTTL))
	}

	authenticate := middleware.Authenticate(secret)
	manage := middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin)

	r.HandleFunc("/healthcheck", healthcheck.Self(f)).Methods(http.MethodGet)
	baseRouter := r.PathPrefix("/v1").Subrouter()

	eventRouter := baseRouter.PathPrefix("/events/{eventID:[0-9]+}").Subrouter()
	eventRouter.HandleFunc("/ticket_types", handler.ListTicketTypes(ticketService, f)).Methods(http.MethodGet)
	eventRouter.HandleFunc("/ticket_types/{ticketTypeID:[0-9]+}", handler.GetTicketType(ticketService, f)).Methods(http.MethodGet)
	eventRouter.Handle("/purchased_quantity", authenticate(handler.PurchasedQuantity(ticketService, f))).Methods(http.MethodGet)

	eventRouter.Handle("/ticket_types", authenticate(manage(handler.CreateTicketType(ticketService, f)))).Methods(http.MethodPost)
	eventRouter.Handle("/ticket_types/{ticketTypeID:[0-9]+}", authenticate(manage(handler.UpdateTicketType(ticketService, f)))).Methods(http.MethodPatch)
	eventRouter.Handle("/ticket_types/{ticketTypeID:[0-9]+}", authenticate(manage(handler.DeleteTicketType(ticketService, f)))).Methods(http.MethodDelete)

	ticketTypeRouter := baseRouter.PathPrefix("/ticket_types/{ticketTypeID:[0-9]+}").Subrouter()
	ticketTypeRouter.HandleFunc("/availability", handler.Availability(ticketService, f)).Methods(http.MethodGet)
	ticketTypeRouter.Handle("/reservations", authenticate(handler.Reserve(ticketService, f))).Methods(http.MethodPost)
	ticketTypeRouter.Handle("/purchases", authenticate(handler.Purchase(ticketService, f, keys))).Methods(http.MethodPost)

	purchaseRouter := baseRouter.PathPrefix("/purchases").Subrouter()
	purchaseRouter.Use(authenticate)
	purchaseRouter.HandleFunc("", handler.ListPurchases(ticketService, f)).Methods(http.MethodGet)
	purchaseRouter.HandleFunc("/history", handler.PurchaseHistory(ticketService, f)).Methods(http.MethodGet)
	purchaseRouter.HandleFunc("/{purchaseID:[0-9]+}", handler.GetPurchase(ticketService, f)).Methods(http.MethodGet)
	purchaseRouter.HandleFunc("/{purchaseID:[0-9]+}", handler.CancelPurchase(ticketService, f)).Methods(http.MethodDelete)

	return r
}
