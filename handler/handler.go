package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	c "ticketing-backend/context"
	"ticketing-backend/logger"
	"ticketing-backend/model"
	"ticketing-backend/response"
)

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, response.InvalidData(fmt.Sprintf("%s must be a positive integer, got %q", name, raw))
	}
	return id, nil
}

func identity(r *http.Request) (*model.Identity, error) {
	id, ok := c.GetIdentity(r.Context())
	if !ok {
		return nil, response.Unauthorized()
	}
	return id, nil
}

// sendError logs failures the client is not told about and sends the mapped
// response.
func sendError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	er := response.FromError(err)
	if er.StatusCode >= http.StatusInternalServerError {
		logger.Errorf(ctx, "%s: %+v", op, err)
	}
	er.Send(ctx, w)
}
