package healthcheck

import (
	"context"
	"net/http"
	"time"

	"ticketing-backend/factory"
	"ticketing-backend/logger"
	"ticketing-backend/model"
	"ticketing-backend/response"
)

const pingTimeout = 2 * time.Second

// Self reports whether the service can reach its store and, when configured,
// redis.
func Self(f factory.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		h := model.Health{Status: model.HealthUp, Store: model.HealthUp}
		if err := f.Store(ctx).Ping(ctx); err != nil {
			logger.Errorf(ctx, "healthcheck: store ping failed: %+v", err)
			h.Status, h.Store = model.HealthDown, model.HealthDown
		}
		if client := f.Redis(ctx); client != nil {
			h.Redis = model.HealthUp
			if err := client.WithContext(ctx).Ping().Err(); err != nil {
				logger.Errorf(ctx, "healthcheck: redis ping failed: %+v", err)
				h.Status, h.Redis = model.HealthDown, model.HealthDown
			}
		}

		status := http.StatusOK
		if h.Status == model.HealthDown {
			status = http.StatusServiceUnavailable
		}
		response.SuccessResponse{
			Data:       &response.Data{Health: &h},
			StatusCode: status,
		}.Send(w)
	}
}
