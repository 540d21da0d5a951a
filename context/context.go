package context

import (
	"context"
	"time"

	"ticketing-backend/model"
)

const (
	ContextKeyCorrelationID ContextKey = "Correlation-Id"
	ContextKeyIdentity      ContextKey = "Identity"
	DefaultHttpTimeout                 = 30 * time.Second
)

type ContextKey string

func NewContextWithTimeOut(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

func NewContext(correlationID string) context.Context {
	return context.WithValue(context.Background(), ContextKeyCorrelationID, correlationID)
}

func SetContextWithValue(ctx context.Context, key ContextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

func GetContextValue(ctx context.Context, key ContextKey) string {
	reqID := ctx.Value(key)
	if reqID != nil {
		if ret, ok := reqID.(string); ok {
			return ret
		}
	}
	return ""
}

// Detach returns a background context carrying only the correlation id of
// ctx, for work that outlives the request.
func Detach(ctx context.Context) context.Context {
	return NewContext(GetContextValue(ctx, ContextKeyCorrelationID))
}

// SetIdentity stores the authenticated caller on the context.
func SetIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, id)
}

// GetIdentity returns the authenticated caller, if any.
func GetIdentity(ctx context.Context) (*model.Identity, bool) {
	id, ok := ctx.Value(ContextKeyIdentity).(*model.Identity)
	return id, ok && id != nil
}
