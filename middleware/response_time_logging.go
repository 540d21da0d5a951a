package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/codegangsta/negroni"

	"ticketing-backend/logger"
)

func ResponseTimeLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := negroni.NewResponseWriter(w)
		start := time.Now().UTC()
		defer func() {
			logger.LogExecutionTime(r.Context(), start, fmt.Sprintf("Total response for %s %s with status %d", r.Method, r.URL.Path, rw.Status()))
		}()
		next.ServeHTTP(rw, r)
	})
}
