package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/stockroom/pkg/ctxutil"
)

// RequestID reuses the caller's request ID header, or generates one, stores
// it in the request context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(ctxutil.RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		ctx := ctxutil.WithRequestID(r.Context(), id)
		w.Header().Set(ctxutil.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
