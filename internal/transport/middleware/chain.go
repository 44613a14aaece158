// Package middleware holds the HTTP middleware of the development inventory
// API: request IDs, access logging and panic recovery.
package middleware

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain composes mws so the first one is outermost. The dev API uses
// Chain(RequestID, Logger, Recovery): the request ID is set before the access
// log line is written, and a recovered panic is still logged with its status.
func Chain(mws ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}
