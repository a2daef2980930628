package middleware

import (
	"net/http"
	"slices"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h so the first middleware sees the request first:
//
//	handler := Chain(mux,
//	    RequestID,            // outermost
//	    RequestLogging,
//	    CSRFProtection(prod),
//	    AuthMiddleware(auth),
//	    Metrics,              // innermost, after the mux sets r.Pattern
//	)
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for _, mw := range slices.Backward(middlewares) {
		h = mw(h)
	}
	return h
}
