package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/templui/fileshare/internal/ctxkeys"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with an id, reusing a well-formed incoming
// X-Request-ID so ids survive a proxy hop.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctxkeys.WithRequestID(r.Context(), id)))
	})
}
