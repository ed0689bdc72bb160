package core

import (
	"context"
	"net/http"
	"time"
)

// withTimeout puts a deadline of ms milliseconds on the request context; zero
// leaves next unbounded. A procedure that returns the context error is
// answered with 504.
func withTimeout(next http.HandlerFunc, ms int) http.HandlerFunc {
	if ms <= 0 {
		return next
	}
	limit := time.Duration(ms) * time.Millisecond
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), limit)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}
