package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/middleware"
	"github.com/joeydtaylor/steeze-rpc/pkg/middleware/auth"
)

// guestRole labels requests that carry no credentials.
const guestRole = "guest"

// Collect records the HTTP counters and the response time histogram for
// every request outside the skip list.
func Collect(ca *auth.Middleware) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSkipPath(r) {
				next.ServeHTTP(w, r)
				return
			}
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			record(r, ww.Status(), callerRole(ca, r), time.Since(start))
		})
	}
}

func callerRole(ca *auth.Middleware, r *http.Request) string {
	if ca == nil {
		return guestRole
	}
	u := ca.GetUser(r.Context())
	if u.IsGuest() {
		return guestRole
	}
	return u.Role.Name
}

func record(r *http.Request, status int, role string, elapsed time.Duration) {
	if status == 0 {
		status = http.StatusOK
	}
	code := strconv.Itoa(status)
	totalHttpRequestsFromRole.WithLabelValues(role).Inc()
	totalHttpRequestsToUri.WithLabelValues(code, normalizePath(r), r.Method).Inc()
	totalHttpRequests.WithLabelValues(code, r.Method).Inc()
	responseTime.Observe(elapsed.Seconds())
}
