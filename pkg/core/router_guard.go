package core

import (
	"context"
	"net/http"
	"slices"

	manifest "github.com/joeydtaylor/steeze-rpc/pkg/manifest"
	"github.com/joeydtaylor/steeze-rpc/pkg/middleware/auth"
)

// withGuard applies a manifest route guard before the procedure's own guest
// policy is consulted.
func withGuard(next http.HandlerFunc, a *auth.Middleware, g manifest.Guard) http.HandlerFunc {
	if !g.RequireAuth && len(g.Users) == 0 && len(g.Roles) == 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if status := admit(r.Context(), a, g); status != http.StatusOK {
			writeError(w, status, http.StatusText(status))
			return
		}
		next(w, r)
	}
}

// admit returns 200, 401 or 403. Users are checked before roles and admins
// pass any role list.
func admit(ctx context.Context, a *auth.Middleware, g manifest.Guard) int {
	if a == nil || !a.IsAuthenticated(ctx) {
		return http.StatusUnauthorized
	}
	u := a.GetUser(ctx)
	switch {
	case len(g.Users) > 0:
		if slices.Contains(g.Users, u.Username) {
			return http.StatusOK
		}
		return http.StatusForbidden
	case len(g.Roles) > 0:
		if a.IsAdmin(ctx) || slices.Contains(g.Roles, u.Role.Name) {
			return http.StatusOK
		}
		return http.StatusForbidden
	}
	return http.StatusOK
}
