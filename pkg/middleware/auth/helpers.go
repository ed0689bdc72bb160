package auth

import "context"

type contextKey struct{ name string }

var userCtxKey = &contextKey{"user"}

// GetUser returns the authenticated user, or Guest().
func (m *Middleware) GetUser(ctx context.Context) User {
	if u, ok := ctx.Value(userCtxKey).(User); ok && u.Username != "" {
		return u
	}
	return Guest()
}

func (m *Middleware) IsRole(ctx context.Context, role Role) bool {
	if u, ok := ctx.Value(userCtxKey).(User); ok {
		return u.Role.Name == role.Name || (m.cfg.AdminRole != "" && u.Role.Name == m.cfg.AdminRole)
	}
	return false
}

func (m *Middleware) IsAdmin(ctx context.Context) bool {
	if u, ok := ctx.Value(userCtxKey).(User); ok && m.cfg.AdminRole != "" {
		return u.Role.Name == m.cfg.AdminRole
	}
	return false
}

func (m *Middleware) IsUser(ctx context.Context, username string) bool {
	if u, ok := ctx.Value(userCtxKey).(User); ok {
		return u.Username == username || (m.cfg.AdminRole != "" && u.Role.Name == m.cfg.AdminRole)
	}
	return false
}

func (m *Middleware) IsAuthenticated(ctx context.Context) bool {
	u, ok := ctx.Value(userCtxKey).(User)
	return ok && !u.IsGuest()
}
