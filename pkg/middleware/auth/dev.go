package auth

import "net/http"

const (
	devUserHeader     = "X-Dev-User"
	devRoleHeader     = "X-Dev-Role"
	devProviderHeader = "X-Dev-Provider"
)

// devUserFromHeaders reads a caller identity from X-Dev-* headers. Only
// consulted when Config.DevBypass is set. Claiming the guest name yields no
// user, so the request stays a guest request.
func devUserFromHeaders(r *http.Request) User {
	u := User{
		Username:             r.Header.Get(devUserHeader),
		AuthenticationSource: AuthenticationSource{Provider: r.Header.Get(devProviderHeader)},
		Role:                 Role{Name: r.Header.Get(devRoleHeader)},
	}
	if u.IsGuest() {
		return User{}
	}
	if u.AuthenticationSource.Provider == "" {
		u.AuthenticationSource.Provider = "dev"
	}
	return u
}
