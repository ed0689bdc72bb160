package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// errSessionRejected means a session cookie was presented and refused.
var errSessionRejected = errors.New("session rejected")

// Middleware resolves the caller and stores it on the request context.
// Requests without usable credentials continue as Guest; a rejected session
// cookie is answered with 401.
func (m *Middleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := m.authenticate(r)
			switch {
			case errors.Is(err, errSessionRejected):
				m.log.Debug("session rejected", zap.String("path", r.URL.Path), zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
			case u.IsGuest():
				next.ServeHTTP(w, r)
			default:
				next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u)))
			}
		})
	}
}

// authenticate tries, in order: dev headers (DevBypass only), the assertion
// cookie, the session API.
func (m *Middleware) authenticate(r *http.Request) (User, error) {
	if m.cfg.DevBypass {
		if u := devUserFromHeaders(r); !u.IsGuest() {
			return u, nil
		}
	}
	if ac, _ := r.Cookie(m.cfg.AssertCookie); ac != nil && ac.Value != "" && m.getKey() != nil {
		// an invalid assertion falls through to the session
		if u, err := m.validateAssertion(ac.Value); err == nil && !u.IsGuest() {
			return u, nil
		}
	}
	if m.cfg.SessionCookie == "" {
		return User{}, nil
	}
	c, err := r.Cookie(m.cfg.SessionCookie)
	if err != nil || c.Value == "" {
		return User{}, nil
	}
	u, err := m.validateSession(r.Context(), c)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", errSessionRejected, err)
	}
	if u.IsGuest() {
		return User{}, errSessionRejected
	}
	return u, nil
}

func withUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userCtxKey, u)
}

func (m *Middleware) validateSession(ctx context.Context, c *http.Cookie) (User, error) {
	if m.cfg.SessionAPI == "" {
		return User{}, errors.New("SESSION_STATE_API not set")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.SessionAPI, nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(c)

	res, err := m.httpClient.Do(req)
	if err != nil {
		return User{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return User{}, fmt.Errorf("session api status %d", res.StatusCode)
	}

	var u User
	if err := json.NewDecoder(res.Body).Decode(&u); err != nil {
		return User{}, err
	}
	return u, nil
}
