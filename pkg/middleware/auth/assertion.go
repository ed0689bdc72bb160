package auth

import (
	"errors"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

type assertionClaims struct {
	jwt.RegisteredClaims
	Ver   int      `json:"ver"`
	SID   string   `json:"sid"`
	UID   string   `json:"uid"`
	Org   string   `json:"org"`
	Roles []string `json:"roles"`
	Role  string   `json:"role"`
}

func (m *Middleware) validateAssertion(raw string) (User, error) {
	pub := m.getKey()
	if pub == nil {
		return User{}, errors.New("assertion key not configured")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.cfg.AssertLeeway),
	)

	var claims assertionClaims
	tok, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return pub, nil
	})
	if err != nil || !tok.Valid {
		return User{}, errors.New("invalid assertion")
	}

	if m.cfg.AssertIssuer != "" && claims.Issuer != m.cfg.AssertIssuer {
		return User{}, errors.New("bad issuer")
	}
	if m.cfg.AssertAudience != "" && !slices.Contains(claims.Audience, m.cfg.AssertAudience) {
		return User{}, errors.New("bad audience")
	}

	username := first(claims.UID, claims.Subject)
	if username == "" {
		return User{}, errors.New("missing uid")
	}
	if username == GuestUsername {
		return User{}, errors.New("assertion names the guest user")
	}

	return User{
		Username:             username,
		AuthenticationSource: AuthenticationSource{Provider: "assert"},
		Role:                 Role{Name: first(append([]string{claims.Role}, claims.Roles...)...)},
	}, nil
}

// first returns the first non-empty string.
func first(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
