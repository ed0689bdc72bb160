package auth

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the knobs ProvideAuthentication reads from the environment.
type Config struct {
	SessionAPI    string
	SessionCookie string
	AdminRole     string
	DevBypass     bool

	AssertCookie   string
	AssertKeyURL   string // JWKS or PEM endpoint
	AssertKeyKID   string
	AssertIssuer   string
	AssertAudience string
	AssertLeeway   time.Duration
}

func ConfigFromEnv() Config {
	leeway := 60 * time.Second
	if v := strings.TrimSpace(os.Getenv("ASSERTION_LEEWAY_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			leeway = time.Duration(n) * time.Second
		}
	}
	return Config{
		SessionAPI:     os.Getenv("SESSION_STATE_API"),
		SessionCookie:  os.Getenv("SESSION_COOKIE_NAME"),
		AdminRole:      os.Getenv("ADMIN_ROLE_NAME"),
		DevBypass:      os.Getenv("AUTH_DEV_BYPASS") == "true",
		AssertCookie:   strings.TrimSpace(os.Getenv("ASSERTION_COOKIE_NAME")),
		AssertKeyURL:   strings.TrimSpace(os.Getenv("ASSERTION_KEY_URL")),
		AssertKeyKID:   strings.TrimSpace(os.Getenv("ASSERTION_KEY_KID")),
		AssertIssuer:   strings.TrimSpace(os.Getenv("ASSERTION_ISSUER")),
		AssertAudience: strings.TrimSpace(os.Getenv("ASSERTION_AUDIENCE")),
		AssertLeeway:   leeway,
	}
}
