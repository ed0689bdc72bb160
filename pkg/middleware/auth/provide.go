package auth

import (
	"context"
	"crypto/rsa"
	"net/http"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

type Middleware struct {
	cfg        Config
	httpClient HTTPDoer
	log        *zap.Logger

	// guarded by mu
	mu         sync.RWMutex
	assertKey  *rsa.PublicKey
	assertETag string
	cacheTTL   time.Duration
	lastFetch  time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// New builds a Middleware without touching the network.
func New(cfg Config, hc HTTPDoer, log *zap.Logger) *Middleware {
	if cfg.AssertCookie == "" {
		cfg.AssertCookie = "assert"
	}
	if hc == nil {
		hc = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
			Timeout: 8 * time.Second,
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Middleware{
		cfg:        cfg,
		httpClient: hc,
		log:        log,
		cacheTTL:   1 * time.Hour, // default; overridable by Cache-Control
		stop:       make(chan struct{}),
	}
}

// ProvideAuthentication wires env config and, when a key URL is set, fetches
// the assertion key and keeps it fresh until the app stops. A failed first
// fetch is logged, not fatal: callers then authenticate via session or not
// at all (guest).
func ProvideAuthentication(lc fx.Lifecycle, log *zap.Logger) *Middleware {
	m := New(ConfigFromEnv(), nil, log)
	if m.cfg.AssertKeyURL != "" {
		if err := m.refreshAssertionKey(context.Background()); err != nil {
			log.Warn("assertion key fetch failed", zap.String("url", m.cfg.AssertKeyURL), zap.Error(err))
		} else {
			go m.backgroundRefresh()
		}
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		m.Stop()
		return nil
	}})
	return m
}

// Stop ends background key refresh.
func (m *Middleware) Stop() { m.stopOnce.Do(func() { close(m.stop) }) }

var Module = fx.Options(
	fx.Provide(ProvideAuthentication),
)
