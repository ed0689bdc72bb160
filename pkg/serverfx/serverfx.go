package serverfx

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joeydtaylor/steeze-rpc/pkg/bundlefx"
	"github.com/joeydtaylor/steeze-rpc/pkg/core"
	"github.com/joeydtaylor/steeze-rpc/pkg/manifest"
	"github.com/joeydtaylor/steeze-rpc/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-rpc/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-rpc/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-rpc/pkg/reqctx"
	"github.com/joeydtaylor/steeze-rpc/pkg/transport/httpx"
	"github.com/joeydtaylor/steeze-rpc/pkg/whitelist"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Options allow per-service env keys/defaults without code duplication.
type Options struct {
	Service         string // for logs only
	ManifestEnv     string // e.g. "RPC_MANIFEST"
	DefaultManifest string // e.g. "manifest.toml"; missing file means defaults
	ListenAddrEnv   string // e.g. "SERVER_LISTEN_ADDRESS"
	DefaultListen   string // e.g. ":4000"
	TLSCertEnv      string // e.g. "SSL_SERVER_CERTIFICATE"
	TLSKeyEnv       string // e.g. "SSL_SERVER_KEY"
	TestModeEnv     string // "true" turns on argument validation outside requests
}

// DefaultOptions are the env keys used by cmd/rpcd.
func DefaultOptions() Options {
	return Options{
		Service:         "rpcd",
		ManifestEnv:     "RPC_MANIFEST",
		DefaultManifest: "manifest.toml",
		ListenAddrEnv:   "SERVER_LISTEN_ADDRESS",
		DefaultListen:   ":4000",
		TLSCertEnv:      "SSL_SERVER_CERTIFICATE",
		TLSKeyEnv:       "SSL_SERVER_KEY",
		TestModeEnv:     "RPC_IN_TEST",
	}
}

// ---- Registry ----

func provideFlags(opts Options) *reqctx.Flags {
	f := &reqctx.Flags{}
	if opts.TestModeEnv != "" {
		f.SetInTest(strings.EqualFold(os.Getenv(opts.TestModeEnv), "true"))
	}
	return f
}

func provideRegistry(flags *reqctx.Flags, log *zap.Logger) *whitelist.Registry {
	reg := whitelist.New(
		whitelist.WithOracle(reqctx.NewOracle(flags)),
		whitelist.WithLogger(log),
	)
	if err := metrics.TrackWhitelisted(reg.Len); err != nil {
		log.Warn("whitelisted gauge not registered", zap.Error(err))
	}
	return reg
}

// ---- Manifest ----

func provideManifest(opts Options, log *zap.Logger) (manifest.Config, error) {
	if p := strings.TrimSpace(os.Getenv(opts.ManifestEnv)); opts.ManifestEnv != "" && p != "" {
		cfg, err := core.LoadConfig(p)
		if err != nil {
			return manifest.Config{}, fmt.Errorf("manifest %s: %w", p, err)
		}
		log.Info("manifest loaded", zap.String("path", p), zap.Int("routes", len(cfg.Routes)))
		return cfg, nil
	}
	cfg, err := core.LoadConfigOrDefault(opts.DefaultManifest)
	if err != nil {
		return manifest.Config{}, fmt.Errorf("manifest %s: %w", opts.DefaultManifest, err)
	}
	log.Info("manifest loaded", zap.String("path", opts.DefaultManifest), zap.Int("routes", len(cfg.Routes)))
	return cfg, nil
}

// ---- Router ----

type routerDeps struct {
	fx.In

	Config   manifest.Config
	AuthMW   *auth.Middleware
	LogMW    *logger.Middleware
	Metrics  http.Handler `name:"metrics"`
	R        httpx.Router
	Registry *whitelist.Registry
	Log      *zap.Logger
}

func provideRouter(d routerDeps) http.Handler {
	return core.BuildRouter(d.Config, core.BuildDeps{
		Auth:     d.AuthMW,
		LogMW:    d.LogMW,
		Metrics:  d.Metrics,
		Router:   d.R,
		Registry: d.Registry,
		Log:      d.Log,
	})
}

// ---- Server lifecycle ----

type serverDeps struct {
	fx.In
	Opts     Options
	Logger   *zap.Logger
	App      http.Handler `name:"app"`
	Registry *whitelist.Registry
}

func registerHooks(lc fx.Lifecycle, d serverDeps) {
	addr := envOr(d.Opts.ListenAddrEnv, d.Opts.DefaultListen)
	cert := os.Getenv(d.Opts.TLSCertEnv)
	key := os.Getenv(d.Opts.TLSKeyEnv)

	srv := &http.Server{
		Addr:         addr,
		Handler:      d.App,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		TLSConfig:    &tls.Config{MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13},
	}
	useTLS := fileExists(cert) && fileExists(key)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			d.Logger.Info("procedures whitelisted",
				zap.String("service", d.Opts.Service),
				zap.Int("count", d.Registry.Len()),
			)
			if useTLS {
				d.Logger.Info("server starting (TLS)",
					zap.String("service", d.Opts.Service),
					zap.String("addr", addr),
					zap.String("cert", cert),
				)
				go func() {
					if err := srv.ListenAndServeTLS(cert, key); err != nil && !errors.Is(err, http.ErrServerClosed) {
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			} else {
				d.Logger.Info("server starting (PLAINTEXT)",
					zap.String("service", d.Opts.Service),
					zap.String("addr", addr),
				)
				srv.TLSConfig = nil
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("server stopping", zap.String("service", d.Opts.Service))
			return srv.Shutdown(ctx)
		},
	})
}

// ---- Public Fx module ----

// Module wires the registry, middleware, router and HTTP server. Register
// procedures with an fx.Invoke that takes *whitelist.Registry.
func Module(opts Options) fx.Option {
	return fx.Options(
		fx.Supply(opts),

		bundlefx.Module,

		fx.Provide(httpx.NewChi),
		fx.Provide(provideFlags),
		fx.Provide(provideRegistry),
		fx.Provide(provideManifest),

		// Router (named "app")
		fx.Provide(
			fx.Annotate(
				provideRouter,
				fx.ResultTags(`name:"app"`),
			),
		),

		fx.Invoke(registerHooks),
	)
}

// ---- helpers ----

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
