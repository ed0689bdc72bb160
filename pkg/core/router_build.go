package core

import (
	"net/http"

	chimd "github.com/go-chi/chi/v5/middleware"
	manifest "github.com/joeydtaylor/steeze-rpc/pkg/manifest"
	hmetrics "github.com/joeydtaylor/steeze-rpc/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-rpc/pkg/reqctx"
	httpx "github.com/joeydtaylor/steeze-rpc/pkg/transport/httpx"
	"go.uber.org/zap"
)

// BuildRouter mounts every whitelisted procedure under
// {api_prefix}/{name} plus the manifest's friendly routes. Procedures are
// resolved per request, so registrations made after BuildRouter are served.
func BuildRouter(cfg manifest.Config, d BuildDeps) http.Handler {
	if err := cfg.Validate(); err != nil && d.Log != nil {
		d.Log.Error("manifest invalid; serving with normalized defaults", zap.Error(err))
	}
	if d.Router == nil {
		d.Router = httpx.NewChi()
	}
	r := d.Router
	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat("/ping"), reqctx.Middleware)

	if d.Auth != nil {
		r.Use(d.Auth.Middleware())
	}
	if d.LogMW != nil {
		r.Use(d.LogMW.Middleware(d.Auth))
	}
	r.Use(hmetrics.Collect(d.Auth))

	if d.Metrics != nil {
		r.Handle(http.MethodGet, "/metrics", d.Metrics)
	}

	disp := newDispatcher(cfg, d)
	api := disp.handler(func(r *http.Request) string { return httpx.URLParam(r, "name") })
	r.Any(cfg.Server.APIPrefix+"/{name}", withTimeout(api, cfg.Server.TimeoutMS))

	for _, rt := range cfg.Routes {
		name := rt.Procedure
		h := disp.handler(func(*http.Request) string { return name })
		ms := rt.TimeoutMS
		if ms == 0 {
			ms = cfg.Server.TimeoutMS
		}
		h = withTimeout(h, ms)
		g := manifest.Guard{}
		if rt.Guard != nil {
			g = *rt.Guard
		}
		h = withGuard(h, d.Auth, g)
		r.Any(rt.Path, h)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r.Mux()
}
