package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joeydtaylor/steeze-rpc/pkg/codec"
	manifest "github.com/joeydtaylor/steeze-rpc/pkg/manifest"
	"github.com/joeydtaylor/steeze-rpc/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-rpc/pkg/middleware/logger"
	hmetrics "github.com/joeydtaylor/steeze-rpc/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-rpc/pkg/typecheck"
	"github.com/joeydtaylor/steeze-rpc/pkg/whitelist"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// ArgsParam carries the JSON argument payload on GET requests.
const ArgsParam = "args"

type dispatcher struct {
	reg      *whitelist.Registry
	auth     *auth.Middleware
	codec    codec.Codec
	maxBody  int64
	sanitize bool
	policy   *bluemonday.Policy
	log      *zap.Logger
}

func newDispatcher(cfg manifest.Config, d BuildDeps) *dispatcher {
	reg := d.Registry
	if reg == nil {
		reg = whitelist.New()
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &dispatcher{
		reg:      reg,
		auth:     d.Auth,
		codec:    cfg.Server.ArgCodec(),
		maxBody:  cfg.Server.MaxBodyBytes,
		sanitize: !cfg.Sanitize.Disabled,
		policy:   bluemonday.StrictPolicy(),
		log:      log,
	}
}

func (d *dispatcher) guest(r *http.Request) bool {
	if d.auth == nil {
		return true
	}
	return !d.auth.IsAuthenticated(r.Context())
}

func (d *dispatcher) handler(resolve func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		name := resolve(r)
		logger.Annotate(ctx, zap.String("procedure", name))

		p, ok := d.reg.Resolve(name)
		if !ok {
			// unknown names share one label to bound metric cardinality
			d.fail(w, "_unknown", http.StatusNotFound, ErrUnknownProcedure)
			return
		}
		if !d.reg.IsWhitelisted(p.ID) {
			d.fail(w, p.Name, http.StatusForbidden, ErrNotWhitelisted)
			return
		}
		if !d.reg.MethodAllowed(p.ID, r.Method) {
			w.Header().Set("Allow", strings.Join(d.reg.AllowedMethods(p.ID), ", "))
			d.fail(w, p.Name, http.StatusMethodNotAllowed, ErrMethodNotAllowed)
			return
		}
		guest := d.guest(r)
		if guest && !d.reg.IsGuestAllowed(p.ID) {
			d.fail(w, p.Name, http.StatusForbidden, ErrGuestNotAllowed)
			return
		}

		raw, err := d.readArgs(w, r)
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				d.fail(w, p.Name, http.StatusRequestEntityTooLarge, err)
				return
			}
			d.fail(w, p.Name, http.StatusBadRequest, err)
			return
		}

		hardened := guest && !d.reg.IsXSSSafe(p.ID)
		if hardened && d.sanitize {
			if raw, err = sanitizeJSON(raw, d.policy); err != nil {
				d.reject(w, p.Name, fmt.Errorf("%w: %v", typecheck.ErrUnsupportedIn, err))
				return
			}
		}

		start := time.Now()
		out, err := p.Invoke(ctx, raw, d.codec)
		hmetrics.ObserveDuration(p.Name, time.Since(start))
		if err != nil {
			var ate *typecheck.ArgumentTypeError
			if errors.As(err, &ate) {
				d.reject(w, p.Name, err)
				return
			}
			status := statusOf(err)
			d.log.Warn("procedure failed",
				zap.String("procedure", p.Name),
				zap.Int("status", status),
				zap.Error(err),
			)
			d.fail(w, p.Name, status, err)
			return
		}

		hmetrics.ObserveCall(p.Name, http.StatusOK)
		writeJSON(w, response{Message: out}, http.StatusOK, hardened)
	}
}

// statusOf maps a procedure error to a response status.
func statusOf(err error) int {
	var sc StatusCoder
	switch {
	case errors.As(err, &sc):
		return statusIf(sc.StatusCode(), http.StatusInternalServerError)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// readArgs returns the raw argument payload. GET and HEAD read the args
// query parameter; other verbs read the body and fall back to the query.
func (d *dispatcher) readArgs(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	q := r.URL.Query().Get(ArgsParam)
	if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Body == nil {
		return []byte(q), nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, d.maxBody))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return []byte(q), nil
	}
	return body, nil
}

func (d *dispatcher) reject(w http.ResponseWriter, name string, err error) {
	hmetrics.ObserveRejection(name)
	d.fail(w, name, http.StatusBadRequest, err)
}

func (d *dispatcher) fail(w http.ResponseWriter, name string, status int, err error) {
	hmetrics.ObserveCall(name, status)
	writeError(w, status, err.Error())
}
