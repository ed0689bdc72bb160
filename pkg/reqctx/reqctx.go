// Package reqctx answers whether a call is running inside a live HTTP request
// or a test run. The answer gates argument validation on whitelisted
// procedures.
package reqctx

import (
	"context"
	"net/http"
	"sync/atomic"
)

type contextKey struct{ name string }

var requestCtxKey = &contextKey{"request"}

// Oracle reports whether a request or test context is active for ctx.
// It is evaluated on every call, never cached.
type Oracle func(ctx context.Context) bool

// Flags carries process-local switches. The zero value is ready to use.
type Flags struct {
	inTest atomic.Bool
}

func (f *Flags) SetInTest(v bool) { f.inTest.Store(v) }
func (f *Flags) InTest() bool     { return f != nil && f.inTest.Load() }

// WithRequest marks ctx as belonging to r.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestCtxKey, r)
}

// RequestFrom returns the request stored by WithRequest, or nil.
func RequestFrom(ctx context.Context) *http.Request {
	if ctx == nil {
		return nil
	}
	r, _ := ctx.Value(requestCtxKey).(*http.Request)
	return r
}

// InRequest is the request-only oracle.
func InRequest(ctx context.Context) bool { return RequestFrom(ctx) != nil }

// NewOracle returns an oracle that is active inside a request or while
// flags report a test run.
func NewOracle(flags *Flags) Oracle {
	return func(ctx context.Context) bool {
		return InRequest(ctx) || flags.InTest()
	}
}

// Middleware installs the request marker for downstream handlers.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithRequest(r.Context(), r)))
	})
}
