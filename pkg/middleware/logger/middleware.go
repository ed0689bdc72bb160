package logger

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/steeze-rpc/pkg/middleware/auth"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Middleware struct{}

// Middleware writes one access log line per request. Handlers add fields
// through Annotate. 5xx responses log at error level, 4xx at warn.
func (m *Middleware) Middleware(ca *auth.Middleware) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimd.NewWrapResponseWriter(w, r.ProtoMajor)
			body := captureBody(r)

			notes := &annotations{}
			r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, notes))

			start := time.Now()
			defer func() {
				fields := append(accessFields(r, ca, ww, time.Since(start)), notes.snapshot()...)
				if shouldLogBody(r, body) {
					fields = append(fields, zap.ByteString("requestData", body))
				}
				if ce := httpAccessLogger().Check(levelFor(ww.Status()), "http request"); ce != nil {
					ce.Write(fields...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// captureBody reads an allowlisted body and puts an identical reader back.
func captureBody(r *http.Request) []byte {
	if r.Body == nil || !shouldCaptureBody(r) {
		return nil
	}
	b, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		b = nil
	}
	r.Body = io.NopCloser(bytes.NewReader(b))
	return b
}

func accessFields(r *http.Request, ca *auth.Middleware, ww chimd.WrapResponseWriter, lat time.Duration) []zap.Field {
	user := auth.Guest()
	if ca != nil {
		user = ca.GetUser(r.Context())
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return []zap.Field{
		zap.String("requestId", chimd.GetReqID(r.Context())),
		zap.String("httpScheme", scheme),
		zap.Bool("isAuthenticated", !user.IsGuest()),
		zap.String("username", user.Username),
		zap.String("role", user.Role.Name),
		zap.String("authenticationProvider", user.AuthenticationSource.Provider),
		zap.String("httpProto", r.Proto),
		zap.String("httpMethod", r.Method),
		zap.String("remoteAddr", r.RemoteAddr),
		zap.String("uri", r.URL.Path),
		zap.Duration("lat", lat),
		zap.Int("responseSize", ww.BytesWritten()),
		zap.Int("status", ww.Status()),
	}
}

func levelFor(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
