package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type annotations struct {
	mu     sync.Mutex
	fields []zap.Field
}

type ctxKey struct{}

// Annotate adds fields to the access log line of the request carried by ctx.
// It is a no-op outside the logging middleware.
func Annotate(ctx context.Context, fields ...zap.Field) {
	a, ok := ctx.Value(ctxKey{}).(*annotations)
	if !ok {
		return
	}
	a.mu.Lock()
	a.fields = append(a.fields, fields...)
	a.mu.Unlock()
}

func (a *annotations) snapshot() []zap.Field {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]zap.Field(nil), a.fields...)
}
