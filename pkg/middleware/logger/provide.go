package logger

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ProvideLoggerMiddleware returns the access log middleware.
func ProvideLoggerMiddleware() *Middleware { return &Middleware{} }

// ProvideLogger is the system logger, written to LOG_DIR/system.log.
func ProvideLogger() *zap.Logger { return NewLog("system.log") }

var Module = fx.Options(
	fx.Provide(ProvideLoggerMiddleware, ProvideLogger),
)
