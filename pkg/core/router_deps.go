package core

import (
	"net/http"

	"github.com/joeydtaylor/steeze-rpc/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-rpc/pkg/middleware/logger"
	httpx "github.com/joeydtaylor/steeze-rpc/pkg/transport/httpx"
	"github.com/joeydtaylor/steeze-rpc/pkg/whitelist"
	"go.uber.org/zap"
)

type BuildDeps struct {
	Auth     *auth.Middleware
	LogMW    *logger.Middleware
	Metrics  http.Handler
	Router   httpx.Router
	Registry *whitelist.Registry
	Log      *zap.Logger
}
