// bundlefx/bundlefx.go
package bundlefx

import (
	"github.com/joeydtaylor/steeze-rpc/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-rpc/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-rpc/pkg/middleware/metrics"
	"go.uber.org/fx"
)

// Module provides the middleware stack: auth, logging and the named
// "metrics" handler.
var Module = fx.Options(
	auth.Module,
	logger.Module,
	metrics.Module,
)
