package server

import (
	"github.com/nimburion/crudkit/pkg/middleware/exception"
	"github.com/nimburion/crudkit/pkg/middleware/filter"
	"github.com/nimburion/crudkit/pkg/middleware/logging"
	"github.com/nimburion/crudkit/pkg/middleware/metrics"
	"github.com/nimburion/crudkit/pkg/middleware/requestbody"
	"github.com/nimburion/crudkit/pkg/middleware/requestid"
	"github.com/nimburion/crudkit/pkg/middleware/sanitizer"
	"github.com/nimburion/crudkit/pkg/middleware/tracing"
	"github.com/nimburion/crudkit/pkg/observability/logger"
	"github.com/nimburion/crudkit/pkg/platform"
	"github.com/nimburion/crudkit/pkg/server/router"
)

// ModuleOptions configures the interceptor chain.
type ModuleOptions struct {
	// Platform is "gin" or "gorilla"; empty selects gin.
	Platform string
	Logger   logger.Logger

	// Logging defaults to logging.DefaultConfig when nil.
	Logging         *logging.Config
	Tracing         tracing.Config
	MaxRequestBytes int64
}

// Module is the registered CRUD base for one platform: it owns the platform
// capability and the interceptors and filter wrapped around every route.
type Module struct {
	platform platform.Platform
	log      logger.Logger
	opts     ModuleOptions
}

// NewModule resolves the platform. Unknown platform names are rejected. A nil
// Logger falls back to the default zap logger.
func NewModule(opts ModuleOptions) (*Module, error) {
	p, err := platform.New(opts.Platform)
	if err != nil {
		return nil, err
	}
	if opts.Logging == nil {
		cfg := logging.DefaultConfig()
		opts.Logging = &cfg
	}
	if opts.MaxRequestBytes <= 0 {
		opts.MaxRequestBytes = requestbody.DefaultMaxBytes
	}
	opts.Logger = logger.OrDefault(opts.Logger)
	return &Module{platform: p, log: opts.Logger, opts: opts}, nil
}

// Platform returns the resolved platform.
func (m *Module) Platform() platform.Platform {
	return m.platform
}

// Middleware returns the chain outermost first: filter, request id, tracing,
// metrics, logging, exception, sanitizer, request body.
func (m *Module) Middleware() []router.MiddlewareFunc {
	return []router.MiddlewareFunc{
		filter.Filter(m.platform, m.log),
		requestid.RequestID(),
		tracing.Tracing(m.opts.Tracing),
		metrics.Metrics(),
		logging.WithConfig(m.log, *m.opts.Logging),
		exception.Exception(m.platform, m.log),
		sanitizer.Sanitizer(m.log),
		requestbody.WithConfig(requestbody.Config{MaxBytes: m.opts.MaxRequestBytes}),
	}
}

// Install applies the chain to r. Call it before registering routes.
func (m *Module) Install(r router.Router) {
	r.Use(m.Middleware()...)
}

// NewRouter returns a platform router with the chain installed.
func (m *Module) NewRouter() router.Router {
	r := m.platform.NewRouter()
	m.Install(r)
	return r
}
