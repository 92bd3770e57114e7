package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimburion/crudkit/pkg/config"
	"github.com/nimburion/crudkit/pkg/health"
	"github.com/nimburion/crudkit/pkg/middleware/logging"
	"github.com/nimburion/crudkit/pkg/middleware/tracing"
	"github.com/nimburion/crudkit/pkg/observability/logger"
	"github.com/nimburion/crudkit/pkg/observability/metrics"
	obstracing "github.com/nimburion/crudkit/pkg/observability/tracing"
	"github.com/nimburion/crudkit/pkg/server/router"
	"github.com/nimburion/crudkit/pkg/version"
)

// LifecycleHook defines a named startup/shutdown action.
type LifecycleHook struct {
	Name string
	Fn   func(context.Context) error
}

// RunOptions defines inputs for building and running the HTTP servers.
type RunOptions struct {
	Config *config.Config
	Logger logger.Logger

	// Routes registers the controllers on the public router, after the
	// interceptor chain is installed.
	Routes func(r router.Router)

	HealthRegistry  *health.Registry
	MetricsRegistry *metrics.Registry

	StartupHooks        []LifecycleHook
	ShutdownHooks       []LifecycleHook
	ShutdownHookTimeout time.Duration
}

// HTTPServers groups the runtime public and management servers.
type HTTPServers struct {
	Module     *Module
	Public     *Server
	Management *ManagementServer
}

// managementPrefixes are kept out of request logs and spans on the public
// router when both servers share a platform.
var managementPrefixes = []string{"/health", "/ready", "/metrics"}

// BuildHTTPServers resolves the platform, installs the interceptor chain,
// registers the routes and builds the management server when enabled.
func BuildHTTPServers(opts *RunOptions) (*HTTPServers, error) {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	opts.Logger = logger.OrDefault(opts.Logger)

	logCfg := logging.DefaultConfig()
	logCfg.Enabled = opts.Config.Observability.RequestLogEnabled
	logCfg.Output = logging.ParseOutput(opts.Config.Observability.RequestLogOutput)
	logCfg.ExcludedPathPrefixes = managementPrefixes
	module, err := NewModule(ModuleOptions{
		Platform:        opts.Config.Platform,
		Logger:          opts.Logger,
		Logging:         &logCfg,
		Tracing:         tracing.Config{TracerName: opts.Config.Service.Name, ExcludedPathPrefixes: managementPrefixes},
		MaxRequestBytes: opts.Config.HTTP.MaxRequestSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create module: %w", err)
	}

	public := module.NewRouter()
	if opts.Routes != nil {
		opts.Routes(public)
	}

	servers := &HTTPServers{
		Module: module,
		Public: NewServer("public", Config{
			Port:            opts.Config.HTTP.Port,
			ReadTimeout:     opts.Config.HTTP.ReadTimeout,
			WriteTimeout:    opts.Config.HTTP.WriteTimeout,
			IdleTimeout:     opts.Config.HTTP.IdleTimeout,
			ShutdownTimeout: opts.Config.HTTP.ShutdownTimeout,
		}, public, opts.Logger),
	}
	if !opts.Config.Management.Enabled {
		return servers, nil
	}

	healthRegistry := opts.HealthRegistry
	if healthRegistry == nil {
		healthRegistry = health.NewRegistry()
	}
	metricsRegistry := opts.MetricsRegistry
	if metricsRegistry == nil {
		metricsRegistry = metrics.NewRegistry()
	}
	servers.Management = NewManagementServer(
		opts.Config.Management,
		module.Platform(),
		opts.Logger,
		healthRegistry,
		metricsRegistry,
		version.Current(resolveServiceName(opts)),
	)
	return servers, nil
}

// RunHTTPServers starts the public server and, when built, the management
// server. The first failure cancels the other; cancelling ctx shuts both
// down gracefully.
func RunHTTPServers(ctx context.Context, servers *HTTPServers, opts *RunOptions) error {
	if servers == nil || servers.Public == nil {
		return errors.New("servers and public server are required")
	}
	if opts.Logger == nil {
		return errors.New("logger is required")
	}
	if opts.Config == nil {
		return errors.New("config is required")
	}

	info := version.Current(resolveServiceName(opts))
	opts.Logger.Info("application version metadata", info.LogFields()...)
	opts.Logger.Info("platform selected", "platform", servers.Module.Platform().Name())

	tracerProvider, err := initTracerProvider(ctx, opts.Config, info)
	if err != nil {
		return fmt.Errorf("initialize tracing provider: %w", err)
	}
	defer shutdownTracerProvider(tracerProvider, opts.Logger)

	if err := runStartupHooks(ctx, opts); err != nil {
		return err
	}
	defer func() {
		if shutdownErr := runShutdownHooks(opts); shutdownErr != nil {
			opts.Logger.Error("shutdown hooks completed with errors", "error", shutdownErr)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverCount := 1
	if servers.Management != nil {
		serverCount = 2
	}

	errCh := make(chan error, serverCount)
	go func() { errCh <- servers.Public.Start(runCtx) }()
	if servers.Management != nil {
		go func() { errCh <- servers.Management.Start(runCtx) }()
	}

	var firstErr error
	for idx := 0; idx < serverCount; idx++ {
		if currentErr := <-errCh; currentErr != nil && firstErr == nil {
			firstErr = currentErr
			cancel()
		}
	}
	return firstErr
}

// RunHTTPServersWithSignals runs the servers until SIGINT or SIGTERM (or the
// given signals) arrives.
func RunHTTPServersWithSignals(servers *HTTPServers, opts *RunOptions, signals ...os.Signal) error {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)
	defer stop()
	return RunHTTPServers(ctx, servers, opts)
}

func initTracerProvider(ctx context.Context, cfg *config.Config, info version.Info) (*obstracing.TracerProvider, error) {
	return obstracing.NewTracerProvider(ctx, obstracing.TracerConfig{
		ServiceName:    info.Service,
		ServiceVersion: info.Version,
		Environment:    normalizeOrUnknown(cfg.Service.Environment),
		Endpoint:       cfg.Observability.TracingEndpoint,
		SampleRate:     cfg.Observability.TracingSampleRate,
		Enabled:        cfg.Observability.TracingEnabled,
	})
}

func shutdownTracerProvider(provider *obstracing.TracerProvider, log logger.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := provider.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown tracing provider", "error", err)
	}
}

func resolveServiceName(opts *RunOptions) string {
	if opts.Config != nil {
		return normalizeOrUnknown(opts.Config.Service.Name)
	}
	return version.Unknown
}

func normalizeOrUnknown(v string) string {
	if trimmed := strings.TrimSpace(v); trimmed != "" {
		return trimmed
	}
	return version.Unknown
}

func runStartupHooks(ctx context.Context, opts *RunOptions) error {
	for _, hook := range opts.StartupHooks {
		if hook.Fn == nil {
			continue
		}
		name := hookName(hook)
		opts.Logger.Info("startup hook start", "hook", name)
		if err := hook.Fn(ctx); err != nil {
			opts.Logger.Error("startup hook failed", "hook", name, "error", err)
			return fmt.Errorf("startup hook %q failed: %w", name, err)
		}
		opts.Logger.Info("startup hook complete", "hook", name)
	}
	return nil
}

func runShutdownHooks(opts *RunOptions) error {
	timeout := opts.ShutdownHookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var errs []error
	for _, hook := range opts.ShutdownHooks {
		if hook.Fn == nil {
			continue
		}
		name := hookName(hook)
		opts.Logger.Info("shutdown hook start", "hook", name)

		hookCtx, cancel := context.WithTimeout(context.Background(), timeout)
		err := hook.Fn(hookCtx)
		cancel()

		if err != nil {
			opts.Logger.Error("shutdown hook failed", "hook", name, "error", err)
			errs = append(errs, fmt.Errorf("shutdown hook %q failed: %w", name, err))
			continue
		}
		opts.Logger.Info("shutdown hook complete", "hook", name)
	}
	return errors.Join(errs...)
}

func hookName(hook LifecycleHook) string {
	if name := strings.TrimSpace(hook.Name); name != "" {
		return name
	}
	return "unnamed"
}
