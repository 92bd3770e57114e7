// Package logging records one line per completed request.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nimburion/crudkit/pkg/middleware"
	"github.com/nimburion/crudkit/pkg/observability/logger"
	"github.com/nimburion/crudkit/pkg/server/router"
)

// Output defines where request logs are written: the injected logger, or a
// dedicated JSON logger on stdout or stderr.
type Output string

const (
	OutputLogger Output = "logger"
	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
)

// Log field names.
const (
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldURL        = "url"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldRemoteAddr = "remote_addr"
	FieldError      = "error"
)

// Config configures the request logger.
type Config struct {
	Enabled              bool
	Output               Output
	ExcludedPathPrefixes []string
}

// DefaultConfig logs every request through the injected logger.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Output:  OutputLogger,
	}
}

// Logging creates middleware with default configuration.
func Logging(log logger.Logger) router.MiddlewareFunc {
	return WithConfig(log, DefaultConfig())
}

// WithConfig logs "<METHOD> - <status>: <url> - <ms>ms" after the handler
// returns. Requests answered with 5xx are logged at error level.
func WithConfig(log logger.Logger, cfg Config) router.MiddlewareFunc {
	requestLog := outputLogger(log, parseOutput(cfg.Output))

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			if !cfg.Enabled || middleware.Excluded(req.URL.Path, cfg.ExcludedPathPrefixes) {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			elapsed := time.Since(start)
			status := middleware.Status(c, err)

			url := req.URL.RequestURI()
			msg := fmt.Sprintf("%s - %d: %s - %dms", req.Method, status, url, elapsed.Milliseconds())
			fields := []any{
				FieldRequestID, logger.RequestIDFromContext(c.Request().Context()),
				FieldMethod, req.Method,
				FieldPath, req.URL.Path,
				FieldURL, url,
				FieldStatus, status,
				FieldDurationMS, elapsed.Milliseconds(),
				FieldRemoteAddr, req.RemoteAddr,
			}
			if err != nil {
				fields = append(fields, FieldError, err.Error())
			}

			if status >= 500 {
				requestLog.Error(msg, fields...)
			} else {
				requestLog.Info(msg, fields...)
			}
			return err
		}
	}
}

// ParseOutput normalizes a configured output name; unknown names mean
// OutputLogger.
func ParseOutput(output string) Output {
	return parseOutput(Output(output))
}

func parseOutput(output Output) Output {
	switch strings.ToLower(strings.TrimSpace(string(output))) {
	case string(OutputStdout):
		return OutputStdout
	case string(OutputStderr):
		return OutputStderr
	default:
		return OutputLogger
	}
}

// Stream writers for OutputStdout and OutputStderr.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// outputLogger returns log for OutputLogger, otherwise a JSON zap logger on
// the selected stream.
func outputLogger(log logger.Logger, output Output) logger.Logger {
	var w io.Writer
	switch output {
	case OutputStdout:
		w = stdout
	case OutputStderr:
		w = stderr
	default:
		return log
	}
	cfg := logger.DefaultConfig()
	cfg.Output = w
	streamLog, err := logger.NewZapLogger(cfg)
	if err != nil {
		log.Error("request log output unavailable, using service logger", "output", string(output), "error", err)
		return log
	}
	return streamLog
}
