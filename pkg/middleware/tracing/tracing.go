// Package tracing opens an OpenTelemetry server span per request.
package tracing

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/nimburion/crudkit/pkg/middleware"
	metricsmw "github.com/nimburion/crudkit/pkg/middleware/metrics"
	"github.com/nimburion/crudkit/pkg/observability/logger"
	"github.com/nimburion/crudkit/pkg/server/router"
)

// Config holds configuration for the tracing middleware.
type Config struct {
	// TracerName defaults to "crudkit/http".
	TracerName string

	// SpanNameFormatter defaults to "HTTP <method> <route>".
	SpanNameFormatter func(router.Context) string

	ExcludedPathPrefixes []string
}

// Tracing extracts the incoming trace context, starts a server span and
// stores it in the request context so store spans become its children.
func Tracing(cfg Config) router.MiddlewareFunc {
	if cfg.TracerName == "" {
		cfg.TracerName = "crudkit/http"
	}
	if cfg.SpanNameFormatter == nil {
		cfg.SpanNameFormatter = defaultSpanNameFormatter
	}

	tracer := otel.Tracer(cfg.TracerName)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			if middleware.Excluded(req.URL.Path, cfg.ExcludedPathPrefixes) {
				return next(c)
			}

			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))
			ctx, span := tracer.Start(ctx, cfg.SpanNameFormatter(c), trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", req.Method),
				attribute.String("http.route", metricsmw.Route(req.URL.Path)),
				attribute.String("http.target", req.URL.RequestURI()),
				attribute.String("http.user_agent", req.UserAgent()),
			)
			if requestID := logger.RequestIDFromContext(req.Context()); requestID != "" {
				span.SetAttributes(attribute.String("request.id", requestID))
			}

			c.SetRequest(req.WithContext(ctx))
			err := next(c)

			status := middleware.Status(c, err)
			span.SetAttributes(attribute.Int("http.status_code", status))
			switch {
			case err != nil && status >= 500:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Unset, "")
			case status >= 500:
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
			default:
				span.SetStatus(codes.Ok, "")
			}
			return err
		}
	}
}

func defaultSpanNameFormatter(c router.Context) string {
	return fmt.Sprintf("HTTP %s %s", c.Request().Method, metricsmw.Route(c.Request().URL.Path))
}
