// Package metrics records Prometheus request metrics.
package metrics

import (
	"strings"
	"time"

	"github.com/nimburion/crudkit/pkg/middleware"
	"github.com/nimburion/crudkit/pkg/observability/metrics"
	"github.com/nimburion/crudkit/pkg/server/router"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Metrics tracks in-flight requests and records duration and count by
// method, route and status. Unrendered errors count with the status the
// exception filter will send.
func Metrics() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			metrics.IncrementInFlight()
			defer metrics.DecrementInFlight()

			start := time.Now()
			err := next(c)

			metrics.RecordHTTPMetrics(
				c.Request().Method,
				Route(c.Request().URL.Path),
				middleware.Status(c, err),
				time.Since(start),
			)
			return err
		}
	}
}

// Route collapses ObjectID path segments to ":id" so entity ids do not
// become label values.
func Route(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if primitive.IsValidObjectID(p) {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
