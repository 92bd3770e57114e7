// Package exception logs failed requests and lets the platform translate the
// error before it reaches the exception filter.
package exception

import (
	"fmt"
	"time"

	"github.com/nimburion/crudkit/pkg/middleware"
	"github.com/nimburion/crudkit/pkg/observability/logger"
	"github.com/nimburion/crudkit/pkg/platform"
	"github.com/nimburion/crudkit/pkg/server/router"
)

// Exception returns the middleware. Successful requests pass untouched.
func Exception(p platform.Platform, log logger.Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			req := c.Request()
			log.WithContext(req.Context()).Error(
				fmt.Sprintf("Error encountered when hitting %s - %s - status: %d - timestamp: %s",
					req.Method, req.URL.RequestURI(), middleware.Status(c, err), time.Now().UTC().Format(time.RFC3339)),
				"error", err,
				"platform", p.Name(),
			)
			return p.TranslateError(err)
		}
	}
}
