// Package filter is the outermost interceptor: it turns every error and
// panic leaving the chain into a JSON response.
package filter

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/nimburion/crudkit/pkg/model"
	"github.com/nimburion/crudkit/pkg/observability/logger"
	"github.com/nimburion/crudkit/pkg/platform"
	"github.com/nimburion/crudkit/pkg/server/router"
)

// Filter renders errors as the exception body with the exception's status,
// 500 when it has none. Errors that are not exceptions and recovered panics
// become UNHANDLED_ERROR with 500.
func Filter(p platform.Platform, log logger.Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.WithContext(c.Request().Context()).Error("panic recovered",
						"panic", r,
						"stack", string(debug.Stack()),
					)
					err = render(c, p, log, panicError(r))
				}
			}()

			if handlerErr := next(c); handlerErr != nil {
				return render(c, p, log, handlerErr)
			}
			return nil
		}
	}
}

// Resolve returns the exception to render for err and its status.
func Resolve(err error) (*model.AppException, int) {
	appErr, ok := model.AsAppException(err)
	if !ok {
		info := model.NewErrorInfo(model.UnhandledError, err.Error(), http.StatusInternalServerError, err)
		appErr = model.NewAppException(info)
	}
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return appErr, status
}

func render(c router.Context, p platform.Platform, log logger.Logger, err error) error {
	appErr, status := Resolve(err)
	if c.Response().Written() {
		log.WithContext(c.Request().Context()).Warn("response already written, dropping error",
			"error", err,
			"status", status,
		)
		return nil
	}
	if sendErr := p.Send(c, status, appErr); sendErr != nil {
		log.WithContext(c.Request().Context()).Error("failed to send error response", "error", sendErr)
	}
	return nil
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
