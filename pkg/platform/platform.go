// Package platform selects the web framework serving the CRUD routes and
// owns the few behaviours that differ between them: router construction,
// error translation and response sending.
package platform

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/nimburion/crudkit/pkg/model"
	"github.com/nimburion/crudkit/pkg/server/router"
	ginrouter "github.com/nimburion/crudkit/pkg/server/router/gin"
	gorillarouter "github.com/nimburion/crudkit/pkg/server/router/gorilla"
)

const (
	// Gin serves routes with gin-gonic/gin. Downstream errors are rethrown as is.
	Gin = "gin"
	// Gorilla serves routes with gorilla/mux. Downstream errors are rewritten
	// as 400 responses carrying the original error body.
	Gorilla = "gorilla"
)

// Names lists the accepted platform names.
func Names() []string {
	return []string{Gin, Gorilla}
}

// Platform is the per-framework capability used by the interceptors and the
// exception filter.
type Platform interface {
	Name() string
	NewRouter() router.Router
	// Send writes body as JSON with status.
	Send(c router.Context, status int, body any) error
	// TranslateError maps an error leaving the handler chain to the error
	// the filter renders.
	TranslateError(err error) error
}

// New returns the platform registered under name. Matching is case
// insensitive; empty selects gin.
func New(name string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Gin:
		return ginPlatform{}, nil
	case Gorilla:
		return gorillaPlatform{}, nil
	default:
		return nil, fmt.Errorf("unsupported platform %q (expected one of: %s)", name, strings.Join(Names(), ", "))
	}
}

// Valid reports whether name selects a platform.
func Valid(name string) bool {
	_, err := New(name)
	return err == nil
}

type ginPlatform struct{}

func (ginPlatform) Name() string { return Gin }

func (ginPlatform) NewRouter() router.Router { return ginrouter.NewRouter() }

func (ginPlatform) Send(c router.Context, status int, body any) error {
	return send(c, status, body)
}

func (ginPlatform) TranslateError(err error) error { return err }

type gorillaPlatform struct{}

func (gorillaPlatform) Name() string { return Gorilla }

func (gorillaPlatform) NewRouter() router.Router { return gorillarouter.NewRouter() }

func (gorillaPlatform) Send(c router.Context, status int, body any) error {
	return send(c, status, body)
}

// TranslateError answers every failure with 400. An AppException keeps its
// error info as the body; anything else becomes UNHANDLED_ERROR.
func (gorillaPlatform) TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := model.AsAppException(err); ok {
		return &model.AppException{Info: appErr.Info, StatusCode: http.StatusBadRequest}
	}
	info := model.NewErrorInfo(model.UnhandledError, err.Error(), http.StatusBadRequest, err)
	return model.NewAppException(info)
}

func send(c router.Context, status int, body any) error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if c.Response().Written() {
		return nil
	}
	return c.JSON(status, body)
}
