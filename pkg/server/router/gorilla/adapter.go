// Package gorilla runs the router pipeline on gorilla/mux.
package gorilla

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/nimburion/crudkit/pkg/server/router"
)

// GorillaRouter implements router.Router on a mux.Router. Routes match in
// registration order, so static segments must be registered before
// parameters that would shadow them.
type GorillaRouter struct {
	router     *mux.Router
	middleware []router.MiddlewareFunc
	mu         *sync.RWMutex
	options    *map[string]struct{}
}

// NewRouter returns an empty GorillaRouter.
func NewRouter() *GorillaRouter {
	options := make(map[string]struct{})
	return &GorillaRouter{
		router:  mux.NewRouter(),
		mu:      &sync.RWMutex{},
		options: &options,
	}
}

func (r *GorillaRouter) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodGet, path, handler, middleware)
}

func (r *GorillaRouter) POST(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPost, path, handler, middleware)
}

func (r *GorillaRouter) PUT(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPut, path, handler, middleware)
}

func (r *GorillaRouter) DELETE(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodDelete, path, handler, middleware)
}

// Group creates a route group with common prefix and middleware.
func (r *GorillaRouter) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	return &GorillaRouter{
		router:     r.router.PathPrefix(prefix).Subrouter(),
		middleware: append(r.snapshot(), middleware...),
		mu:         r.mu,
		options:    r.options,
	}
}

func (r *GorillaRouter) Use(middleware ...router.MiddlewareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, middleware...)
}

func (r *GorillaRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

func (r *GorillaRouter) snapshot() []router.MiddlewareFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]router.MiddlewareFunc{}, r.middleware...)
}

func (r *GorillaRouter) handle(method, path string, h router.HandlerFunc, routeMiddleware []router.MiddlewareFunc) {
	handler := router.Chain(h, append(r.snapshot(), routeMiddleware...)...)
	muxPath := toMuxPath(path)
	r.router.HandleFunc(muxPath, func(w http.ResponseWriter, req *http.Request) {
		ctx := newContext(w, req)
		router.WriteUnhandled(ctx.Response(), handler(ctx))
	}).Methods(method)

	r.ensureOptionsRoute(muxPath)
}

func (r *GorillaRouter) ensureOptionsRoute(muxPath string) {
	r.mu.Lock()
	if _, exists := (*r.options)[muxPath]; exists {
		r.mu.Unlock()
		return
	}
	(*r.options)[muxPath] = struct{}{}
	global := append([]router.MiddlewareFunc{}, r.middleware...)
	r.mu.Unlock()

	handler := router.Chain(func(c router.Context) error {
		if !c.Response().Written() {
			c.Response().WriteHeader(http.StatusNoContent)
		}
		return nil
	}, global...)

	r.router.HandleFunc(muxPath, func(w http.ResponseWriter, req *http.Request) {
		_ = handler(newContext(w, req))
	}).Methods(http.MethodOptions)
}

// toMuxPath rewrites ":name" segments to mux's "{name}".
func toMuxPath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			parts[i] = "{" + p[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}

type gorillaContext struct {
	request  *http.Request
	response router.ResponseWriter
	mu       sync.RWMutex
	store    map[string]any
}

func newContext(w http.ResponseWriter, r *http.Request) *gorillaContext {
	return &gorillaContext{
		request:  r,
		response: router.NewResponseWriter(w),
		store:    make(map[string]any),
	}
}

func (c *gorillaContext) Request() *http.Request              { return c.request }
func (c *gorillaContext) SetRequest(r *http.Request)          { c.request = r }
func (c *gorillaContext) Response() router.ResponseWriter     { return c.response }
func (c *gorillaContext) SetResponse(w router.ResponseWriter) { c.response = w }
func (c *gorillaContext) Param(name string) string            { return mux.Vars(c.request)[name] }
func (c *gorillaContext) Query(name string) string            { return c.request.URL.Query().Get(name) }
func (c *gorillaContext) Bind(v any) error                    { return router.BindJSON(c.request, v) }
func (c *gorillaContext) JSON(code int, v any) error          { return router.WriteJSON(c.response, code, v) }
func (c *gorillaContext) String(code int, s string) error     { return router.WriteString(c.response, code, s) }

func (c *gorillaContext) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store[key]
}

func (c *gorillaContext) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
}
