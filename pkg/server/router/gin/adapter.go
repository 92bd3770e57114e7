// Package gin runs the router pipeline on gin-gonic/gin.
package gin

import (
	"net/http"
	"sync"

	ginpkg "github.com/gin-gonic/gin"
	"github.com/nimburion/crudkit/pkg/server/router"
)

// GinRouter implements router.Router on a gin engine.
type GinRouter struct {
	engine     *ginpkg.Engine
	group      *ginpkg.RouterGroup
	middleware []router.MiddlewareFunc
	mu         *sync.RWMutex
	options    *map[string]struct{}
}

// NewRouter returns a GinRouter on a bare engine in release mode.
func NewRouter() *GinRouter {
	ginpkg.SetMode(ginpkg.ReleaseMode)
	engine := ginpkg.New()
	engine.HandleMethodNotAllowed = true
	options := make(map[string]struct{})
	return &GinRouter{
		engine:  engine,
		mu:      &sync.RWMutex{},
		options: &options,
	}
}

func (r *GinRouter) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodGet, path, handler, middleware)
}

func (r *GinRouter) POST(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPost, path, handler, middleware)
}

func (r *GinRouter) PUT(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPut, path, handler, middleware)
}

func (r *GinRouter) DELETE(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodDelete, path, handler, middleware)
}

// Group creates a route group with common prefix and middleware.
func (r *GinRouter) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	combined := append(r.snapshot(), middleware...)

	var group *ginpkg.RouterGroup
	if r.group == nil {
		group = r.engine.Group(prefix)
	} else {
		group = r.group.Group(prefix)
	}
	return &GinRouter{
		engine:     r.engine,
		group:      group,
		middleware: combined,
		mu:         r.mu,
		options:    r.options,
	}
}

func (r *GinRouter) Use(middleware ...router.MiddlewareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, middleware...)
}

func (r *GinRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

func (r *GinRouter) snapshot() []router.MiddlewareFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]router.MiddlewareFunc{}, r.middleware...)
}

func (r *GinRouter) routes() ginpkg.IRoutes {
	if r.group != nil {
		return r.group
	}
	return r.engine
}

func (r *GinRouter) handle(method, path string, h router.HandlerFunc, routeMiddleware []router.MiddlewareFunc) {
	handler := router.Chain(h, append(r.snapshot(), routeMiddleware...)...)
	r.routes().Handle(method, path, func(gc *ginpkg.Context) {
		ctx := newContext(gc)
		router.WriteUnhandled(ctx.Response(), handler(ctx))
	})
	r.ensureOptionsRoute(path)
}

// ensureOptionsRoute answers OPTIONS on every registered path with 204 after
// running the global middleware.
func (r *GinRouter) ensureOptionsRoute(path string) {
	key := path
	if r.group != nil {
		key = r.group.BasePath() + path
	}

	r.mu.Lock()
	if _, exists := (*r.options)[key]; exists {
		r.mu.Unlock()
		return
	}
	(*r.options)[key] = struct{}{}
	global := append([]router.MiddlewareFunc{}, r.middleware...)
	r.mu.Unlock()

	handler := router.Chain(func(c router.Context) error {
		if !c.Response().Written() {
			c.Response().WriteHeader(http.StatusNoContent)
		}
		return nil
	}, global...)

	r.routes().Handle(http.MethodOptions, path, func(gc *ginpkg.Context) {
		_ = handler(newContext(gc))
	})
}

// ginContext adapts gin.Context to router.Context. Values set through Set are
// stored on the gin context, so gin handlers mounted elsewhere see them.
type ginContext struct {
	ctx      *ginpkg.Context
	response router.ResponseWriter
}

func newContext(c *ginpkg.Context) *ginContext {
	return &ginContext{ctx: c, response: router.NewResponseWriter(c.Writer)}
}

func (c *ginContext) Request() *http.Request          { return c.ctx.Request }
func (c *ginContext) SetRequest(r *http.Request)      { c.ctx.Request = r }
func (c *ginContext) Response() router.ResponseWriter { return c.response }
func (c *ginContext) SetResponse(w router.ResponseWriter) {
	c.response = w
}

func (c *ginContext) Param(name string) string { return c.ctx.Param(name) }
func (c *ginContext) Query(name string) string { return c.ctx.Query(name) }

func (c *ginContext) Bind(v any) error {
	return router.BindJSON(c.ctx.Request, v)
}

func (c *ginContext) JSON(code int, v any) error {
	return router.WriteJSON(c.response, code, v)
}

func (c *ginContext) String(code int, s string) error {
	return router.WriteString(c.response, code, s)
}

func (c *ginContext) Get(key string) any {
	v, ok := c.ctx.Get(key)
	if !ok {
		return nil
	}
	return v
}

func (c *ginContext) Set(key string, value any) {
	c.ctx.Set(key, value)
}
