// Package router defines the framework-neutral request pipeline shared by the
// gin and gorilla/mux adapters. Handlers and middleware only see Context, so
// the same CRUD controllers and interceptors run on either framework.
package router

import "net/http"

// Router registers routes and serves them.
type Router interface {
	GET(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	POST(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	PUT(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	DELETE(path string, handler HandlerFunc, middleware ...MiddlewareFunc)

	// Group creates a route group with common prefix and middleware.
	Group(prefix string, middleware ...MiddlewareFunc) Router

	// Use appends middleware applied to routes registered afterwards.
	Use(middleware ...MiddlewareFunc)

	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// HandlerFunc handles one request. A returned error that no middleware
// rendered becomes a bare 500.
type HandlerFunc func(Context) error

// MiddlewareFunc wraps a HandlerFunc.
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Context gives handlers framework-neutral access to the exchange.
type Context interface {
	Request() *http.Request
	SetRequest(r *http.Request)

	Response() ResponseWriter
	// SetResponse swaps the writer; JSON and String write through the new one.
	SetResponse(w ResponseWriter)

	// Param returns a path parameter declared as ":name", or "".
	Param(name string) string
	// Query returns the first value of a query parameter, or "".
	Query(name string) string

	// Bind decodes a JSON request body into v.
	Bind(v any) error

	JSON(code int, v any) error
	String(code int, s string) error

	Get(key string) any
	Set(key string, value any)
}

// ResponseWriter tracks the status written to the client.
type ResponseWriter interface {
	http.ResponseWriter

	// Status returns the written status, 200 when nothing was written yet.
	Status() int
	Written() bool
}

// Chain wraps h so that middleware[0] runs first.
func Chain(h HandlerFunc, middleware ...MiddlewareFunc) HandlerFunc {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}
