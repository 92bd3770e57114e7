// Package requestbody parses POST bodies up front so handlers and later
// middleware can read them without consuming the stream.
package requestbody

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/nimburion/crudkit/pkg/model"
	"github.com/nimburion/crudkit/pkg/server/router"
)

// ContextKey is the router.Context key holding the parsed body.
const ContextKey = "request_body"

// DefaultMaxBytes bounds the bodies read by RequestBody.
const DefaultMaxBytes int64 = 1 << 20

// Config configures the middleware.
type Config struct {
	MaxBytes int64
}

// RequestBody returns the middleware with default limits.
func RequestBody() router.MiddlewareFunc {
	return WithConfig(Config{MaxBytes: DefaultMaxBytes})
}

// WithConfig reads non-multipart POST bodies, checks they are JSON and stores
// them under ContextKey. The body is restored for later readers. Invalid JSON
// is INVALID_ARGUMENTS; a body over MaxBytes is INVALID_ARGUMENTS with 413.
func WithConfig(cfg Config) router.MiddlewareFunc {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			if req.Method != http.MethodPost || req.Body == nil || req.Body == http.NoBody || isMultipart(req) {
				return next(c)
			}

			raw, err := io.ReadAll(io.LimitReader(req.Body, cfg.MaxBytes+1))
			_ = req.Body.Close()
			if err != nil {
				return invalid(http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err))
			}
			if int64(len(raw)) > cfg.MaxBytes {
				return invalid(http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", cfg.MaxBytes))
			}
			req.Body = io.NopCloser(bytes.NewReader(raw))

			if len(bytes.TrimSpace(raw)) == 0 {
				return next(c)
			}
			if !json.Valid(raw) {
				return invalid(http.StatusBadRequest, errors.New("request body is not valid JSON"))
			}

			c.Set(ContextKey, json.RawMessage(raw))
			return next(c)
		}
	}
}

// FromContext returns the body stored by the middleware.
func FromContext(c router.Context) (json.RawMessage, bool) {
	raw, ok := c.Get(ContextKey).(json.RawMessage)
	return raw, ok && len(raw) > 0
}

func isMultipart(req *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func invalid(status int, cause error) error {
	return model.NewAppException(model.NewErrorInfo(model.InvalidArguments, cause.Error(), status, cause))
}
