package sanitizer

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nimburion/crudkit/pkg/observability/logger"
	"github.com/nimburion/crudkit/pkg/server/router"
)

// Sanitizer buffers JSON responses and rewrites them through Sanitize.
// Responses that are not JSON, or that fail to decode, are sent unchanged.
func Sanitizer(log logger.Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			original := c.Response()
			buffered := &bufferedWriter{ResponseWriter: original}
			c.SetResponse(buffered)

			err := func() error {
				defer c.SetResponse(original)
				return next(c)
			}()

			if !buffered.Written() {
				return err
			}
			body := buffered.body.Bytes()
			if err == nil && isJSON(original.Header().Get("Content-Type")) && len(bytes.TrimSpace(body)) > 0 {
				if clean, ok := sanitizeJSON(body); ok {
					body = clean
				} else {
					log.WithContext(c.Request().Context()).Warn("response body is not valid JSON, sent unsanitized")
				}
			}

			original.Header().Del("Content-Length")
			original.WriteHeader(buffered.Status())
			if _, writeErr := original.Write(body); writeErr != nil && err == nil {
				return writeErr
			}
			return err
		}
	}
}

func sanitizeJSON(body []byte) ([]byte, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Sanitize(v)); err != nil {
		return nil, false
	}
	return out.Bytes(), true
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}

// bufferedWriter holds the status and body until the handler returns.
// Headers go straight to the underlying writer.
type bufferedWriter struct {
	router.ResponseWriter
	body    bytes.Buffer
	status  int
	written bool
}

func (w *bufferedWriter) WriteHeader(code int) {
	if w.written {
		return
	}
	w.status = code
	w.written = true
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(b)
}

func (w *bufferedWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *bufferedWriter) Written() bool {
	return w.written
}
