// Package middleware holds helpers shared by the request interceptors.
package middleware

import (
	"strings"

	"github.com/nimburion/crudkit/pkg/model"
	"github.com/nimburion/crudkit/pkg/server/router"
)

// Status returns the status the client will see. When the handler failed
// before writing, the exception filter decides it from err.
func Status(c router.Context, err error) int {
	if err != nil && !c.Response().Written() {
		return model.StatusOf(err)
	}
	return c.Response().Status()
}

// Excluded reports whether path starts with any of prefixes.
func Excluded(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
