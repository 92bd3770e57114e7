// Package sanitizer strips internal fields from response bodies.
//
// Each field is matched against an ordered rule list and the first matching
// rule decides its fate:
//
//  1. "password" is dropped.
//  2. "_id" is renamed to "id"; non-string values are stringified. An "_id"
//     holding a function falls through to rule 3.
//  3. Any other key starting with "_" is dropped.
//  4. Function values are dropped.
//  5. Objects and arrays are sanitized recursively.
//
// Everything else is kept as is.
package sanitizer

import (
	"fmt"
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	passwordField = "password"
	internalID    = "_id"
	publicID      = "id"
)

type action int

const (
	keep action = iota
	drop
	rename
	recurse
)

type rule struct {
	name  string
	match func(key string, value any) bool
	act   action
}

var rules = []rule{
	{name: "password", match: func(k string, _ any) bool { return k == passwordField }, act: drop},
	{name: "internal id", match: func(k string, v any) bool { return k == internalID && !isFunc(v) }, act: rename},
	{name: "underscore", match: func(k string, _ any) bool { return strings.HasPrefix(k, "_") }, act: drop},
	{name: "function", match: func(_ string, v any) bool { return isFunc(v) }, act: drop},
	{name: "container", match: func(_ string, v any) bool { return isContainer(v) }, act: recurse},
}

func decide(key string, value any) action {
	for _, r := range rules {
		if r.match(key, value) {
			return r.act
		}
	}
	return keep
}

// Sanitize returns a sanitized copy of v. Maps and slices are rebuilt; the
// input is not modified.
func Sanitize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return sanitizeMap(t)
	case primitive.M:
		return sanitizeMap(t)
	case []any:
		return sanitizeSlice(t)
	case primitive.A:
		return sanitizeSlice(t)
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = sanitizeMap(m)
		}
		return out
	}
	return v
}

func sanitizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	var (
		id    any
		hasID bool
	)
	for k, v := range m {
		switch decide(k, v) {
		case drop:
		case rename:
			id, hasID = stringifyID(v), true
		case recurse:
			out[k] = Sanitize(v)
		default:
			out[k] = v
		}
	}
	// The renamed internal id wins over a literal "id" key.
	if hasID {
		out[publicID] = id
	}
	return out
}

func sanitizeSlice(s []any) []any {
	out := make([]any, 0, len(s))
	for _, v := range s {
		if isFunc(v) {
			continue
		}
		out = append(out, Sanitize(v))
	}
	return out
}

func stringifyID(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case primitive.ObjectID:
		return t.Hex()
	case fmt.Stringer:
		return t.String()
	case map[string]any:
		if oid, ok := t["$oid"].(string); ok {
			return oid
		}
	}
	return fmt.Sprint(v)
}

func isFunc(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, primitive.M, []any, primitive.A, []map[string]any:
		return true
	}
	return false
}
