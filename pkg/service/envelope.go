package service

import (
	"net/http"
	"reflect"

	"github.com/nimburion/crudkit/pkg/model"
)

// Success wraps v as the data side of an envelope.
func Success[V any](v V) *model.EntityMetadata[V] {
	return &model.EntityMetadata[V]{Data: &v}
}

// Failure builds an error envelope. A zero statusCode becomes 400.
func Failure[V any](kind model.ErrorKind, message string, statusCode int, cause error) *model.EntityMetadata[V] {
	if statusCode == 0 {
		statusCode = model.DefaultStatusCode
	}
	info := model.NewErrorInfo(kind, message, statusCode, cause)
	return &model.EntityMetadata[V]{Error: &info}
}

// Convert turns an (error, result) pair into an envelope: the error when set,
// EMPTY_RESPONSE when result is empty, the result otherwise.
func Convert[V any](info *model.ErrorInfo, result *V) *model.EntityMetadata[V] {
	if info != nil {
		return &model.EntityMetadata[V]{Error: info}
	}
	if isEmpty(result) {
		return Failure[V](model.EmptyResponse, "", http.StatusBadRequest, nil)
	}
	return &model.EntityMetadata[V]{Data: result}
}

// isEmpty reports whether result is a nil pointer or points at a nil slice,
// map, pointer or interface. Zero structs and empty non-nil slices are data.
func isEmpty[V any](result *V) bool {
	if result == nil {
		return true
	}
	v := reflect.ValueOf(result).Elem()
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Pointer, reflect.Interface:
		return v.IsNil()
	}
	return false
}
