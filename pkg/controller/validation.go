package controller

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/nimburion/crudkit/pkg/model"
)

// Validator is implemented by entities with their own validation rules.
type Validator interface {
	Validate() error
}

// ValidateModel rejects nil models, runs Validate when the model implements
// Validator, and otherwise checks fields tagged `validate:"required"`.
// Failures are INVALID_ARGUMENTS exceptions.
func ValidateModel(m any) error {
	if m == nil {
		return invalidArguments("model cannot be empty", nil)
	}
	v := reflect.ValueOf(m)
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return invalidArguments("model cannot be empty", nil)
	}

	if validator, ok := m.(Validator); ok {
		if err := validator.Validate(); err != nil {
			if _, isApp := model.AsAppException(err); isApp {
				return err
			}
			return invalidArguments(err.Error(), err)
		}
		return nil
	}
	return validateRequired(v)
}

func validateRequired(v reflect.Value) error {
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	var missing []string
	collectMissing(v, &missing)
	if len(missing) > 0 {
		msg := fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", "))
		return invalidArguments(msg, errors.New(msg))
	}
	return nil
}

func collectMissing(v reflect.Value, missing *[]string) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Anonymous && v.Field(i).Kind() == reflect.Struct {
			collectMissing(v.Field(i), missing)
			continue
		}
		if strings.Contains(field.Tag.Get("validate"), "required") && v.Field(i).IsZero() {
			*missing = append(*missing, jsonName(field))
		}
	}
}

func jsonName(field reflect.StructField) string {
	if tag := field.Tag.Get("json"); tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}

func invalidArguments(message string, cause error) *model.AppException {
	return SendErrorResponse(model.NewErrorInfo(model.InvalidArguments, message, http.StatusBadRequest, cause))
}
