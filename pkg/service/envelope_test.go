package service

import (
	"errors"
	"net/http"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/nimburion/crudkit/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestFailure_DefaultStatus(t *testing.T) {
	got := Failure[widget](model.InvalidArguments, "bad", 0, nil)
	assert.Equal(t, http.StatusBadRequest, got.Error.StatusCode)
	assert.Nil(t, got.Data)

	got = Failure[widget](model.NotFound, "", http.StatusNotFound, nil)
	assert.Equal(t, http.StatusNotFound, got.Error.StatusCode)
}

func TestConvert(t *testing.T) {
	info := model.NewErrorInfo(model.UnhandledError, "", http.StatusBadRequest, errors.New("error"))

	t.Run("error wins over result", func(t *testing.T) {
		got := Convert(&info, &widget{Name: "foobar"})
		assert.Equal(t, &info, got.Error)
		assert.Nil(t, got.Data)
	})

	t.Run("nil result", func(t *testing.T) {
		got := Convert[widget](nil, nil)
		assert.Equal(t, model.EmptyResponse, got.Error.Kind)
		assert.Equal(t, http.StatusBadRequest, got.Error.StatusCode)
	})

	t.Run("nil slice", func(t *testing.T) {
		var items []widget
		assert.Equal(t, model.EmptyResponse, Convert(nil, &items).Error.Kind)
	})

	t.Run("nil map", func(t *testing.T) {
		var m map[string]any
		assert.Equal(t, model.EmptyResponse, Convert(nil, &m).Error.Kind)
	})

	t.Run("zero struct is data", func(t *testing.T) {
		got := Convert(nil, &widget{})
		assert.Nil(t, got.Error)
		assert.Equal(t, &widget{}, got.Data)
	})
}

func TestSuccess(t *testing.T) {
	got := Success(true)
	assert.True(t, *got.Data)
	assert.Nil(t, got.Error)
}

func TestConvert_Properties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("non-nil results become data unchanged", prop.ForAll(
		func(names []string) bool {
			items := make([]widget, 0, len(names))
			for _, n := range names {
				items = append(items, widget{Name: n})
			}
			env := Convert(nil, &items)
			if env.Error != nil || env.Data == nil {
				return false
			}
			return len(*env.Data) == len(names)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("exactly one side is set", prop.ForAll(
		func(withError bool, name string) bool {
			var info *model.ErrorInfo
			if withError {
				e := model.NewErrorInfo(model.UnhandledError, name, 0, nil)
				info = &e
			}
			env := Convert(info, &widget{Name: name})
			return (env.Error != nil) != (env.Data != nil)
		},
		gen.Bool(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
