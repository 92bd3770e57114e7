package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestAppException_JSONBody(t *testing.T) {
	exc := NewAppException(NewErrorInfo(NotFound, "book 42 not found", http.StatusNotFound, errors.New("no documents")))

	body, err := json.Marshal(exc)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "not_found", got["kind"])
	assert.Equal(t, "book 42 not found", got["message"])
	assert.EqualValues(t, 404, got["statusCode"])
	assert.Equal(t, "no documents", got["cause"])
}

func TestAppException_OmitsEmptyCause(t *testing.T) {
	body, err := json.Marshal(NewAppException(NewErrorInfo(EmptyResponse, "", 400, nil)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"empty_response","statusCode":400}`, string(body))
}

func TestAppException_UnwrapAndKind(t *testing.T) {
	cause := errors.New("boom")
	exc := NewAppException(NewErrorInfo(FailedToCreateResource, "create", 400, cause))
	wrapped := fmt.Errorf("handler: %w", exc)

	assert.ErrorIs(t, wrapped, cause)
	assert.True(t, IsKind(wrapped, FailedToCreateResource))
	assert.False(t, IsKind(wrapped, NotFound))
	assert.False(t, IsKind(cause, FailedToCreateResource))
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "app exception", err: NewAppException(NewErrorInfo(NotFound, "", 404, nil)), want: 404},
		{name: "app exception without status", err: NewAppException(NewErrorInfo(UnhandledError, "", 0, nil)), want: 500},
		{name: "plain error", err: errors.New("x"), want: 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestErrorInfo_JSONRoundTripKeepsCauseText(t *testing.T) {
	in := NewErrorInfo(FailedToDeleteResource, "delete", 400, errors.New("ack 0"))
	body, err := json.Marshal(in)
	require.NoError(t, err)

	var out ErrorInfo
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, in.Kind, out.Kind)
	assert.Equal(t, in.Message, out.Message)
	assert.Equal(t, in.StatusCode, out.StatusCode)
	require.Error(t, out.Cause)
	assert.Equal(t, "ack 0", out.Cause.Error())
}

func TestSort_UnmarshalPreservesOrder(t *testing.T) {
	var s Sort
	require.NoError(t, json.Unmarshal([]byte(`{"title": 1, "year": "desc", "author": -1}`), &s))

	assert.Equal(t, Sort{{"title", 1}, {"year", -1}, {"author", -1}}, s)
	assert.Equal(t, bson.D{{Key: "title", Value: 1}, {Key: "year", Value: -1}, {Key: "author", Value: -1}}, s.BSON())
}

func TestSort_RejectsInvalidDirection(t *testing.T) {
	var s Sort
	assert.Error(t, json.Unmarshal([]byte(`{"title": 2}`), &s))
	assert.Error(t, json.Unmarshal([]byte(`["title"]`), &s))
}

func TestSort_MarshalJSON(t *testing.T) {
	body, err := json.Marshal(Sort{{"b", 1}, {"a", -1}})
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":-1}`, string(body))
}

func TestFindModelOptions_Defaults(t *testing.T) {
	var nilOpts *FindModelOptions
	assert.Equal(t, DefaultLimit, nilOpts.EffectiveLimit())
	assert.Equal(t, DefaultSkip, nilOpts.EffectiveSkip())

	opts := &FindModelOptions{Limit: 10, Skip: 20}
	assert.EqualValues(t, 10, opts.EffectiveLimit())
	assert.EqualValues(t, 20, opts.EffectiveSkip())

	assert.Equal(t, DefaultLimit, (&FindModelOptions{}).EffectiveLimit())
}

func TestKinds_WireValues(t *testing.T) {
	assert.Len(t, Kinds(), 8)
	assert.Equal(t, ErrorKind("connection_timeout"), ConnectionTimeout)
}
