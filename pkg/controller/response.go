package controller

import (
	"net/http"

	"github.com/nimburion/crudkit/pkg/model"
	"github.com/nimburion/crudkit/pkg/observability/logger"
	"github.com/nimburion/crudkit/pkg/server/router"
)

// SuccessResponse is the body of every successful response.
type SuccessResponse struct {
	Data      any    `json:"data"`
	RequestID string `json:"request_id,omitempty"`
}

// Success sends data with 200.
func Success(c router.Context, data any) error {
	return respond(c, http.StatusOK, data)
}

// Created sends data with 201.
func Created(c router.Context, data any) error {
	return respond(c, http.StatusCreated, data)
}

func respond(c router.Context, status int, data any) error {
	return c.JSON(status, SuccessResponse{
		Data:      data,
		RequestID: logger.RequestIDFromContext(c.Request().Context()),
	})
}

// HandleResponse unwraps a service envelope: a missing envelope or one with
// neither side set is EMPTY_RESPONSE, an error side becomes an exception
// carrying its status, a data side is returned as is.
func HandleResponse[V any](env *model.EntityMetadata[V]) (*V, error) {
	if env == nil {
		return nil, emptyResponse()
	}
	if env.Error != nil {
		return nil, SendErrorResponse(*env.Error)
	}
	if env.Data == nil {
		return nil, emptyResponse()
	}
	return env.Data, nil
}

// SendErrorResponse converts info into the exception handlers return.
func SendErrorResponse(info model.ErrorInfo) *model.AppException {
	return model.NewAppException(info)
}

func emptyResponse() *model.AppException {
	return SendErrorResponse(model.NewErrorInfo(model.EmptyResponse, "", http.StatusBadRequest, nil))
}
