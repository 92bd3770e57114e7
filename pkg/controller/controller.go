// Package controller binds a CRUD service to HTTP routes. Handlers return
// *model.AppException on failure and leave rendering to the exception filter.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nimburion/crudkit/pkg/middleware/requestbody"
	"github.com/nimburion/crudkit/pkg/model"
	"github.com/nimburion/crudkit/pkg/server/router"
)

// Service is the business layer a Controller drives.
type Service[T any] interface {
	Create(ctx context.Context, item *T) *model.EntityMetadata[T]
	GetAll(ctx context.Context) *model.EntityMetadata[[]T]
	Update(ctx context.Context, id string, item *T) *model.EntityMetadata[T]
	Delete(ctx context.Context, id string) *model.EntityMetadata[bool]
	FindByID(ctx context.Context, id string) *model.EntityMetadata[T]
	FindOne(ctx context.Context, cond model.Filter) *model.EntityMetadata[T]
	Find(ctx context.Context, cond model.Filter, opts *model.FindModelOptions) *model.EntityMetadata[[]T]
}

// Controller exposes a Service over HTTP.
type Controller[T any] struct {
	svc Service[T]
}

// New returns a Controller over svc.
func New[T any](svc Service[T]) *Controller[T] {
	return &Controller[T]{svc: svc}
}

// Find returns the entities matching the JSON query. An empty query lists
// with no filter and default pagination.
func (ctl *Controller[T]) Find(ctx context.Context, query string) ([]T, error) {
	var (
		filter model.Filter
		opts   *model.FindModelOptions
	)
	if strings.TrimSpace(query) != "" {
		var err error
		filter, opts, err = ParseQuery(query)
		if err != nil {
			return nil, err
		}
	}
	items, err := HandleResponse(ctl.svc.Find(ctx, filter, opts))
	if err != nil {
		return nil, err
	}
	return *items, nil
}

func (ctl *Controller[T]) FindByID(ctx context.Context, id string) (*T, error) {
	return HandleResponse(ctl.svc.FindByID(ctx, id))
}

// FindOne returns the first entity matching the query's filter.
func (ctl *Controller[T]) FindOne(ctx context.Context, query string) (*T, error) {
	filter, _, err := ParseQuery(query)
	if err != nil {
		return nil, err
	}
	return HandleResponse(ctl.svc.FindOne(ctx, filter))
}

// Create stores item. A nil or invalid item is rejected before the service
// is called.
func (ctl *Controller[T]) Create(ctx context.Context, item *T) (*T, error) {
	if err := ValidateModel(item); err != nil {
		return nil, err
	}
	return HandleResponse(ctl.svc.Create(ctx, item))
}

func (ctl *Controller[T]) Update(ctx context.Context, item *T, id string) (*T, error) {
	if err := ValidateModel(item); err != nil {
		return nil, err
	}
	return HandleResponse(ctl.svc.Update(ctx, id, item))
}

func (ctl *Controller[T]) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := HandleResponse(ctl.svc.Delete(ctx, id))
	if err != nil {
		return false, err
	}
	return *ok, nil
}

// Register mounts the CRUD routes under basePath. findOne is registered
// before the ":id" routes so it is never captured as an id.
func (ctl *Controller[T]) Register(r router.Router, basePath string, middleware ...router.MiddlewareFunc) {
	base := "/" + strings.Trim(basePath, "/")

	r.GET(base, ctl.handleFind, middleware...)
	r.GET(base+"/findOne", ctl.handleFindOne, middleware...)
	r.GET(base+"/:id", ctl.handleFindByID, middleware...)
	r.POST(base, ctl.handleCreate, middleware...)
	r.PUT(base+"/:id", ctl.handleUpdate, middleware...)
	r.DELETE(base+"/:id", ctl.handleDelete, middleware...)
}

func (ctl *Controller[T]) handleFind(c router.Context) error {
	items, err := ctl.Find(c.Request().Context(), c.Query(QueryParam))
	if err != nil {
		return err
	}
	return Success(c, items)
}

func (ctl *Controller[T]) handleFindOne(c router.Context) error {
	item, err := ctl.FindOne(c.Request().Context(), c.Query(QueryParam))
	if err != nil {
		return err
	}
	return Success(c, item)
}

func (ctl *Controller[T]) handleFindByID(c router.Context) error {
	item, err := ctl.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return Success(c, item)
}

func (ctl *Controller[T]) handleCreate(c router.Context) error {
	item, err := bindModel[T](c)
	if err != nil {
		return err
	}
	created, err := ctl.Create(c.Request().Context(), item)
	if err != nil {
		return err
	}
	return Created(c, created)
}

func (ctl *Controller[T]) handleUpdate(c router.Context) error {
	item, err := bindModel[T](c)
	if err != nil {
		return err
	}
	updated, err := ctl.Update(c.Request().Context(), item, c.Param("id"))
	if err != nil {
		return err
	}
	return Success(c, updated)
}

func (ctl *Controller[T]) handleDelete(c router.Context) error {
	ok, err := ctl.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return Success(c, ok)
}

// bindModel decodes the request body into a *T. The body parsed by the
// requestbody middleware wins over the raw stream. An empty body or a JSON
// null yields nil.
func bindModel[T any](c router.Context) (*T, error) {
	var item *T
	if raw, ok := requestbody.FromContext(c); ok {
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, invalidArguments("invalid request body: "+err.Error(), err)
		}
		return item, nil
	}
	if err := c.Bind(&item); err != nil {
		if errors.Is(err, router.ErrEmptyBody) {
			return nil, nil
		}
		return nil, invalidArguments("invalid request body: "+err.Error(), err)
	}
	return item, nil
}
