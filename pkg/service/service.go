// Package service normalizes repository outcomes into result envelopes. No
// operation returns an error: failures, misses and empty results travel in
// the envelope's error side.
package service

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/nimburion/crudkit/pkg/model"
	"github.com/nimburion/crudkit/pkg/observability/logger"
	"github.com/nimburion/crudkit/pkg/observability/metrics"
)

// Store is the repository contract the service depends on.
type Store[T any] interface {
	Create(ctx context.Context, item *T) (*T, error)
	GetAll(ctx context.Context) ([]T, error)
	Update(ctx context.Context, id string, item *T) (*T, error)
	Delete(ctx context.Context, id string) (*model.DeleteResult, error)
	FindByID(ctx context.Context, id string) (*T, error)
	FindOne(ctx context.Context, cond model.Filter) (*T, error)
	Find(ctx context.Context, cond model.Filter, opts *model.FindModelOptions) ([]T, error)
}

// Service is the generic business layer over a Store.
type Service[T any] struct {
	store  Store[T]
	log    logger.Logger
	entity string
}

// Option customizes a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	entity string
}

// WithEntityName sets the name used in logs and metrics. It defaults to the
// lowercased type name of T.
func WithEntityName(name string) Option {
	return func(o *serviceOptions) {
		o.entity = name
	}
}

// New returns a Service over store.
func New[T any](store Store[T], log logger.Logger, opts ...Option) *Service[T] {
	o := serviceOptions{entity: entityName[T]()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service[T]{
		store:  store,
		log:    logger.OrDefault(log).With("entity", o.entity),
		entity: o.entity,
	}
}

// Entity returns the entity name used in logs and metrics.
func (s *Service[T]) Entity() string {
	return s.entity
}

func (s *Service[T]) Create(ctx context.Context, item *T) *model.EntityMetadata[T] {
	created, err := s.store.Create(ctx, item)
	if err != nil {
		return fail[T](ctx, s, "create", model.FailedToCreateResource, err)
	}
	return done(s, "create", Convert[T](nil, created))
}

func (s *Service[T]) GetAll(ctx context.Context) *model.EntityMetadata[[]T] {
	items, err := s.store.GetAll(ctx)
	if err != nil {
		return fail[[]T](ctx, s, "get_all", model.UnhandledError, err)
	}
	return done(s, "get_all", Convert[[]T](nil, &items))
}

// Update replaces the fields of the entity with id. A missing entity yields
// NOT_FOUND without touching the store.
func (s *Service[T]) Update(ctx context.Context, id string, item *T) *model.EntityMetadata[T] {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return fail[T](ctx, s, "update", model.FailedToUpdateResource, err)
	}
	if existing == nil {
		return done(s, "update", Failure[T](model.NotFound, "", http.StatusNotFound, nil))
	}

	updated, err := s.store.Update(ctx, id, item)
	if err != nil {
		return fail[T](ctx, s, "update", model.FailedToUpdateResource, err)
	}
	return done(s, "update", Convert[T](nil, updated))
}

// Delete removes the entity with id. The data side is true only when the
// store acknowledged at least one removal.
func (s *Service[T]) Delete(ctx context.Context, id string) *model.EntityMetadata[bool] {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return fail[bool](ctx, s, "delete", model.FailedToDeleteResource, err)
	}
	if existing == nil {
		return done(s, "delete", Failure[bool](model.NotFound, "", http.StatusNotFound, nil))
	}

	ack, err := s.store.Delete(ctx, id)
	if err != nil {
		return fail[bool](ctx, s, "delete", model.FailedToDeleteResource, err)
	}
	if ack == nil {
		return done(s, "delete", Failure[bool](model.EmptyResponse, "", http.StatusBadRequest, nil))
	}
	if ack.OK == 0 || ack.N == 0 {
		return done(s, "delete", Failure[bool](model.FailedToDeleteResource, "", http.StatusBadRequest, nil))
	}
	return done(s, "delete", Success(true))
}

func (s *Service[T]) FindByID(ctx context.Context, id string) *model.EntityMetadata[T] {
	item, err := s.store.FindByID(ctx, id)
	if err != nil {
		return fail[T](ctx, s, "find_by_id", model.UnhandledError, err)
	}
	return done(s, "find_by_id", Convert[T](nil, item))
}

func (s *Service[T]) FindOne(ctx context.Context, cond model.Filter) *model.EntityMetadata[T] {
	item, err := s.store.FindOne(ctx, cond)
	if err != nil {
		return fail[T](ctx, s, "find_one", model.UnhandledError, err)
	}
	return done(s, "find_one", Convert[T](nil, item))
}

// Find returns the entities matching cond. Nil cond matches everything and
// nil opts applies the default pagination.
func (s *Service[T]) Find(ctx context.Context, cond model.Filter, opts *model.FindModelOptions) *model.EntityMetadata[[]T] {
	items, err := s.store.Find(ctx, cond, opts)
	if err != nil {
		return fail[[]T](ctx, s, "find", model.UnhandledError, err)
	}
	return done(s, "find", Convert[[]T](nil, &items))
}

func fail[V, T any](ctx context.Context, s *Service[T], op string, kind model.ErrorKind, err error) *model.EntityMetadata[V] {
	s.log.WithContext(ctx).Error("store operation failed",
		"operation", op,
		"kind", string(kind),
		"error", err,
	)
	return done(s, op, Failure[V](kind, "", http.StatusBadRequest, err))
}

func done[V, T any](s *Service[T], op string, env *model.EntityMetadata[V]) *model.EntityMetadata[V] {
	outcome := metrics.OutcomeSuccess
	if env.Error != nil {
		outcome = string(env.Error.Kind)
	}
	metrics.RecordCRUDOperation(s.entity, op, outcome)
	return env
}

func entityName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "entity"
	}
	return strings.ToLower(t.Name())
}
