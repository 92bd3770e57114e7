// Package repository translates generic CRUD verbs into MongoDB round trips.
// Reads and writes are plain document decodes into T; there are no retries
// or transactions.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimburion/crudkit/pkg/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrEntityNotUpdated is returned by Update when the store hands back no
// document.
var ErrEntityNotUpdated = errors.New("failed to update entity")

// ErrInvalidID is returned when an identifier is not a valid ObjectID hex.
var ErrInvalidID = errors.New("invalid entity id")

// Executor is the subset of the MongoDB adapter a repository needs.
type Executor interface {
	InsertOne(ctx context.Context, collection string, doc any) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, collection string, filter, result any, opts ...*options.FindOneOptions) error
	Find(ctx context.Context, collection string, filter, results any, opts ...*options.FindOptions) error
	FindOneAndUpdate(ctx context.Context, collection string, filter, update, result any, opts ...*options.FindOneAndUpdateOptions) error
	DeleteMany(ctx context.Context, collection string, filter any) (*mongo.DeleteResult, error)
}

// Repository is the CRUD contract consumed by the service layer.
type Repository[T any] interface {
	Create(ctx context.Context, item *T) (*T, error)
	GetAll(ctx context.Context) ([]T, error)
	Update(ctx context.Context, id string, item *T) (*T, error)
	Delete(ctx context.Context, id string) (*model.DeleteResult, error)
	FindByID(ctx context.Context, id string) (*T, error)
	FindOne(ctx context.Context, cond model.Filter) (*T, error)
	Find(ctx context.Context, cond model.Filter, opts *model.FindModelOptions) ([]T, error)
}

// MongoRepository stores T documents in one collection.
type MongoRepository[T any] struct {
	exec       Executor
	collection string
}

// NewMongoRepository returns a repository over collection.
func NewMongoRepository[T any](exec Executor, collection string) *MongoRepository[T] {
	return &MongoRepository[T]{exec: exec, collection: collection}
}

// Collection returns the backing collection name.
func (r *MongoRepository[T]) Collection() string {
	return r.collection
}

// Create inserts item and reads the stored document back.
func (r *MongoRepository[T]) Create(ctx context.Context, item *T) (*T, error) {
	res, err := r.exec.InsertOne(ctx, r.collection, item)
	if err != nil {
		return nil, err
	}
	var created T
	if err := r.exec.FindOne(ctx, r.collection, bson.M{"_id": res.InsertedID}, &created); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &created, nil
}

// GetAll returns every document in the collection.
func (r *MongoRepository[T]) GetAll(ctx context.Context) ([]T, error) {
	items := []T{}
	if err := r.exec.Find(ctx, r.collection, bson.M{}, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Update sets the fields of item on the document with id, inserting it when
// missing, and returns the document as stored after the update.
func (r *MongoRepository[T]) Update(ctx context.Context, id string, item *T) (*T, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	fields, err := toDocument(item)
	if err != nil {
		return nil, err
	}
	delete(fields, "_id")

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var updated T
	err = r.exec.FindOneAndUpdate(ctx, r.collection, bson.M{"_id": oid}, bson.M{"$set": fields}, &updated, opts)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w %s", ErrEntityNotUpdated, id)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the document with id and returns the raw acknowledgement.
func (r *MongoRepository[T]) Delete(ctx context.Context, id string) (*model.DeleteResult, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	res, err := r.exec.DeleteMany(ctx, r.collection, bson.M{"_id": oid})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return &model.DeleteResult{OK: 1, N: res.DeletedCount}, nil
}

// FindByID returns the document with id, or nil when none exists.
func (r *MongoRepository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindOne returns the first document matching cond, or nil.
func (r *MongoRepository[T]) FindOne(ctx context.Context, cond model.Filter) (*T, error) {
	return r.findOne(ctx, filterDocument(cond))
}

// Find returns the documents matching cond. Limit defaults to 15 and skip to
// 0; sort is applied only when set.
func (r *MongoRepository[T]) Find(ctx context.Context, cond model.Filter, opts *model.FindModelOptions) ([]T, error) {
	findOpts := options.Find().
		SetLimit(opts.EffectiveLimit()).
		SetSkip(opts.EffectiveSkip())
	if opts != nil && len(opts.Sort) > 0 {
		findOpts.SetSort(opts.Sort.BSON())
	}

	items := []T{}
	if err := r.exec.Find(ctx, r.collection, filterDocument(cond), &items, findOpts); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (r *MongoRepository[T]) findOne(ctx context.Context, filter any) (*T, error) {
	var item T
	err := r.exec.FindOne(ctx, r.collection, filter, &item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w %q: %v", ErrInvalidID, id, err)
	}
	return oid, nil
}

// filterDocument converts a query condition into a driver filter. A string
// "_id" holding ObjectID hex is matched as an ObjectID.
func filterDocument(cond model.Filter) bson.M {
	doc := bson.M{}
	for k, v := range cond {
		if k == "_id" {
			if s, ok := v.(string); ok {
				if oid, err := primitive.ObjectIDFromHex(s); err == nil {
					doc[k] = oid
					continue
				}
			}
		}
		doc[k] = v
	}
	return doc
}

func toDocument(item any) (bson.M, error) {
	raw, err := bson.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entity: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to encode entity: %w", err)
	}
	return doc, nil
}
