// Package mongodb provides the MongoDB connection used by repositories: one
// client, bounded operation timeouts, and a span and a histogram sample per
// round trip.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nimburion/crudkit/pkg/observability/logger"
	"github.com/nimburion/crudkit/pkg/observability/metrics"
	"github.com/nimburion/crudkit/pkg/observability/tracing"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Adapter provides MongoDB connectivity.
type Adapter struct {
	client   *mongo.Client
	database string
	logger   logger.Logger
	timeout  time.Duration
	mu       sync.RWMutex
	closed   bool
}

// Config holds MongoDB adapter configuration.
type Config struct {
	URL              string
	Database         string
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
}

// NewAdapter connects to MongoDB and verifies the connection with a ping.
// It does not create collections or indexes.
func NewAdapter(cfg Config, log logger.Logger) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mongodb URL is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongodb database is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Info("MongoDB connection established", "database", cfg.Database)
	return &Adapter{
		client:   client,
		database: cfg.Database,
		logger:   log,
		timeout:  cfg.OperationTimeout,
	}, nil
}

func (a *Adapter) Client() *mongo.Client {
	return a.client
}

func (a *Adapter) Database() *mongo.Database {
	return a.client.Database(a.database)
}

func (a *Adapter) Collection(name string) *mongo.Collection {
	return a.Database().Collection(name)
}

func (a *Adapter) Ping(ctx context.Context) error {
	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return fmt.Errorf("mongodb adapter is closed")
	}
	return a.client.Ping(ctx, readpref.Primary())
}

// HealthCheck pings the primary with a 2s budget.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	hcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.Ping(hcCtx); err != nil {
		a.logger.Error("MongoDB health check failed", "error", err)
		return fmt.Errorf("mongodb health check failed: %w", err)
	}
	return nil
}

// Close disconnects the client. Calling it twice is a no-op.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to close mongodb connection: %w", err)
	}
	return nil
}

// InsertOne inserts doc into collection.
func (a *Adapter) InsertOne(ctx context.Context, collection string, doc any) (*mongo.InsertOneResult, error) {
	var result *mongo.InsertOneResult
	err := a.observe(ctx, tracing.OpInsertOne, collection, func(opCtx context.Context) error {
		var err error
		result, err = a.Collection(collection).InsertOne(opCtx, doc)
		return err
	})
	return result, err
}

// FindOne decodes the first document matching filter into result. A miss
// returns mongo.ErrNoDocuments.
func (a *Adapter) FindOne(ctx context.Context, collection string, filter, result any, opts ...*options.FindOneOptions) error {
	return a.observe(ctx, tracing.OpFindOne, collection, func(opCtx context.Context) error {
		return a.Collection(collection).FindOne(opCtx, filter, opts...).Decode(result)
	})
}

// Find decodes every document matching filter into results, which must be a
// pointer to a slice.
func (a *Adapter) Find(ctx context.Context, collection string, filter, results any, opts ...*options.FindOptions) error {
	return a.observe(ctx, tracing.OpFind, collection, func(opCtx context.Context) error {
		cursor, err := a.Collection(collection).Find(opCtx, filter, opts...)
		if err != nil {
			return err
		}
		return cursor.All(opCtx, results)
	})
}

// FindOneAndUpdate applies update to the first document matching filter and
// decodes the document selected by opts into result.
func (a *Adapter) FindOneAndUpdate(ctx context.Context, collection string, filter, update, result any, opts ...*options.FindOneAndUpdateOptions) error {
	return a.observe(ctx, tracing.OpFindOneAndUpdate, collection, func(opCtx context.Context) error {
		return a.Collection(collection).FindOneAndUpdate(opCtx, filter, update, opts...).Decode(result)
	})
}

// DeleteMany removes every document matching filter.
func (a *Adapter) DeleteMany(ctx context.Context, collection string, filter any) (*mongo.DeleteResult, error) {
	var result *mongo.DeleteResult
	err := a.observe(ctx, tracing.OpDeleteMany, collection, func(opCtx context.Context) error {
		var err error
		result, err = a.Collection(collection).DeleteMany(opCtx, filter)
		return err
	})
	return result, err
}

func (a *Adapter) observe(ctx context.Context, op tracing.StoreOperation, collection string, fn func(context.Context) error) error {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()

	opCtx, span := tracing.StartStoreSpan(opCtx, op, a.database, collection)
	start := time.Now()
	err := fn(opCtx)
	metrics.ObserveStoreOperation(collection, string(op), ignoreMiss(err), time.Since(start))
	tracing.EndStoreSpan(span, err)
	return err
}

func ignoreMiss(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return err
}

// withOperationTimeout bounds ctx by the adapter timeout unless the caller
// already set a deadline.
func (a *Adapter) withOperationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}
