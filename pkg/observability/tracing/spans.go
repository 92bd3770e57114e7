package tracing

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StoreTracerName is the instrumentation scope of document store spans.
const StoreTracerName = "crudkit/store"

// StoreOperation names a traced document store call.
type StoreOperation string

const (
	OpInsertOne        StoreOperation = "insert_one"
	OpFind             StoreOperation = "find"
	OpFindOne          StoreOperation = "find_one"
	OpFindOneAndUpdate StoreOperation = "find_one_and_update"
	OpDeleteMany       StoreOperation = "delete_many"
)

// StartStoreSpan opens a client span for a MongoDB call on collection.
func StartStoreSpan(ctx context.Context, op StoreOperation, database, collection string) (context.Context, trace.Span) {
	tracer := otel.Tracer(StoreTracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("mongodb %s %s", op, collection), trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "mongodb"),
		attribute.String("db.name", database),
		attribute.String("db.mongodb.collection", collection),
		attribute.String("db.operation", string(op)),
	)
	return ctx, span
}

// EndStoreSpan records the outcome and ends the span. A miss
// (mongo.ErrNoDocuments) is not an error.
func EndStoreSpan(span trace.Span, err error) {
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, mongo.ErrNoDocuments):
		span.SetAttributes(attribute.Bool("db.miss", true))
		span.SetStatus(codes.Ok, "")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
