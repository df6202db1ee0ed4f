package entitymap

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"entitymap/core"
)

// WatchEvent is one observed change to T's collection.
type WatchEvent[T any] struct {
	// ID is the string form of the changed document's identity.
	ID string

	// Operation is "create", "update" or "delete".
	Operation string

	// Entity is the document after the change, decoded through the usual
	// field reconciliation. It stays the zero value for "delete" events.
	Entity T
}

// changeDocument is the slice of a change stream event this package reads.
type changeDocument struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID interface{} `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.D `bson:"fullDocument"`
}

// Watch opens a change stream on T's collection and feeds every insert,
// update, replace and delete through the returned channel. The channel is
// closed when ctx ends or the stream breaks. Change streams require a replica
// set or sharded deployment; on a standalone server Watch fails.
func Watch[T any](ctx context.Context, m *Mapper, opts ...*options.ChangeStreamOptions) (<-chan WatchEvent[T], error) {
	coll, keys, err := resolveCollection[T](m)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"operationType": bson.M{"$in": bson.A{"insert", "update", "replace", "delete"}},
		}}},
	}

	// Updates deliver the whole post-image so events can carry the entity.
	streamOpts := append(
		[]*options.ChangeStreamOptions{options.ChangeStream().SetFullDocument(options.UpdateLookup)},
		opts...)

	stream, err := coll.Watch(ctx, pipeline, streamOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open change stream: %w", err)
	}

	core.Debug("change stream opened", zap.String("collection", coll.Name()))

	events := make(chan WatchEvent[T])
	go func() {
		defer close(events)
		// ctx may already be done by the time the loop exits.
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var change changeDocument
			if err := stream.Decode(&change); err != nil {
				core.Warn("failed to decode change event",
					zap.Error(err),
					zap.String("collection", coll.Name()))
				continue
			}

			event := WatchEvent[T]{
				ID:        stringifyID(change.DocumentKey.ID),
				Operation: operationOf(change.OperationType),
			}
			if len(change.FullDocument) > 0 {
				entity, err := decodeDocument[T](change.FullDocument, keys)
				if err != nil {
					core.Warn("failed to decode changed document",
						zap.Error(err),
						zap.String("collection", coll.Name()))
					continue
				}
				event.Entity = entity
			}

			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
			core.Warn("change stream closed with error",
				zap.Error(err),
				zap.String("collection", coll.Name()))
		}
	}()

	return events, nil
}

func operationOf(operationType string) string {
	switch operationType {
	case "insert":
		return "create"
	case "delete":
		return "delete"
	default:
		return "update"
	}
}
