package entitymap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"entitymap/core"
)

// Entity operations are package-level generic functions rather than Mapper
// methods because Go methods cannot introduce type parameters.

// CollectionName returns the collection name T resolves to under the
// Mapper's naming strategy.
func CollectionName[T any](m *Mapper) (string, error) {
	t, err := entityType[T]()
	if err != nil {
		return "", err
	}
	return collectionNameOf(t, m.naming), nil
}

// Collection returns the driver collection handle T resolves to, for
// operations this package does not cover.
func Collection[T any](m *Mapper) (*mongo.Collection, error) {
	coll, _, err := resolveCollection[T](m)
	return coll, err
}

// resolveCollection resolves T to its collection handle and document key set.
func resolveCollection[T any](m *Mapper) (*mongo.Collection, map[string]string, error) {
	if err := m.checkClosed(); err != nil {
		return nil, nil, err
	}
	t, err := entityType[T]()
	if err != nil {
		return nil, nil, err
	}
	keys := make(map[string]string, t.NumField())
	addDocumentKeys(t, keys)
	return m.database.Collection(collectionNameOf(t, m.naming)), keys, nil
}

// filterFor builds the single-field filter for an operation. An empty key
// selects the identity field. Keys matching one of T's document keys
// case-insensitively are canonicalized; anything else is passed through
// verbatim so callers can still filter on fields the struct does not declare.
func (m *Mapper) filterFor(keys map[string]string, key string, value interface{}) bson.M {
	if key == "" {
		key = m.idField
	} else if canonical, ok := keys[strings.ToLower(key)]; ok {
		key = canonical
	}
	if strings.EqualFold(key, m.idField) {
		value = normalizeIDValue(value)
	}
	return bson.M{key: value}
}

// normalizeIDValue converts a 24-character hex string into an ObjectID so the
// string form returned by Insert can be used directly in identity filters.
// Anything that is not ObjectID hex passes through unchanged.
func normalizeIDValue(value interface{}) interface{} {
	if s, ok := value.(string); ok {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	return value
}

// Get returns the first entity whose key equals value, or the zero value of T
// when nothing matches; absence is not an error. An empty key filters on the
// identity field.
func Get[T any](ctx context.Context, m *Mapper, key string, value interface{}) (T, error) {
	var zero T

	coll, keys, err := resolveCollection[T](m)
	if err != nil {
		return zero, err
	}

	var raw bson.D
	if err := coll.FindOne(ctx, m.filterFor(keys, key, value)).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, nil
		}
		return zero, fmt.Errorf("failed to find document: %w", err)
	}
	return decodeDocument[T](raw, keys)
}

// GetByID returns the entity with the given identity, or the zero value of T
// when it does not exist.
func GetByID[T any](ctx context.Context, m *Mapper, id interface{}) (T, error) {
	return Get[T](ctx, m, "", id)
}

// GetList returns every entity whose key equals value. The result is an empty
// non-nil slice when nothing matches. An empty key filters on the identity
// field.
func GetList[T any](ctx context.Context, m *Mapper, key string, value interface{}) ([]T, error) {
	coll, keys, err := resolveCollection[T](m)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, m.filterFor(keys, key, value))
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer cursor.Close(ctx)

	results := make([]T, 0)
	for cursor.Next(ctx) {
		var raw bson.D
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		entity, err := decodeDocument[T](raw, keys)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return results, nil
}

// Insert stores the entity in T's collection and returns the inserted
// identity in string form (ObjectIDs as hex). A zero ObjectID identity field
// is assigned a fresh ObjectID before the write; the entity is updated in
// place when passed as a pointer.
func Insert[T any](ctx context.Context, m *Mapper, entity T) (string, error) {
	coll, _, err := resolveCollection[T](m)
	if err != nil {
		return "", err
	}

	res, err := coll.InsertOne(ctx, ensureObjectID(entity, m.idField))
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	id := stringifyID(res.InsertedID)
	core.Debug("document inserted",
		zap.String("collection", coll.Name()),
		zap.String("id", id))
	return id, nil
}

// Update overwrites the stored document that shares the entity's identity
// with the entity's current field values, in a single atomic write. An entity
// whose encoded form carries no identity field cannot address a document and
// yields ErrMissingID.
func Update[T any](ctx context.Context, m *Mapper, entity T) error {
	coll, _, err := resolveCollection[T](m)
	if err != nil {
		return err
	}

	doc, err := encodeEntity(entity)
	if err != nil {
		return err
	}

	idKey, idValue, ok := findEncodedID(doc, m.idField)
	if !ok {
		return fmt.Errorf("%w: encoded document has no %q field", ErrMissingID, m.idField)
	}
	return applyUpdate(ctx, coll, bson.M{idKey: idValue}, doc, m.idField)
}

// UpdateBy overwrites the first document matching {key: value} with the
// entity's field values. The identity field is never part of the write, so
// the matched document keeps its identity. Matching nothing is a no-op.
func UpdateBy[T any](ctx context.Context, m *Mapper, entity T, key string, value interface{}) error {
	coll, keys, err := resolveCollection[T](m)
	if err != nil {
		return err
	}

	doc, err := encodeEntity(entity)
	if err != nil {
		return err
	}
	return applyUpdate(ctx, coll, m.filterFor(keys, key, value), doc, m.idField)
}

// applyUpdate issues one UpdateOne carrying a single $set of every encoded
// field except the identity, so concurrent readers observe either the old or
// the new document and never a partial mix.
func applyUpdate(ctx context.Context, coll *mongo.Collection, filter bson.M, doc bson.D, idField string) error {
	set := make(bson.D, 0, len(doc))
	for _, elem := range doc {
		if strings.EqualFold(elem.Key, idField) {
			continue
		}
		set = append(set, elem)
	}
	if len(set) == 0 {
		// The entity is identity-only; there is nothing to write.
		return nil
	}

	res, err := coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	core.Debug("document updated",
		zap.String("collection", coll.Name()),
		zap.Int64("matched", res.MatchedCount))
	return nil
}

// DeleteOne removes the first document whose key equals value and reports
// whether a document was removed. An empty key filters on the identity field;
// matching nothing returns false without error.
func DeleteOne[T any](ctx context.Context, m *Mapper, key string, value interface{}) (bool, error) {
	coll, keys, err := resolveCollection[T](m)
	if err != nil {
		return false, err
	}

	res, err := coll.DeleteOne(ctx, m.filterFor(keys, key, value))
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}

	if res.DeletedCount > 0 {
		core.Debug("document deleted", zap.String("collection", coll.Name()))
	}
	return res.DeletedCount > 0, nil
}

// DeleteMany removes every document whose key equals value and returns the
// number removed; zero is a valid result, not an error.
func DeleteMany[T any](ctx context.Context, m *Mapper, key string, value interface{}) (int64, error) {
	coll, keys, err := resolveCollection[T](m)
	if err != nil {
		return 0, err
	}

	res, err := coll.DeleteMany(ctx, m.filterFor(keys, key, value))
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}

	core.Debug("documents deleted",
		zap.String("collection", coll.Name()),
		zap.Int64("count", res.DeletedCount))
	return res.DeletedCount, nil
}

// Count returns the number of documents whose key equals value. An empty key
// filters on the identity field.
func Count[T any](ctx context.Context, m *Mapper, key string, value interface{}) (int64, error) {
	coll, keys, err := resolveCollection[T](m)
	if err != nil {
		return 0, err
	}

	n, err := coll.CountDocuments(ctx, m.filterFor(keys, key, value))
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// Exists reports whether at least one document matches {key: value}, without
// counting past the first match.
func Exists[T any](ctx context.Context, m *Mapper, key string, value interface{}) (bool, error) {
	coll, keys, err := resolveCollection[T](m)
	if err != nil {
		return false, err
	}

	n, err := coll.CountDocuments(ctx, m.filterFor(keys, key, value), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count documents: %w", err)
	}
	return n > 0, nil
}

// EnsureIndex creates a single-field ascending index on T's collection.
// Creating an index that already exists is a no-op on the server side.
func EnsureIndex[T any](ctx context.Context, m *Mapper, key string, unique bool) error {
	if key == "" {
		return fmt.Errorf("index key cannot be empty")
	}

	coll, keys, err := resolveCollection[T](m)
	if err != nil {
		return err
	}
	if canonical, ok := keys[strings.ToLower(key)]; ok {
		key = canonical
	}

	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: key, Value: 1}},
		Options: options.Index().SetUnique(unique),
	})
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	core.Debug("index ensured",
		zap.String("collection", coll.Name()),
		zap.String("key", key),
		zap.Bool("unique", unique))
	return nil
}

// Drop removes T's collection entirely.
func Drop[T any](ctx context.Context, m *Mapper) error {
	coll, _, err := resolveCollection[T](m)
	if err != nil {
		return err
	}
	if err := coll.Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}
