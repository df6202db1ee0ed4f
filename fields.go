package entitymap

import (
	"fmt"
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// documentKeys returns the document keys T's serializable fields decode from,
// as a map of lower-cased key to canonical key. Keys follow the driver's own
// convention: the first segment of the bson tag when present, the lower-cased
// field name otherwise. Fields tagged "-" are excluded and ",inline" structs
// contribute their fields directly, again matching the driver.
func documentKeys[T any]() (map[string]string, error) {
	t, err := entityType[T]()
	if err != nil {
		return nil, err
	}
	keys := make(map[string]string, t.NumField())
	addDocumentKeys(t, keys)
	return keys, nil
}

func addDocumentKeys(t reflect.Type, keys map[string]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		key, inline := documentKey(f)
		if key == "" && !inline {
			continue
		}
		if inline {
			ft := f.Type
			for ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				addDocumentKeys(ft, keys)
			}
			continue
		}
		keys[strings.ToLower(key)] = key
	}
}

// documentKey resolves the document key for one struct field. An empty key
// with inline=false means the field is excluded from mapping.
func documentKey(f reflect.StructField) (key string, inline bool) {
	key = strings.ToLower(f.Name)
	tag, ok := f.Tag.Lookup("bson")
	if !ok {
		return key, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] == "-" {
		return "", false
	}
	if parts[0] != "" {
		key = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "inline" {
			return "", true
		}
	}
	return key, false
}

// remapDocument reconciles a raw document's field casing with the target
// type's document keys: an element whose key matches a target key (exactly or
// case-insensitively) is kept under the target key, everything else is
// dropped. Element order is preserved.
func remapDocument(raw bson.D, keys map[string]string) bson.D {
	filtered := make(bson.D, 0, len(raw))
	for _, elem := range raw {
		canonical, ok := keys[strings.ToLower(elem.Key)]
		if !ok {
			continue
		}
		filtered = append(filtered, bson.E{Key: canonical, Value: elem.Value})
	}
	return filtered
}

// decodeDocument converts a raw document into T through remapDocument and the
// driver's structured decoder. Unmatched raw fields are silently discarded.
func decodeDocument[T any](raw bson.D, keys map[string]string) (T, error) {
	var result T

	data, err := bson.Marshal(remapDocument(raw, keys))
	if err != nil {
		return result, fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := bson.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return result, nil
}

// encodeEntity encodes an entity into its ordered document form using the
// driver's encoder.
func encodeEntity(entity any) (bson.D, error) {
	data, err := bson.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entity: %w", err)
	}
	var doc bson.D
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode encoded entity: %w", err)
	}
	return doc, nil
}

// findEncodedID scans an encoded document case-insensitively for the identity
// field and returns the key as stored plus its value.
func findEncodedID(doc bson.D, idField string) (string, interface{}, bool) {
	for _, elem := range doc {
		if strings.EqualFold(elem.Key, idField) {
			return elem.Key, elem.Value, true
		}
	}
	return "", nil, false
}

// ensureObjectID assigns a fresh ObjectID to the entity's identity field when
// that field is a zero primitive.ObjectID, so inserts never write the nil
// ObjectID. Pointer entities are updated in place; value entities are copied
// first and the copy is returned. Entities without a zero ObjectID identity
// field pass through untouched.
func ensureObjectID(entity any, idField string) any {
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return entity
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return entity
	}

	idx := objectIDFieldIndex(v.Type(), idField)
	if idx < 0 || !v.Field(idx).IsZero() {
		return entity
	}

	if !v.CanSet() {
		copied := reflect.New(v.Type()).Elem()
		copied.Set(v)
		v = copied
	}
	v.Field(idx).Set(reflect.ValueOf(primitive.NewObjectID()))

	if reflect.ValueOf(entity).Kind() == reflect.Ptr {
		return entity
	}
	return v.Interface()
}

func objectIDFieldIndex(t reflect.Type, idField string) int {
	objectIDType := reflect.TypeOf(primitive.ObjectID{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Type != objectIDType {
			continue
		}
		key, _ := documentKey(f)
		if strings.EqualFold(key, idField) {
			return i
		}
	}
	return -1
}

// stringifyID renders an identity value in its string form: ObjectIDs as hex,
// strings as-is, anything else through fmt.
func stringifyID(id interface{}) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
