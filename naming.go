package entitymap

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jinzhu/inflection"
)

// NamingStrategy maps an entity type's simple name (e.g. "Person") to the
// collection it is stored in. The strategy receives the name exactly as the
// type declares it and owns the full transformation.
type NamingStrategy func(typeName string) string

// CollectionNamer lets an entity type override collection resolution entirely.
// When a type implements it, the mapper uses the returned name and never
// consults the naming strategy.
type CollectionNamer interface {
	CollectionName() string
}

// PluralNaming is the default naming strategy: the type's simple name is
// lower-cased and pluralized with an English dictionary, so Person maps to
// "people" and Order to "orders". Names the dictionary does not know fall back
// to a plain "s" suffix.
func PluralNaming(typeName string) string {
	return inflection.Plural(strings.ToLower(typeName))
}

var collectionNamerType = reflect.TypeOf((*CollectionNamer)(nil)).Elem()

// entityType returns the underlying named struct type for T, following
// pointers. Unnamed and non-struct types cannot be mapped.
func entityType[T any]() (reflect.Type, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidEntity, t.Kind())
	}
	if t.Name() == "" {
		return nil, fmt.Errorf("%w: anonymous struct has no type name", ErrInvalidEntity)
	}
	return t, nil
}

// collectionNameOf resolves the collection name for a struct type: a
// CollectionNamer implementation wins, otherwise the strategy is applied to
// the type's simple name. Resolution is a pure function of the type, so the
// same type always yields the same name for a given mapper.
func collectionNameOf(t reflect.Type, strategy NamingStrategy) string {
	// *T's method set covers both receiver kinds; reflect.New gives a non-nil
	// *T so the call is safe either way.
	if reflect.PointerTo(t).Implements(collectionNamerType) {
		return reflect.New(t).Interface().(CollectionNamer).CollectionName()
	}
	return strategy(t.Name())
}
