package entitymap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Employee exercises the tag forms the key derivation must understand.
type Employee struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	FullName string             `bson:"full_name"`
	Email    string
	Legacy   string `bson:"-"`
	Note     string `bson:",omitempty"`
	secret   string
}

// Timestamps is inlined into Article below.
type Timestamps struct {
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type Article struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Title      string             `bson:"title"`
	Timestamps `bson:",inline"`
}

// Gadget keeps its identity in the encoded form (no omitempty).
type Gadget struct {
	ID    primitive.ObjectID `bson:"_id"`
	Label string             `bson:"label"`
}

// TestDocumentKeys tests key derivation from struct tags
func TestDocumentKeys(t *testing.T) {
	keys, err := documentKeys[Employee]()
	require.NoError(t, err, "documentKeys should handle a named struct")

	assert.Equal(t, "_id", keys["_id"], "the tagged identity key should be present")
	assert.Equal(t, "full_name", keys["full_name"], "the tag's first segment should become the key")
	assert.Equal(t, "email", keys["email"], "an untagged field should fall back to the lower-cased name")
	assert.Equal(t, "note", keys["note"], "a tag carrying only options should fall back to the lower-cased name")

	_, ok := keys["legacy"]
	assert.False(t, ok, "a field tagged \"-\" should be excluded")
	assert.Len(t, keys, 4, "unexported fields should not contribute keys")
}

// TestDocumentKeysInline tests driver-style inline embedding
func TestDocumentKeysInline(t *testing.T) {
	keys, err := documentKeys[Article]()
	require.NoError(t, err, "documentKeys should handle inline embedding")

	assert.Equal(t, "created_at", keys["created_at"], "inline struct fields should contribute their own keys")
	assert.Equal(t, "updated_at", keys["updated_at"], "inline struct fields should contribute their own keys")
	assert.Equal(t, "title", keys["title"], "outer fields should keep their keys")

	_, ok := keys["timestamps"]
	assert.False(t, ok, "the inline field itself should not contribute a key")
}

// TestDocumentKeysPointer tests that pointers resolve like their element type
func TestDocumentKeysPointer(t *testing.T) {
	direct, err := documentKeys[Employee]()
	require.NoError(t, err, "documentKeys should handle the struct")
	viaPointer, err := documentKeys[*Employee]()
	require.NoError(t, err, "documentKeys should handle a pointer to the struct")
	assert.Equal(t, direct, viaPointer, "a pointer type should yield the same keys as its element type")
}

// TestRemapDocument tests casing reconciliation and unknown-field dropping
func TestRemapDocument(t *testing.T) {
	keys := map[string]string{"name": "name", "age": "age"}
	raw := bson.D{
		{Key: "Name", Value: "Ann"},
		{Key: "age", Value: 30},
		{Key: "extra", Value: true},
	}

	got := remapDocument(raw, keys)

	want := bson.D{
		{Key: "name", Value: "Ann"},
		{Key: "age", Value: 30},
	}
	assert.Equal(t, want, got, "case-variant keys should be renamed, unknown keys dropped, order preserved")
}

// TestDecodeDocument tests raw-to-typed conversion end to end
func TestDecodeDocument(t *testing.T) {
	keys, err := documentKeys[Person]()
	require.NoError(t, err, "documentKeys should handle Person")

	oid := primitive.NewObjectID()
	raw := bson.D{
		{Key: "_id", Value: oid},
		{Key: "NAME", Value: "Ann"},
		{Key: "Age", Value: int32(30)},
		{Key: "unknown", Value: "dropped"},
	}

	p, err := decodeDocument[Person](raw, keys)
	require.NoError(t, err, "decodeDocument should convert the filtered document")
	assert.Equal(t, oid, p.ID, "the identity should decode")
	assert.Equal(t, "Ann", p.Name, "a case-variant key should land in the matching field")
	assert.Equal(t, 30, p.Age, "a case-variant key should land in the matching field")

	// Pointer targets are allocated by the decoder.
	pp, err := decodeDocument[*Person](raw, keys)
	require.NoError(t, err, "decodeDocument should convert into a pointer type")
	require.NotNil(t, pp, "the decoded pointer should be allocated")
	assert.Equal(t, "Ann", pp.Name, "pointer decoding should fill the same fields")
}

// TestEncodeEntity tests ordered encoding
func TestEncodeEntity(t *testing.T) {
	oid := primitive.NewObjectID()
	doc, err := encodeEntity(Gadget{ID: oid, Label: "widget"})
	require.NoError(t, err, "encodeEntity should encode a struct")

	require.Len(t, doc, 2, "every serializable field should encode")
	assert.Equal(t, "_id", doc[0].Key, "field order should be preserved")
	assert.Equal(t, oid, doc[0].Value, "the identity value should round-trip")
	assert.Equal(t, "label", doc[1].Key, "field order should be preserved")
	assert.Equal(t, "widget", doc[1].Value, "the field value should round-trip")
}

// TestFindEncodedID tests the case-insensitive identity scan
func TestFindEncodedID(t *testing.T) {
	oid := primitive.NewObjectID()
	doc := bson.D{
		{Key: "name", Value: "x"},
		{Key: "_ID", Value: oid},
	}

	key, value, ok := findEncodedID(doc, "_id")
	assert.True(t, ok, "a case-variant identity key should be found")
	assert.Equal(t, "_ID", key, "the key should be returned as stored")
	assert.Equal(t, oid, value, "the identity value should be returned")

	_, _, ok = findEncodedID(bson.D{{Key: "name", Value: "x"}}, "_id")
	assert.False(t, ok, "a document without the identity field should report absence")
}

// TestEnsureObjectID tests identity generation before insert
func TestEnsureObjectID(t *testing.T) {
	// A pointer entity is updated in place.
	p := &Gadget{Label: "widget"}
	got := ensureObjectID(p, "_id")
	assert.Same(t, p, got, "a pointer entity should be returned as-is")
	assert.False(t, p.ID.IsZero(), "a zero identity should be assigned through the pointer")

	// A value entity is copied; the caller's value stays untouched.
	v := Gadget{Label: "widget"}
	res := ensureObjectID(v, "_id")
	asGadget, ok := res.(Gadget)
	require.True(t, ok, "a value entity should come back as the same type")
	assert.False(t, asGadget.ID.IsZero(), "the copy should carry a fresh identity")
	assert.True(t, v.ID.IsZero(), "the caller's value should stay untouched")

	// An existing identity is never replaced.
	oid := primitive.NewObjectID()
	kept := ensureObjectID(&Gadget{ID: oid}, "_id")
	assert.Equal(t, oid, kept.(*Gadget).ID, "a non-zero identity should be preserved")

	// Entities without an ObjectID identity field pass through.
	type stringKeyed struct {
		ID string `bson:"_id"`
	}
	s := stringKeyed{ID: "custom"}
	assert.Equal(t, s, ensureObjectID(s, "_id"), "a string identity should pass through unchanged")
}

// TestStringifyID tests identity rendering
func TestStringifyID(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.Equal(t, oid.Hex(), stringifyID(oid), "an ObjectID should render as hex")
	assert.Equal(t, "abc", stringifyID("abc"), "a string should render as itself")
	assert.Equal(t, "7", stringifyID(7), "other values should render through fmt")
}

// TestNormalizeIDValue tests hex-to-ObjectID filter normalization
func TestNormalizeIDValue(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.Equal(t, oid, normalizeIDValue(oid.Hex()), "ObjectID hex should convert to the ObjectID")
	assert.Equal(t, "nope", normalizeIDValue("nope"), "a non-hex string should pass through")
	assert.Equal(t, 42, normalizeIDValue(42), "a non-string value should pass through")
}
