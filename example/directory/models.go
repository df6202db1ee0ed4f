package directory

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Person is a directory entry. The type name maps it to the "people"
// collection.
type Person struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name"`
	Email string             `bson:"email"`
	Age   int                `bson:"age"`
}

// Order is a purchase recorded against a person, stored in "orders". The
// reference is the identifier handed out to clients; the ObjectID stays
// internal.
type Order struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Reference string             `bson:"reference"`
	PersonID  primitive.ObjectID `bson:"person_id"`
	Item      string             `bson:"item"`
	Quantity  int                `bson:"quantity"`
	PlacedAt  time.Time          `bson:"placed_at"`
}
