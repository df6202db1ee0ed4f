package directory

import (
	"context"
	"fmt"
	"time"

	"entitymap"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DirectoryService manages people and their orders through an entity mapper.
type DirectoryService struct {
	mapper *entitymap.Mapper
}

// NewDirectoryService creates a directory service on the given mapper.
func NewDirectoryService(m *entitymap.Mapper) *DirectoryService {
	return &DirectoryService{mapper: m}
}

// AddPerson stores a new person and returns it with its assigned identity.
func (s *DirectoryService) AddPerson(ctx context.Context, name, email string, age int) (*Person, error) {
	p := &Person{Name: name, Email: email, Age: age}
	if _, err := entitymap.Insert(ctx, s.mapper, p); err != nil {
		return nil, fmt.Errorf("failed to add person: %w", err)
	}
	return p, nil
}

// FindPersonByEmail returns the person with the given email, or a zero Person
// when nobody matches.
func (s *DirectoryService) FindPersonByEmail(ctx context.Context, email string) (Person, error) {
	return entitymap.Get[Person](ctx, s.mapper, "email", email)
}

// PeopleNamed returns every person with the given name.
func (s *DirectoryService) PeopleNamed(ctx context.Context, name string) ([]Person, error) {
	return entitymap.GetList[Person](ctx, s.mapper, "name", name)
}

// RenamePerson changes a person's name and returns the updated entry.
func (s *DirectoryService) RenamePerson(ctx context.Context, id primitive.ObjectID, name string) (Person, error) {
	p, err := entitymap.GetByID[Person](ctx, s.mapper, id)
	if err != nil {
		return Person{}, fmt.Errorf("failed to load person: %w", err)
	}
	if p.ID.IsZero() {
		return Person{}, fmt.Errorf("person %s not found", id.Hex())
	}

	p.Name = name
	if err := entitymap.Update(ctx, s.mapper, &p); err != nil {
		return Person{}, fmt.Errorf("failed to rename person: %w", err)
	}
	return p, nil
}

// PlaceOrder records an order for a person, tagged with a fresh client-facing
// reference.
func (s *DirectoryService) PlaceOrder(ctx context.Context, personID primitive.ObjectID, item string, quantity int) (*Order, error) {
	o := &Order{
		Reference: uuid.NewString(),
		PersonID:  personID,
		Item:      item,
		Quantity:  quantity,
		PlacedAt:  time.Now().UTC(),
	}
	if _, err := entitymap.Insert(ctx, s.mapper, o); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	return o, nil
}

// OrdersFor lists a person's orders.
func (s *DirectoryService) OrdersFor(ctx context.Context, personID primitive.ObjectID) ([]Order, error) {
	return entitymap.GetList[Order](ctx, s.mapper, "person_id", personID)
}

// OrderCount returns how many orders a person has placed.
func (s *DirectoryService) OrderCount(ctx context.Context, personID primitive.ObjectID) (int64, error) {
	return entitymap.Count[Order](ctx, s.mapper, "person_id", personID)
}

// RemovePerson deletes a person together with all their orders and returns
// the number of orders removed.
func (s *DirectoryService) RemovePerson(ctx context.Context, id primitive.ObjectID) (int64, error) {
	orders, err := entitymap.DeleteMany[Order](ctx, s.mapper, "person_id", id)
	if err != nil {
		return 0, fmt.Errorf("failed to remove orders: %w", err)
	}

	removed, err := entitymap.DeleteOne[Person](ctx, s.mapper, "", id)
	if err != nil {
		return orders, fmt.Errorf("failed to remove person: %w", err)
	}
	if !removed {
		return orders, fmt.Errorf("person %s not found", id.Hex())
	}
	return orders, nil
}

// WatchPeople streams changes to the people collection.
func (s *DirectoryService) WatchPeople(ctx context.Context) (<-chan entitymap.WatchEvent[Person], error) {
	return entitymap.Watch[Person](ctx, s.mapper)
}
