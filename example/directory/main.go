package directory

import (
	"context"
	"log"

	"entitymap"
)

// Example walks the directory service through the full entity life cycle:
// insert, lookup, list, update, count and delete.
func Example() {
	ctx := context.Background()

	// An empty URI falls back to the local server.
	mapper, err := entitymap.New(ctx, "", "directory_db")
	if err != nil {
		log.Fatalf("Failed to create mapper: %v", err)
	}
	defer mapper.Close(ctx)

	service := NewDirectoryService(mapper)

	// Watch people changes in the background. Change streams need a
	// replica set, so a failure here only disables the feed.
	events, err := service.WatchPeople(ctx)
	if err != nil {
		log.Printf("Change feed unavailable: %v", err)
	} else {
		go func() {
			for event := range events {
				log.Printf("Person %s: %s", event.Operation, event.ID)
			}
		}()
	}

	// Keep email lookups unique.
	if err := entitymap.EnsureIndex[Person](ctx, mapper, "email", true); err != nil {
		log.Fatalf("Failed to ensure email index: %v", err)
	}

	// Add people.
	ann, err := service.AddPerson(ctx, "Ann", "ann@example.com", 30)
	if err != nil {
		log.Fatalf("Failed to add person: %v", err)
	}
	log.Printf("Added %s (ID: %s)", ann.Name, ann.ID.Hex())

	bob, err := service.AddPerson(ctx, "Bob", "bob@example.com", 25)
	if err != nil {
		log.Fatalf("Failed to add person: %v", err)
	}
	log.Printf("Added %s (ID: %s)", bob.Name, bob.ID.Hex())

	// Look one up by email.
	found, err := service.FindPersonByEmail(ctx, "ann@example.com")
	if err != nil {
		log.Fatalf("Failed to find person: %v", err)
	}
	log.Printf("Found %s, age %d", found.Name, found.Age)

	// Place some orders for Ann.
	for _, item := range []string{"keyboard", "monitor"} {
		order, err := service.PlaceOrder(ctx, ann.ID, item, 1)
		if err != nil {
			log.Fatalf("Failed to place order: %v", err)
		}
		log.Printf("Placed order %s: %s", order.Reference, order.Item)
	}

	count, err := service.OrderCount(ctx, ann.ID)
	if err != nil {
		log.Fatalf("Failed to count orders: %v", err)
	}
	log.Printf("%s has %d orders", ann.Name, count)

	// Rename and verify.
	renamed, err := service.RenamePerson(ctx, ann.ID, "Anna")
	if err != nil {
		log.Fatalf("Failed to rename person: %v", err)
	}
	log.Printf("Renamed to %s", renamed.Name)

	people, err := service.PeopleNamed(ctx, "Anna")
	if err != nil {
		log.Fatalf("Failed to list people: %v", err)
	}
	log.Printf("People named Anna: %d", len(people))

	// Remove Anna and everything she ordered.
	orders, err := service.RemovePerson(ctx, ann.ID)
	if err != nil {
		log.Fatalf("Failed to remove person: %v", err)
	}
	log.Printf("Removed Anna and %d orders", orders)
}
