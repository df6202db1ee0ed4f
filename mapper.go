// Package entitymap maps Go struct types onto MongoDB collections.
//
// A Mapper binds a database; package-level generic functions (Get, GetList,
// Insert, Update, DeleteOne, DeleteMany, ...) resolve each entity type to a
// collection by pluralizing its lower-cased type name, so Person is stored in
// "persons" without any per-type registration. Field mapping follows the
// driver's bson tags, and documents whose stored field casing differs from
// the struct's keys are reconciled case-insensitively on read.
package entitymap

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"entitymap/core"
)

// DefaultURI is the connection string used when New is given an empty URI.
const DefaultURI = "mongodb://localhost:27017"

// Mapper provides typed access to the collections of one MongoDB database.
// All methods and the package-level entity operations are safe for concurrent
// use.
type Mapper struct {
	client     *mongo.Client
	database   *mongo.Database
	naming     NamingStrategy
	idField    string
	ownsClient bool

	closed  bool
	closeMu sync.Mutex
}

// New creates a Mapper with its own client for the given connection string
// and database. An empty uri falls back to DefaultURI. No I/O happens here;
// the driver connects lazily on first use, so a wrong address surfaces on the
// first operation rather than at construction.
func New(ctx context.Context, uri, database string, opts ...Option) (*Mapper, error) {
	if uri == "" {
		uri = DefaultURI
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongodb client: %w", err)
	}

	m, err := NewWithClient(client, database, opts...)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	m.ownsClient = true

	core.Debug("mapper created",
		zap.String("uri", uri),
		zap.String("database", database))
	return m, nil
}

// NewWithClient creates a Mapper on an existing client. The client stays
// owned by the caller: Close will not disconnect it.
func NewWithClient(client *mongo.Client, database string, opts ...Option) (*Mapper, error) {
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}
	if database == "" {
		return nil, fmt.Errorf("database name cannot be empty")
	}

	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Mapper{
		client:   client,
		database: client.Database(database),
		naming:   o.Naming,
		idField:  o.IDField,
	}, nil
}

// Close releases the Mapper. The underlying client is disconnected only when
// the Mapper created it. Calling Close more than once is a no-op.
func (m *Mapper) Close(ctx context.Context) error {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.ownsClient {
		if err := m.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to disconnect mongodb client: %w", err)
		}
	}

	core.Debug("mapper closed", zap.String("database", m.database.Name()))
	return nil
}

// Client returns the underlying driver client.
func (m *Mapper) Client() *mongo.Client {
	return m.client
}

// Database returns the underlying driver database.
func (m *Mapper) Database() *mongo.Database {
	return m.database
}

func (m *Mapper) checkClosed() error {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}
