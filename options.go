package entitymap

// Options configures a Mapper.
type Options struct {
	// Naming derives a collection name from an entity type name. Types
	// implementing CollectionNamer bypass it.
	Naming NamingStrategy

	// IDField is the document key of the identity field. The driver stores
	// identities under "_id" and there is rarely a reason to change this.
	IDField string
}

// DefaultOptions returns the default Mapper options: lower-cased pluralized
// collection names and "_id" as the identity key.
func DefaultOptions() *Options {
	return &Options{
		Naming:  PluralNaming,
		IDField: "_id",
	}
}

// Option modifies Mapper options.
type Option func(*Options)

// WithNamingStrategy replaces the collection naming strategy. A nil strategy
// is ignored.
func WithNamingStrategy(naming NamingStrategy) Option {
	return func(o *Options) {
		if naming != nil {
			o.Naming = naming
		}
	}
}

// WithIDField overrides the identity document key. An empty key is ignored.
func WithIDField(field string) Option {
	return func(o *Options) {
		if field != "" {
			o.IDField = field
		}
	}
}
