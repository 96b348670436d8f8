// Package registry holds the static mapping from entity types to their
// indexing rules.
//
// A Registry is built once at startup from a Config and never changes
// afterwards, so it can be shared freely between goroutines. Each entity
// type gets a Descriptor carrying:
//   - an opaque type id, derived from the type name by a TypeIDFunc
//   - the ordered field rules (name and boost)
//   - the optional-attribute rule (disabled, whole collection or named field)
//   - the primary-key attribute name (default "id")
//   - the system-of-record repository
//
// Construction and lookups fail with errors matching ErrConfiguration:
//
//	reg, err := registry.New(registry.Config{
//	    Entities: []registry.EntityConfig{{
//	        Name:       "posts",
//	        Repository: posts,
//	        Fields: registry.FieldRules{
//	            {Name: "title", Boost: 2},
//	            {Name: "body", Boost: 1},
//	        },
//	        OptionalAttributes: registry.NamedCollection("tags"),
//	    }},
//	})
//	if errors.Is(err, registry.ErrConfiguration) {
//	    // fix the configuration
//	}
//
//	d, err := reg.DescriptorFor(post)
//
// FieldRules and OptionalAttributes decode from YAML, so the same
// configuration can live in a config file.
package registry
