package streams

import (
	"fmt"
	"sort"

	"github.com/agentic-research/tap-neon/api"
	"github.com/agentic-research/tap-neon/internal/schema"
)

// Discover resolves the normalized schema of every stream and returns the
// catalog ordered by stream name. Any resolution failure aborts discovery.
func Discover(r *schema.Resolver) (*api.Catalog, error) {
	return discover(r, Definitions)
}

func discover(r *schema.Resolver, defs []api.Stream) (*api.Catalog, error) {
	entries := make([]api.CatalogEntry, 0, len(defs))
	for _, def := range defs {
		s, err := r.Normalized(def.SchemaRef)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", def.Name, err)
		}
		entries = append(entries, api.CatalogEntry{
			Stream:      def,
			TapStreamID: def.Name,
			Schema:      s,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return &api.Catalog{Streams: entries}, nil
}
