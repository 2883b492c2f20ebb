package schema

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

const cacheSize = 64

// Resolver derives normalized stream schemas from a Document.
// Each definition is resolved, normalized and corrected once; later calls
// return the cached schema, which callers must treat as read-only.
type Resolver struct {
	doc   *Document
	cache *lru.Cache[string, Schema]
}

// NewResolver creates a Resolver over doc.
func NewResolver(doc *Document) (*Resolver, error) {
	cache, err := lru.New[string, Schema](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create schema cache: %w", err)
	}
	return &Resolver{doc: doc, cache: cache}, nil
}

// Document returns the underlying API document.
func (r *Resolver) Document() *Document {
	return r.doc
}

// Normalized returns the normalized schema of the named definition.
func (r *Resolver) Normalized(name string) (Schema, error) {
	if s, ok := r.cache.Get(name); ok {
		return s, nil
	}

	resolved, err := r.doc.Resolve(name)
	if err != nil {
		return nil, err
	}
	normalized, err := Normalize(resolved)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", name, err)
	}
	s := ApplyFixups(name, normalized)

	r.cache.Add(name, s)
	return s, nil
}
