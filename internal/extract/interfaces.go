package extract

import (
	"context"
	"net/url"

	"github.com/agentic-research/tap-neon/api"
)

// Walker queries a decoded response body.
type Walker interface {
	// Query executes a selector against root and returns the matches in document order.
	Query(root any, selector string) ([]Match, error)
	// First returns the first value selected from root, or nil.
	// An invalid selector is an error even when root is nil.
	First(root any, selector string) (any, error)
}

// Match is a single result of a query.
type Match interface {
	// Context returns the matched value itself.
	Context() any
}

// Fetcher issues GET requests against the API.
type Fetcher interface {
	Get(ctx context.Context, path string, params url.Values) ([]byte, error)
}

// Target receives the schemas and records of a run.
type Target interface {
	WriteSchema(entry api.CatalogEntry) error
	WriteRecord(rec api.Record) error
}
