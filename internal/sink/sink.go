// Package sink writes extracted schemas and records to their destination.
package sink

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/agentic-research/tap-neon/api"
)

// ErrUnsupportedOutput is returned by Open for an unrecognized output destination.
var ErrUnsupportedOutput = errors.New("unsupported output")

// Target receives the schemas and records of a run.
type Target interface {
	WriteSchema(entry api.CatalogEntry) error
	WriteRecord(rec api.Record) error
	Close() error
}

// Open returns the target named by an output destination:
//
//	"" or "-"                    Singer messages on stdout
//	"memory"                     in-memory store (dry run)
//	"sqlite:<path>", "<path>.db" SQLite database
//	"postgres://...", "postgresql://..." Postgres database
func Open(dest string) (Target, error) {
	switch {
	case dest == "" || dest == "-":
		return NewSingerWriter(os.Stdout), nil
	case dest == "memory":
		return NewMemoryStore(), nil
	case strings.HasPrefix(dest, "postgres://"), strings.HasPrefix(dest, "postgresql://"):
		return NewSQLWriter(DialectPostgres, dest)
	case strings.HasPrefix(dest, "sqlite:"):
		return NewSQLWriter(DialectSQLite, strings.TrimPrefix(dest, "sqlite:"))
	case strings.HasSuffix(dest, ".db"), strings.HasSuffix(dest, ".sqlite"):
		return NewSQLWriter(DialectSQLite, dest)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedOutput, dest)
	}
}

// RecordKey identifies a record within its stream: the bound context
// variables followed by the primary key values, joined by "/".
// Role names, for example, are only unique within their branch.
func RecordKey(rec api.Record, primaryKeys []string) string {
	var parts []string
	for _, name := range rec.Context.Bound() {
		v, _ := rec.Context.Lookup(name)
		parts = append(parts, v)
	}
	for _, k := range primaryKeys {
		parts = append(parts, fmt.Sprint(rec.Data[k]))
	}
	return strings.Join(parts, "/")
}
