package extract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/agentic-research/tap-neon/api"
	"github.com/agentic-research/tap-neon/internal/streams"
	"github.com/ohler55/ojg/oj"
)

// ChildContextFunc derives the context a record passes to its child streams.
// The boolean is false when the stream has no children.
type ChildContextFunc func(stream string, record map[string]any) (api.Context, bool, error)

// Engine drives the extraction of a catalog.
//
// Streams are processed one at a time. Each parent record runs the complete
// request cycle of its child streams before the next record is handled, so
// the resource tree is traversed depth first.
type Engine struct {
	Catalog      *api.Catalog
	Client       Fetcher
	Target       Target
	ChildContext ChildContextFunc
	Walker       Walker

	selected map[string]bool // streams whose records are written; nil means all
	needed   map[string]bool // selected streams and their ancestors
	counts   map[string]int
	now      func() time.Time
}

func NewEngine(catalog *api.Catalog, client Fetcher, target Target) *Engine {
	return &Engine{
		Catalog:      catalog,
		Client:       client,
		Target:       target,
		ChildContext: streams.DeriveChildContext,
		Walker:       NewJsonWalker(),
		counts:       make(map[string]int),
		now:          time.Now,
	}
}

// Select restricts the written records to the named streams. Ancestors of a
// selected stream are still requested to reach it, but their records are not
// written. Selecting nothing selects every stream.
func (e *Engine) Select(names ...string) error {
	if len(names) == 0 {
		e.selected, e.needed = nil, nil
		return nil
	}

	selected := make(map[string]bool)
	needed := make(map[string]bool)
	for _, name := range names {
		entry, ok := e.Catalog.Lookup(name)
		if !ok {
			return fmt.Errorf("unknown stream %q", name)
		}
		selected[name] = true
		for {
			needed[entry.Name] = true
			if entry.IsRoot() {
				break
			}
			parent, ok := e.Catalog.Lookup(entry.Parent)
			if !ok {
				return fmt.Errorf("stream %s: unknown parent %q", entry.Name, entry.Parent)
			}
			entry = parent
		}
	}
	e.selected, e.needed = selected, needed
	return nil
}

func (e *Engine) isSelected(name string) bool {
	return e.selected == nil || e.selected[name]
}

func (e *Engine) isNeeded(name string) bool {
	return e.needed == nil || e.needed[name]
}

// Counts returns the number of records written per stream.
func (e *Engine) Counts() map[string]int {
	out := make(map[string]int, len(e.counts))
	for k, v := range e.counts {
		out[k] = v
	}
	return out
}

// Run extracts every selected stream. Schemas are written before any record.
func (e *Engine) Run(ctx context.Context) error {
	for _, entry := range e.Catalog.Streams {
		if !e.isSelected(entry.Name) {
			continue
		}
		if err := e.Target.WriteSchema(entry); err != nil {
			return fmt.Errorf("write schema %s: %w", entry.Name, err)
		}
	}

	for _, entry := range e.Catalog.Streams {
		if !entry.IsRoot() || !e.isNeeded(entry.Name) {
			continue
		}
		if err := e.processStream(ctx, entry, api.Context{}); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(e.counts))
	for name := range e.counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		log.Printf("Engine: %s: %d records", name, e.counts[name])
	}
	return nil
}

func (e *Engine) children(name string) []api.CatalogEntry {
	var out []api.CatalogEntry
	for _, c := range e.Catalog.Children(name) {
		if e.isNeeded(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

func (e *Engine) processStream(ctx context.Context, entry api.CatalogEntry, sctx api.Context) error {
	path, err := sctx.Expand(entry.Path)
	if err != nil {
		return fmt.Errorf("stream %s: %w", entry.Name, err)
	}
	pager, err := NewPaginator(e.Walker, entry.CursorPath, entry.HasMorePath)
	if err != nil {
		return fmt.Errorf("stream %s: %w", entry.Name, err)
	}
	children := e.children(entry.Name)

	for !pager.Finished() {
		if err := ctx.Err(); err != nil {
			return err
		}

		body, err := e.Client.Get(ctx, path, pager.Params())
		if err != nil {
			return fmt.Errorf("stream %s: %w", entry.Name, err)
		}
		data, err := oj.Parse(body)
		if err != nil {
			return fmt.Errorf("stream %s: parse response: %w", entry.Name, err)
		}
		matches, err := e.Walker.Query(data, entry.RecordsPath)
		if err != nil {
			return fmt.Errorf("stream %s: %w", entry.Name, err)
		}

		for _, match := range matches {
			record, ok := match.Context().(map[string]any)
			if !ok {
				log.Printf("Engine: %s: skipping non-object record %v", entry.Name, match.Context())
				continue
			}
			if err := e.emit(entry.Name, sctx, record); err != nil {
				return err
			}
			if len(children) == 0 {
				continue
			}

			childCtx, isParent, err := e.ChildContext(entry.Name, record)
			if err != nil {
				if errors.Is(err, streams.ErrDataShape) {
					log.Printf("Engine: %s: skipping child streams: %v", entry.Name, err)
					continue
				}
				return fmt.Errorf("stream %s: %w", entry.Name, err)
			}
			if !isParent {
				continue
			}
			for _, child := range children {
				if err := e.processStream(ctx, child, childCtx); err != nil {
					return err
				}
			}
		}

		pager.Advance(data)
	}
	return nil
}

func (e *Engine) emit(stream string, sctx api.Context, record map[string]any) error {
	if !e.isSelected(stream) {
		return nil
	}
	err := e.Target.WriteRecord(api.Record{
		Stream:      stream,
		Context:     sctx,
		Data:        record,
		ExtractedAt: e.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("write %s record: %w", stream, err)
	}
	e.counts[stream]++
	return nil
}
