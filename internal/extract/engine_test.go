package extract

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/agentic-research/tap-neon/api"
	"github.com/agentic-research/tap-neon/internal/schema"
	"github.com/agentic-research/tap-neon/internal/streams"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves pages by path; cursor "cN" selects page N.
type fakeFetcher struct {
	pages    map[string][]string
	requests []string
}

func (f *fakeFetcher) Get(_ context.Context, path string, params url.Values) ([]byte, error) {
	f.requests = append(f.requests, path+"?"+params.Encode())
	idx := 0
	if c := params.Get("cursor"); c != "" {
		idx, _ = strconv.Atoi(strings.TrimPrefix(c, "c"))
	}
	bodies := f.pages[path]
	if idx >= len(bodies) {
		return nil, fmt.Errorf("unexpected request %s %v", path, params)
	}
	return []byte(bodies[idx]), nil
}

func (f *fakeFetcher) count(path string) int {
	n := 0
	for _, r := range f.requests {
		if strings.HasPrefix(r, path+"?") {
			n++
		}
	}
	return n
}

type recordingTarget struct {
	schemas []string
	records []api.Record
}

func (r *recordingTarget) WriteSchema(entry api.CatalogEntry) error {
	r.schemas = append(r.schemas, entry.Name)
	return nil
}

func (r *recordingTarget) WriteRecord(rec api.Record) error {
	r.records = append(r.records, rec)
	return nil
}

func (r *recordingTarget) trace() []string {
	var out []string
	for _, rec := range r.records {
		key := rec.Data["id"]
		if key == nil {
			key = rec.Data["name"]
		}
		out = append(out, fmt.Sprintf("%s:%v", rec.Stream, key))
	}
	return out
}

func discoverCatalog(t *testing.T) *api.Catalog {
	t.Helper()
	doc, err := schema.Bundled()
	require.NoError(t, err)
	r, err := schema.NewResolver(doc)
	require.NoError(t, err)
	catalog, err := streams.Discover(r)
	require.NoError(t, err)
	return catalog
}

func neonFixture() *fakeFetcher {
	return &fakeFetcher{pages: map[string][]string{
		"/projects": {
			`{"projects": [{"id": "p1", "name": "alpha"}], "next_page": "c1"}`,
			`{"projects": [{"id": "p2", "name": "beta"}]}`,
		},
		"/projects/p1/branches": {
			`{"branches": [{"id": "b1", "project_id": "p1"}]}`,
		},
		"/projects/p1/branches/b1/databases": {
			`{"databases": [{"id": 7, "branch_id": "b1", "name": "neondb"}]}`,
		},
		"/projects/p1/branches/b1/roles": {
			`{"roles": [{"branch_id": "b1", "name": "owner"}]}`,
		},
		"/projects/p1/endpoints": {`{"endpoints": []}`},
		"/projects/p1/operations": {
			`{"operations": [{"id": "o1", "project_id": "p1"}], "pagination": {"cursor": "c1"}}`,
			`{"operations": [], "pagination": {"cursor": "c1"}}`,
		},
		"/projects/p1/snapshots": {`{"snapshots": []}`},
		"/projects/p2/branches": {
			`{"branches": [{"id": "b2"}]}`,
		},
		"/projects/p2/endpoints": {`{"endpoints": [{"id": "e2", "project_id": "p2"}]}`},
		"/projects/p2/operations": {`{"operations": []}`},
		"/projects/p2/snapshots": {`{"snapshots": [{"id": "s2", "name": "nightly"}]}`},
	}}
}

func TestEngine_Run(t *testing.T) {
	fetcher := neonFixture()
	target := &recordingTarget{}
	engine := NewEngine(discoverCatalog(t), fetcher, target)

	require.NoError(t, engine.Run(context.Background()))

	t.Run("schemas first in name order", func(t *testing.T) {
		assert.Equal(t, []string{
			"branches", "databases", "endpoints", "operations", "projects", "roles", "snapshots",
		}, target.schemas)
	})

	t.Run("depth first", func(t *testing.T) {
		assert.Equal(t, []string{
			"projects:p1",
			"branches:b1",
			"databases:7",
			"roles:owner",
			"operations:o1",
			"projects:p2",
			"branches:b2",
			"endpoints:e2",
			"snapshots:s2",
		}, target.trace())
	})

	t.Run("context is attached", func(t *testing.T) {
		for _, rec := range target.records {
			switch rec.Stream {
			case "databases", "roles":
				assert.Equal(t, api.Context{ProjectID: "p1", BranchID: "b1"}, rec.Context)
			case "projects":
				assert.True(t, rec.Context.IsZero())
			}
			assert.False(t, rec.ExtractedAt.IsZero())
		}
	})

	t.Run("repeated cursor stops pagination", func(t *testing.T) {
		assert.Equal(t, 2, fetcher.count("/projects/p1/operations"))
	})

	t.Run("malformed parent keeps record and skips children", func(t *testing.T) {
		assert.Zero(t, fetcher.count("/projects/p2/branches/b2/databases"))
	})

	t.Run("every request is limited", func(t *testing.T) {
		for _, r := range fetcher.requests {
			assert.Contains(t, r, "limit=100")
		}
		assert.Contains(t, fetcher.requests, "/projects?cursor=c1&limit=100")
	})

	t.Run("counts", func(t *testing.T) {
		counts := engine.Counts()
		assert.Equal(t, 2, counts["projects"])
		assert.Equal(t, 2, counts["branches"])
		assert.Equal(t, 1, counts["endpoints"])
	})
}

func TestEngine_Select(t *testing.T) {
	fetcher := neonFixture()
	target := &recordingTarget{}
	engine := NewEngine(discoverCatalog(t), fetcher, target)

	require.NoError(t, engine.Select("databases"))
	require.NoError(t, engine.Run(context.Background()))

	assert.Equal(t, []string{"databases"}, target.schemas)
	assert.Equal(t, []string{"databases:7"}, target.trace())
	assert.Zero(t, fetcher.count("/projects/p1/endpoints"))
	assert.Zero(t, fetcher.count("/projects/p1/branches/b1/roles"))
	assert.Equal(t, 1, fetcher.count("/projects/p1/branches"))
}

func TestEngine_SelectUnknown(t *testing.T) {
	engine := NewEngine(discoverCatalog(t), &fakeFetcher{}, &recordingTarget{})
	assert.Error(t, engine.Select("consumption"))
}

func TestEngine_MissingPathVariableIsFatal(t *testing.T) {
	catalog := &api.Catalog{Streams: []api.CatalogEntry{
		{Stream: api.Stream{Name: "projects", Path: "/projects", RecordsPath: "$.projects[*]"}},
		{Stream: api.Stream{
			Name:        "roles",
			Path:        "/projects/{project_id}/branches/{branch_id}/roles",
			RecordsPath: "$.roles[*]",
			Parent:      "projects",
		}},
	}}
	fetcher := &fakeFetcher{pages: map[string][]string{
		"/projects": {`{"projects": [{"id": "p1"}]}`},
	}}

	err := NewEngine(catalog, fetcher, &recordingTarget{}).Run(context.Background())
	assert.ErrorIs(t, err, api.ErrMissingPathVariable)
}

func TestEngine_FetchErrorIsFatal(t *testing.T) {
	err := NewEngine(discoverCatalog(t), &fakeFetcher{}, &recordingTarget{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream projects")
}

func TestEngine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewEngine(discoverCatalog(t), neonFixture(), &recordingTarget{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// countingWalker records the selectors the engine and its paginators evaluate.
type countingWalker struct {
	*JsonWalker
	queries []string
	firsts  []string
}

func (w *countingWalker) Query(root any, selector string) ([]Match, error) {
	w.queries = append(w.queries, selector)
	return w.JsonWalker.Query(root, selector)
}

func (w *countingWalker) First(root any, selector string) (any, error) {
	w.firsts = append(w.firsts, selector)
	return w.JsonWalker.First(root, selector)
}

func TestEngine_UsesConfiguredWalker(t *testing.T) {
	walker := &countingWalker{JsonWalker: NewJsonWalker()}
	engine := NewEngine(discoverCatalog(t), neonFixture(), &recordingTarget{})
	engine.Walker = walker

	require.NoError(t, engine.Run(context.Background()))

	assert.Contains(t, walker.queries, "$.projects[*]")
	assert.Contains(t, walker.queries, "$.roles[*]")
	assert.Contains(t, walker.firsts, "$.next_page")
	assert.Contains(t, walker.firsts, "$.pagination.has_more")
	assert.Contains(t, walker.firsts, "$.pagination.cursor")
}
