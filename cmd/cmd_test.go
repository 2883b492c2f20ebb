package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/agentic-research/tap-neon/api"
	"github.com/agentic-research/tap-neon/internal/config"
	"github.com/agentic-research/tap-neon/internal/schema"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var neonResponses = map[string]string{
	"/projects":                          `{"projects": [{"id": "p1", "name": "alpha"}]}`,
	"/projects/p1/operations":            `{"operations": [{"id": "o1", "project_id": "p1"}], "pagination": {"has_more": false}}`,
	"/projects/p1/branches":              `{"branches": [{"id": "b1", "project_id": "p1"}]}`,
	"/projects/p1/branches/b1/databases": `{"databases": [{"id": 7, "branch_id": "b1", "name": "neondb"}]}`,
	"/projects/p1/branches/b1/roles":     `{"roles": [{"branch_id": "b1", "name": "owner"}, {"branch_id": "b1", "name": "reader"}]}`,
	"/projects/p1/endpoints":             `{"endpoints": [{"id": "ep-1", "project_id": "p1"}]}`,
	"/projects/p1/snapshots":             `{"snapshots": []}`,
}

type fakeNeon struct {
	*httptest.Server
	mu    sync.Mutex
	auth  []string
	agent []string
}

func newFakeNeon(t *testing.T) *fakeNeon {
	t.Helper()
	f := &fakeNeon{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.agent = append(f.agent, r.Header.Get("User-Agent"))
		f.mu.Unlock()

		body, ok := neonResponses[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.Close)
	return f
}

func TestRunSync_SQLite(t *testing.T) {
	srv := newFakeNeon(t)
	dbPath := filepath.Join(t.TempDir(), "neon.db")

	var report bytes.Buffer
	cfg := &config.Config{APIKey: "secret", BaseURL: srv.URL}
	require.NoError(t, runSync(context.Background(), cfg, syncOptions{Output: dbPath}, &report))
	assert.Contains(t, report.String(), "Synced 7 records from 6 streams")

	var counts bytes.Buffer
	require.NoError(t, runRecordCounts(dbPath, &counts))
	assert.Equal(t, "branches\t1\ndatabases\t1\nendpoints\t1\noperations\t1\nprojects\t1\nroles\t2\n", counts.String())

	var roles bytes.Buffer
	require.NoError(t, runRecords(dbPath, "roles", &roles))
	lines := strings.Split(strings.TrimSpace(roles.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"name":"owner"`)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.NotEmpty(t, srv.auth)
	for i := range srv.auth {
		assert.Equal(t, "Bearer secret", srv.auth[i])
		assert.Equal(t, "tap-neon/"+Version, srv.agent[i])
	}
}

func TestRunSync_DryRunSelection(t *testing.T) {
	srv := newFakeNeon(t)

	var report bytes.Buffer
	cfg := &config.Config{APIKey: "secret", BaseURL: srv.URL}
	opts := syncOptions{Streams: []string{"roles"}, DryRun: true}
	require.NoError(t, runSync(context.Background(), cfg, opts, &report))

	out := report.String()
	assert.Contains(t, out, "roles")
	assert.NotContains(t, out, "endpoints")
	assert.Contains(t, out, "Synced 2 records from 1 streams")
}

func TestRunSync_Errors(t *testing.T) {
	srv := newFakeNeon(t)

	t.Run("missing api key", func(t *testing.T) {
		err := runSync(context.Background(), &config.Config{BaseURL: srv.URL}, syncOptions{DryRun: true}, &bytes.Buffer{})
		assert.ErrorIs(t, err, config.ErrMissingAPIKey)
	})

	t.Run("unknown stream", func(t *testing.T) {
		cfg := &config.Config{APIKey: "k", BaseURL: srv.URL}
		err := runSync(context.Background(), cfg, syncOptions{Streams: []string{"invoices"}, DryRun: true}, &bytes.Buffer{})
		assert.ErrorContains(t, err, "invoices")
	})

	t.Run("unsupported output", func(t *testing.T) {
		cfg := &config.Config{APIKey: "k", BaseURL: srv.URL}
		err := runSync(context.Background(), cfg, syncOptions{Output: "s3://bucket"}, &bytes.Buffer{})
		assert.Error(t, err)
	})

	t.Run("missing schema file", func(t *testing.T) {
		cfg := &config.Config{APIKey: "k", BaseURL: srv.URL, SchemaSource: filepath.Join(t.TempDir(), "none.json")}
		err := runSync(context.Background(), cfg, syncOptions{DryRun: true}, &bytes.Buffer{})
		assert.Error(t, err)
	})
}

func TestRunDiscover(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runDiscover(context.Background(), "", &out))

	var catalog api.Catalog
	require.NoError(t, json.Unmarshal(out.Bytes(), &catalog))
	require.Len(t, catalog.Streams, 7)
	assert.Equal(t, "branches", catalog.Streams[0].Name)

	roles, ok := catalog.Lookup("roles")
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, roles.PrimaryKeys)
	assert.Equal(t, "branches", roles.Parent)
}

func TestRunAbout(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runAbout(&out))

	var info map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, "tap-neon", info["name"])
	assert.Equal(t, []any{"discover", "about"}, info["capabilities"])
	assert.Len(t, info["streams"], 7)

	settings := info["settings"].(map[string]any)
	props := settings["properties"].(map[string]any)
	assert.Contains(t, props, "api_key")
}

func TestRunUpdateOpenAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken.json" {
			_, _ = w.Write([]byte(`{"openapi": "3.0.3"}`))
			return
		}
		_, _ = w.Write(schema.BundledBytes())
	}))
	defer srv.Close()

	t.Run("writes indented document", func(t *testing.T) {
		fs := memfs.New()
		var report bytes.Buffer
		require.NoError(t, runUpdateOpenAPI(context.Background(), fs, srv.URL+"/openapi.json", "openapi/openapi.json", &report))

		data, err := util.ReadFile(fs, "openapi/openapi.json")
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("{\n  ")))

		doc, err := schema.Parse(data)
		require.NoError(t, err)
		_, ok := doc.Definition("Endpoint")
		assert.True(t, ok)
		assert.Contains(t, report.String(), "Wrote openapi/openapi.json")
	})

	t.Run("rejects document without schemas", func(t *testing.T) {
		fs := memfs.New()
		err := runUpdateOpenAPI(context.Background(), fs, srv.URL+"/broken.json", "openapi.json", &bytes.Buffer{})
		assert.Error(t, err)

		_, statErr := fs.Stat("openapi.json")
		assert.Error(t, statErr)
	})
}

func TestRunRecords_MissingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "neon.db")

	assert.ErrorIs(t, runRecords(dbPath, "roles", &bytes.Buffer{}), os.ErrNotExist)
	assert.ErrorIs(t, runRecordCounts(dbPath, &bytes.Buffer{}), os.ErrNotExist)
	assert.NoFileExists(t, dbPath)
}
