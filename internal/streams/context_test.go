package streams

import (
	"errors"
	"testing"

	"github.com/agentic-research/tap-neon/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveChildContext(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		record map[string]any
		want   api.Context
		parent bool
	}{
		{
			name:   "project",
			stream: Projects,
			record: map[string]any{"id": "p1", "name": "demo"},
			want:   api.Context{ProjectID: "p1"},
			parent: true,
		},
		{
			name:   "branch",
			stream: Branches,
			record: map[string]any{"id": "b1", "project_id": "p1"},
			want:   api.Context{ProjectID: "p1", BranchID: "b1"},
			parent: true,
		},
		{
			name:   "leaf",
			stream: Databases,
			record: map[string]any{"id": int64(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, parent, err := DeriveChildContext(tt.stream, tt.record)
			require.NoError(t, err)
			assert.Equal(t, tt.parent, parent)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveChildContext_DataShape(t *testing.T) {
	tests := []struct {
		stream string
		record map[string]any
		field  string
	}{
		{Projects, map[string]any{"name": "demo"}, "id"},
		{Projects, map[string]any{"id": 42}, "id"},
		{Branches, map[string]any{"id": "b1"}, "project_id"},
		{Branches, map[string]any{"project_id": "p1"}, "id"},
	}

	for _, tt := range tests {
		t.Run(tt.stream+"/"+tt.field, func(t *testing.T) {
			_, parent, err := DeriveChildContext(tt.stream, tt.record)
			assert.True(t, parent)
			require.ErrorIs(t, err, ErrDataShape)

			var shapeErr *DataShapeError
			require.True(t, errors.As(err, &shapeErr))
			assert.Equal(t, tt.field, shapeErr.Field)
			assert.Equal(t, tt.stream, shapeErr.Stream)
		})
	}
}

// Every child path must expand with exactly the context its parent derives.
func TestDefinitions_ContextMatchesPaths(t *testing.T) {
	samples := map[string]map[string]any{
		Projects: {"id": "p1"},
		Branches: {"id": "b1", "project_id": "p1"},
	}
	byName := make(map[string]api.Stream)
	for _, d := range Definitions {
		byName[d.Name] = d
	}

	for _, d := range Definitions {
		if d.IsRoot() {
			_, err := api.Context{}.Expand(d.Path)
			assert.NoError(t, err, d.Name)
			continue
		}
		_, ok := byName[d.Parent]
		require.True(t, ok, "parent of %s is declared", d.Name)

		ctx, parent, err := DeriveChildContext(d.Parent, samples[d.Parent])
		require.NoError(t, err)
		require.True(t, parent, "%s derives a child context", d.Parent)

		_, err = ctx.Expand(d.Path)
		assert.NoError(t, err, d.Name)
	}
}
