// Package streams declares the Neon resource streams, how parent records
// bind the path variables of their children, and stream discovery.
package streams

import "github.com/agentic-research/tap-neon/api"

// Stream names.
const (
	Projects   = "projects"
	Operations = "operations"
	Branches   = "branches"
	Databases  = "databases"
	Roles      = "roles"
	Endpoints  = "endpoints"
	Snapshots  = "snapshots"
)

// DefaultCursorPath selects the cursor of most list responses.
const DefaultCursorPath = "$.next_page"

// Definitions is the descriptor table of every stream the connector extracts.
var Definitions = []api.Stream{
	{
		Name:        Projects,
		Path:        "/projects",
		PrimaryKeys: []string{"id"},
		SchemaRef:   "ProjectListItem",
		RecordsPath: "$.projects[*]",
		CursorPath:  DefaultCursorPath,
	},
	{
		Name:        Operations,
		Path:        "/projects/{project_id}/operations",
		PrimaryKeys: []string{"id"},
		SchemaRef:   "Operation",
		RecordsPath: "$.operations[*]",
		CursorPath:  "$.pagination.cursor",
		HasMorePath: "$.pagination.has_more",
		Parent:      Projects,
	},
	{
		Name:        Branches,
		Path:        "/projects/{project_id}/branches",
		PrimaryKeys: []string{"id"},
		SchemaRef:   "Branch",
		RecordsPath: "$.branches[*]",
		CursorPath:  DefaultCursorPath,
		Parent:      Projects,
	},
	{
		Name:        Databases,
		Path:        "/projects/{project_id}/branches/{branch_id}/databases",
		PrimaryKeys: []string{"id"},
		SchemaRef:   "Database",
		RecordsPath: "$.databases[*]",
		CursorPath:  DefaultCursorPath,
		Parent:      Branches,
	},
	{
		Name:        Roles,
		Path:        "/projects/{project_id}/branches/{branch_id}/roles",
		PrimaryKeys: []string{"name"},
		SchemaRef:   "Role",
		RecordsPath: "$.roles[*]",
		CursorPath:  DefaultCursorPath,
		Parent:      Branches,
	},
	{
		Name:        Endpoints,
		Path:        "/projects/{project_id}/endpoints",
		PrimaryKeys: []string{"id"},
		SchemaRef:   "Endpoint",
		RecordsPath: "$.endpoints[*]",
		CursorPath:  DefaultCursorPath,
		Parent:      Projects,
	},
	{
		Name:        Snapshots,
		Path:        "/projects/{project_id}/snapshots",
		PrimaryKeys: []string{"id"},
		SchemaRef:   "Snapshot",
		RecordsPath: "$.snapshots[*]",
		CursorPath:  DefaultCursorPath,
		Parent:      Projects,
	},
}

// Names returns the stream names in declaration order.
func Names() []string {
	names := make([]string, len(Definitions))
	for i, d := range Definitions {
		names[i] = d.Name
	}
	return names
}
