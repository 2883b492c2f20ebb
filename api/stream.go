package api

// Stream declares one resource kind of the extraction tree.
// Streams without a Parent are roots; every other stream is requested once
// per record of its parent, with the parent's derived Context.
type Stream struct {
	// Name of the stream. Records are tagged with it.
	Name string `json:"stream"`
	// Path is the request path relative to the API base URL.
	// It may reference Context variables, e.g. "/projects/{project_id}/branches".
	Path string `json:"path"`
	// PrimaryKeys are the record fields identifying a record within its Context.
	PrimaryKeys []string `json:"key_properties"`
	// SchemaRef names the definition under components.schemas in the API document.
	SchemaRef string `json:"schema_ref"`
	// RecordsPath is a JSONPath selecting the records of a response body.
	RecordsPath string `json:"records_path"`
	// CursorPath is a JSONPath selecting the next page cursor of a response body.
	CursorPath string `json:"cursor_path,omitempty"`
	// HasMorePath optionally selects a boolean telling whether more pages exist.
	HasMorePath string `json:"has_more_path,omitempty"`
	// Parent is the name of the stream whose records drive this one.
	Parent string `json:"parent,omitempty"`
}

// IsRoot reports whether the stream is requested without a parent context.
func (s Stream) IsRoot() bool {
	return s.Parent == ""
}

// CatalogEntry is a discovered stream together with its normalized schema.
type CatalogEntry struct {
	Stream
	TapStreamID string         `json:"tap_stream_id"`
	Schema      map[string]any `json:"schema"`
}

// Catalog is the discovery output, ordered by stream name.
type Catalog struct {
	Streams []CatalogEntry `json:"streams"`
}

// Lookup returns the entry with the given stream name.
func (c *Catalog) Lookup(name string) (CatalogEntry, bool) {
	for _, e := range c.Streams {
		if e.Name == name {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// Children returns the entries whose parent is the named stream, in catalog order.
func (c *Catalog) Children(name string) []CatalogEntry {
	var out []CatalogEntry
	for _, e := range c.Streams {
		if e.Parent == name {
			out = append(out, e)
		}
	}
	return out
}
