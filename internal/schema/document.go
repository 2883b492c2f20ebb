package schema

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/ohler55/ojg/oj"
)

const (
	// OpenAPIURL is where the provider publishes its API description.
	OpenAPIURL = "https://dfv3qgd2ykmrx.cloudfront.net/api_spec/release/v2.json"
	// BundledPath is the location of the bundled copy inside the repository.
	BundledPath = "internal/schema/openapi/openapi.json"

	refPrefix    = "#/components/schemas/"
	fetchTimeout = 5 * time.Second
)

// Source names accepted by Load besides file paths and URLs.
const (
	SourceBundled = "bundled"
	SourceLive    = "live"
)

//go:embed openapi/openapi.json
var bundled []byte

// Document is the immutable components.schemas section of an OpenAPI document.
type Document struct {
	schemas map[string]any
}

// Parse decodes an OpenAPI document.
func Parse(data []byte) (*Document, error) {
	v, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	root, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("openapi document is not an object")
	}
	components, _ := root["components"].(map[string]any)
	schemas, ok := components["schemas"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("openapi document has no components.schemas")
	}
	return &Document{schemas: schemas}, nil
}

// BundledBytes returns the API document compiled into the binary.
func BundledBytes() []byte {
	return bundled
}

// Bundled parses the API document compiled into the binary.
func Bundled() (*Document, error) {
	return Parse(bundled)
}

// LoadFile reads and parses an API document from fs.
func LoadFile(fs billy.Filesystem, path string) (*Document, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open openapi document: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read openapi document %s: %w", path, err)
	}
	return Parse(data)
}

// FetchBytes downloads an API document without parsing it.
func FetchBytes(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode)
	}
	return body, nil
}

// Fetch downloads and parses an API document.
func Fetch(ctx context.Context, url string) (*Document, error) {
	data, err := FetchBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Load resolves a schema source: "bundled" (or empty), "live", an http(s) URL,
// or a path on fs.
func Load(ctx context.Context, source string, fs billy.Filesystem) (*Document, error) {
	switch {
	case source == "" || source == SourceBundled:
		return Bundled()
	case source == SourceLive:
		return Fetch(ctx, OpenAPIURL)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return Fetch(ctx, source)
	default:
		return LoadFile(fs, source)
	}
}

// Names returns the sorted definition names.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.schemas))
	for name := range d.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns a copy of a definition without resolving its references.
func (d *Document) Definition(name string) (Schema, bool) {
	def, ok := d.schemas[name].(map[string]any)
	if !ok {
		return nil, false
	}
	return Schema(def).Clone(), true
}

// Resolve returns the named definition with every reference expanded.
func (d *Document) Resolve(name string) (Schema, error) {
	return d.ResolveSchema(Schema{"$ref": refPrefix + name})
}

// ResolveSchema expands every "$ref" in s against the document's definitions.
// Keywords next to a "$ref" override those of the referenced schema.
// A reference back into a definition being expanded is replaced by an empty
// schema.
func (d *Document) ResolveSchema(s Schema) (Schema, error) {
	out, err := d.expand(map[string]any(s), make(map[string]bool))
	if err != nil {
		return nil, err
	}
	return Schema(out.(map[string]any)), nil
}

func (d *Document) expand(v any, stack map[string]bool) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if ref, ok := t["$ref"].(string); ok {
			return d.expandRef(ref, t, stack)
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			x, err := d.expand(val, stack)
			if err != nil {
				return nil, err
			}
			out[k] = x
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			x, err := d.expand(val, stack)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	default:
		return v, nil
	}
}

func (d *Document) expandRef(ref string, node map[string]any, stack map[string]bool) (any, error) {
	name, ok := strings.CutPrefix(ref, refPrefix)
	if !ok {
		return nil, fmt.Errorf("unsupported reference %q", ref)
	}
	if stack[name] {
		return map[string]any{}, nil
	}
	def, ok := d.schemas[name].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
	}

	stack[name] = true
	resolved, err := d.expand(def, stack)
	delete(stack, name)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", name, err)
	}

	out := resolved.(map[string]any)
	for k, val := range node {
		if k == "$ref" {
			continue
		}
		x, err := d.expand(val, stack)
		if err != nil {
			return nil, err
		}
		out[k] = x
	}
	return out, nil
}
