package api

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrMissingPathVariable is returned when a template variable has no bound value.
	ErrMissingPathVariable = errors.New("missing path variable")
	// ErrUnknownPathVariable is returned for a template variable Context does not define.
	ErrUnknownPathVariable = errors.New("unknown path variable")
	// ErrUnusedPathVariable is returned when a bound variable is absent from the template.
	ErrUnusedPathVariable = errors.New("unused path variable")
)

// Context holds the path variables a parent record passes to its child streams.
type Context struct {
	ProjectID string `json:"project_id,omitempty"`
	BranchID  string `json:"branch_id,omitempty"`
}

// Lookup returns the value bound to a path variable.
// The boolean is false for names that are not path variables at all.
func (c Context) Lookup(name string) (string, bool) {
	switch name {
	case "project_id":
		return c.ProjectID, true
	case "branch_id":
		return c.BranchID, true
	default:
		return "", false
	}
}

// IsZero reports whether no variable is bound.
func (c Context) IsZero() bool {
	return c == Context{}
}

// Bound returns the names of the bound variables.
func (c Context) Bound() []string {
	var names []string
	if c.ProjectID != "" {
		names = append(names, "project_id")
	}
	if c.BranchID != "" {
		names = append(names, "branch_id")
	}
	return names
}

// Expand substitutes the {name} variables of a path template.
// The context must bind exactly the variables the template references.
func (c Context) Expand(tmpl string) (string, error) {
	var b strings.Builder
	used := make(map[string]bool)

	rest := tmpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("path %q: unterminated variable", tmpl)
		}
		name := rest[open+1 : open+end]
		value, ok := c.Lookup(name)
		if !ok {
			return "", fmt.Errorf("path %q: %w %q", tmpl, ErrUnknownPathVariable, name)
		}
		if value == "" {
			return "", fmt.Errorf("path %q: %w %q", tmpl, ErrMissingPathVariable, name)
		}
		used[name] = true
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(value))
		rest = rest[open+end+1:]
	}

	for _, name := range c.Bound() {
		if !used[name] {
			return "", fmt.Errorf("path %q: %w %q", tmpl, ErrUnusedPathVariable, name)
		}
	}
	return b.String(), nil
}
