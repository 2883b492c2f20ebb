// Package schema loads the provider's OpenAPI document and derives the
// normalized JSON schemas of the extracted streams.
package schema

// Schema is a JSON schema object as decoded from the API document.
type Schema map[string]any

// Clone returns a deep copy sharing no maps or slices with s.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	return Schema(copyValue(map[string]any(s)).(map[string]any))
}

// Types returns the type names declared by the schema's "type" keyword.
func (s Schema) Types() []string {
	return typeNames(s["type"])
}

// HasType reports whether the schema's type includes name.
func (s Schema) HasType(name string) bool {
	return hasType(s["type"], name)
}

// Property returns the named property schema, or nil.
func (s Schema) Property(name string) Schema {
	props, _ := s["properties"].(map[string]any)
	prop, _ := props[name].(map[string]any)
	return prop
}

// Required returns the set of required property names.
func (s Schema) Required() map[string]bool {
	set := make(map[string]bool)
	switch v := s["required"].(type) {
	case []any:
		for _, r := range v {
			if name, ok := r.(string); ok {
				set[name] = true
			}
		}
	case []string:
		for _, name := range v {
			set[name] = true
		}
	}
	return set
}

// dig walks nested property maps by key and returns the map found at the end.
func (s Schema) dig(keys ...string) map[string]any {
	cur := map[string]any(s)
	for _, k := range keys {
		next, ok := cur[k].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = copyValue(val)
		}
		return out
	case Schema:
		return copyValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = copyValue(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	default:
		return v
	}
}

func typeNames(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		names := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				names = append(names, s)
			}
		}
		return names
	default:
		return nil
	}
}

func hasType(v any, name string) bool {
	for _, t := range typeNames(v) {
		if t == name {
			return true
		}
	}
	return false
}
