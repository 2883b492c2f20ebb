package schema

import "fmt"

// Normalize returns a copy of an object schema in which every property not
// listed in "required" also accepts null. Object-typed properties are
// normalized recursively against their own "required" list.
//
// Properties that already accept null are left as they are, so normalizing a
// normalized schema is a no-op. Properties without a "type" keyword accept any
// value and are not rewritten.
func Normalize(s Schema) (Schema, error) {
	if !s.HasType("object") {
		return nil, fmt.Errorf("%w (got %v)", ErrInvalidSchemaKind, s["type"])
	}
	out := s.Clone()
	normalizeProperties(out)
	return out, nil
}

// normalizeProperties rewrites an already-copied object schema in place.
func normalizeProperties(s Schema) {
	required := s.Required()
	props, _ := s["properties"].(map[string]any)

	for name, raw := range props {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		t, declared := prop["type"]
		if declared && !required[name] && !hasType(t, "null") {
			prop["type"] = withNull(t)
		}
		if hasType(prop["type"], "object") {
			normalizeProperties(prop)
		}
	}
}

func withNull(t any) []any {
	names := typeNames(t)
	out := make([]any, 0, len(names)+1)
	for _, n := range names {
		out = append(out, n)
	}
	return append(out, "null")
}
