package schema

// PoolerModeReadOnly is accepted by the API for read-only endpoints but is
// missing from the published EndpointPoolerMode enum.
const PoolerModeReadOnly = "READ_ONLY"

// ApplyFixups returns a copy of a normalized schema with the corrections the
// published document needs for the named definition.
func ApplyFixups(name string, s Schema) Schema {
	out := s.Clone()
	switch name {
	case "ProjectListItem":
		// Projects on the free plan report 0 CU limits.
		for _, field := range []string{"autoscaling_limit_min_cu", "autoscaling_limit_max_cu"} {
			if prop := out.dig("properties", "default_endpoint_settings", "properties", field); prop != nil {
				prop["minimum"] = 0
			}
		}
	case "Endpoint":
		if prop := out.dig("properties", "pooler_mode"); prop != nil {
			appendEnum(prop, PoolerModeReadOnly)
		}
	}
	return out
}

func appendEnum(prop map[string]any, value string) {
	enum, ok := prop["enum"].([]any)
	if !ok {
		return
	}
	for _, v := range enum {
		if v == value {
			return
		}
	}
	prop["enum"] = append(enum, value)
}
