package streams

import (
	"errors"
	"fmt"

	"github.com/agentic-research/tap-neon/api"
)

// ErrDataShape marks a record that lacks a field its child streams need.
var ErrDataShape = errors.New("unexpected record shape")

// DataShapeError reports the stream and field of a malformed parent record.
type DataShapeError struct {
	Stream string
	Field  string
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("%s record: missing or non-string field %q", e.Stream, e.Field)
}

func (e *DataShapeError) Unwrap() error {
	return ErrDataShape
}

// DeriveChildContext returns the context a record of the given stream passes
// to its child streams. The boolean is false for leaf streams.
func DeriveChildContext(stream string, record map[string]any) (api.Context, bool, error) {
	switch stream {
	case Projects:
		id, err := field(stream, record, "id")
		if err != nil {
			return api.Context{}, true, err
		}
		return api.Context{ProjectID: id}, true, nil
	case Branches:
		// Branches embed their project id, so it is taken from the record
		// rather than inherited from the project.
		projectID, err := field(stream, record, "project_id")
		if err != nil {
			return api.Context{}, true, err
		}
		id, err := field(stream, record, "id")
		if err != nil {
			return api.Context{}, true, err
		}
		return api.Context{ProjectID: projectID, BranchID: id}, true, nil
	default:
		return api.Context{}, false, nil
	}
}

func field(stream string, record map[string]any, name string) (string, error) {
	v, ok := record[name].(string)
	if !ok || v == "" {
		return "", &DataShapeError{Stream: stream, Field: name}
	}
	return v, nil
}
