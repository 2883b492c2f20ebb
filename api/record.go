package api

import "time"

// Record is one extracted resource, tagged with the stream it belongs to.
type Record struct {
	Stream      string
	Context     Context
	Data        map[string]any
	ExtractedAt time.Time
}
