package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/agentic-research/tap-neon/api"
)

type schemaMessage struct {
	Type          string         `json:"type"`
	Stream        string         `json:"stream"`
	Schema        map[string]any `json:"schema"`
	KeyProperties []string       `json:"key_properties"`
}

type recordMessage struct {
	Type          string         `json:"type"`
	Stream        string         `json:"stream"`
	Record        map[string]any `json:"record"`
	TimeExtracted string         `json:"time_extracted"`
}

// SingerWriter writes Singer SCHEMA and RECORD messages, one JSON object per line.
type SingerWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewSingerWriter(w io.Writer) *SingerWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &SingerWriter{enc: enc}
}

func (s *SingerWriter) WriteSchema(entry api.CatalogEntry) error {
	keys := entry.PrimaryKeys
	if keys == nil {
		keys = []string{}
	}
	return s.write(schemaMessage{
		Type:          "SCHEMA",
		Stream:        entry.Name,
		Schema:        entry.Schema,
		KeyProperties: keys,
	})
}

func (s *SingerWriter) WriteRecord(rec api.Record) error {
	return s.write(recordMessage{
		Type:          "RECORD",
		Stream:        rec.Stream,
		Record:        rec.Data,
		TimeExtracted: rec.ExtractedAt.UTC().Format(time.RFC3339Nano),
	})
}

func (s *SingerWriter) write(msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(msg); err != nil {
		return fmt.Errorf("encode singer message: %w", err)
	}
	return nil
}

// Close is a no-op; the underlying writer is owned by the caller.
func (s *SingerWriter) Close() error {
	return nil
}
