package sink

import (
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/tap-neon/api"
)

// MemoryStore keeps a run in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	schemas map[string]api.CatalogEntry
	records []api.Record

	// stream name → positions in records
	byStream map[string]*roaring.Bitmap
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schemas:  make(map[string]api.CatalogEntry),
		byStream: make(map[string]*roaring.Bitmap),
	}
}

func (m *MemoryStore) WriteSchema(entry api.CatalogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[entry.Name] = entry
	if _, ok := m.byStream[entry.Name]; !ok {
		m.byStream[entry.Name] = roaring.New()
	}
	return nil
}

func (m *MemoryStore) WriteRecord(rec api.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos := uint32(len(m.records))
	m.records = append(m.records, rec)

	bm, ok := m.byStream[rec.Stream]
	if !ok {
		bm = roaring.New()
		m.byStream[rec.Stream] = bm
	}
	bm.Add(pos)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Schema returns the schema written for a stream.
func (m *MemoryStore) Schema(stream string) (api.CatalogEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.schemas[stream]
	return e, ok
}

// Records returns the records of a stream in write order.
func (m *MemoryStore) Records(stream string) []api.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bm, ok := m.byStream[stream]
	if !ok {
		return nil
	}
	out := make([]api.Record, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, m.records[it.Next()])
	}
	return out
}

// Count returns the number of records of a stream.
func (m *MemoryStore) Count(stream string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if bm, ok := m.byStream[stream]; ok {
		return int(bm.GetCardinality())
	}
	return 0
}

// Len returns the total number of records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Streams returns the names of the streams with a schema or records, sorted.
func (m *MemoryStore) Streams() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.byStream))
	for name := range m.byStream {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
