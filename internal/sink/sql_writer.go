package sink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agentic-research/tap-neon/api"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect names a database/sql driver the SQL writer knows how to speak to.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "pgx"
)

const defaultBatchSize = 1000

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at BIGINT NOT NULL,
		finished_at BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS streams (
		name TEXT PRIMARY KEY,
		key_properties TEXT NOT NULL,
		schema TEXT NOT NULL,
		run_id TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS records (
		stream TEXT NOT NULL,
		record_key TEXT NOT NULL,
		project_id TEXT,
		branch_id TEXT,
		run_id TEXT NOT NULL,
		extracted_at BIGINT NOT NULL,
		record TEXT NOT NULL,
		PRIMARY KEY (stream, record_key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_records_project ON records(project_id)`,
}

const upsertStream = `
	INSERT INTO streams (name, key_properties, schema, run_id)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (name) DO UPDATE SET
		key_properties = excluded.key_properties,
		schema = excluded.schema,
		run_id = excluded.run_id`

const upsertRecord = `
	INSERT INTO records (stream, record_key, project_id, branch_id, run_id, extracted_at, record)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (stream, record_key) DO UPDATE SET
		project_id = excluded.project_id,
		branch_id = excluded.branch_id,
		run_id = excluded.run_id,
		extracted_at = excluded.extracted_at,
		record = excluded.record`

// SQLWriter upserts records into a SQLite or Postgres database, keyed by
// stream and record key, so repeated runs replace rather than duplicate.
type SQLWriter struct {
	db        *sql.DB
	dialect   Dialect
	runID     string
	tx        *sql.Tx
	stmtRec   *sql.Stmt
	keys      map[string][]string
	batchSize int
	count     int
	mu        sync.Mutex
}

// NewSQLWriter opens the database, creates the tables and registers a new run.
func NewSQLWriter(dialect Dialect, dsn string) (*SQLWriter, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		for _, pragma := range []string{"PRAGMA synchronous = OFF", "PRAGMA journal_mode = MEMORY"} {
			if _, err := db.Exec(pragma); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
	}

	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	w := &SQLWriter{
		db:        db,
		dialect:   dialect,
		runID:     uuid.NewString(),
		keys:      make(map[string][]string),
		batchSize: defaultBatchSize,
	}

	if _, err := db.Exec(w.rebind(`INSERT INTO runs (id, started_at) VALUES (?, ?)`), w.runID, time.Now().UnixNano()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}

	if err := w.beginTx(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

// RunID identifies this writer's run in the runs table.
func (w *SQLWriter) RunID() string {
	return w.runID
}

// rebind rewrites ? placeholders to $n for Postgres.
func (w *SQLWriter) rebind(query string) string {
	if w.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// beginTx opens the batch transaction unless one is already open.
// w.tx and w.stmtRec are either both set or both nil.
func (w *SQLWriter) beginTx() error {
	if w.tx != nil {
		return nil
	}
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.Prepare(w.rebind(upsertRecord))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare upsert: %w", err)
	}
	w.tx, w.stmtRec = tx, stmt
	return nil
}

// commitTx commits the open batch, if any.
func (w *SQLWriter) commitTx() error {
	if w.tx == nil {
		return nil
	}
	_ = w.stmtRec.Close()
	err := w.tx.Commit()
	w.tx, w.stmtRec = nil, nil
	w.count = 0
	return err
}

func (w *SQLWriter) WriteSchema(entry api.CatalogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	keys, err := json.Marshal(entry.PrimaryKeys)
	if err != nil {
		return err
	}
	schema, err := json.Marshal(entry.Schema)
	if err != nil {
		return fmt.Errorf("encode schema %s: %w", entry.Name, err)
	}
	if err := w.beginTx(); err != nil {
		return err
	}
	if _, err := w.tx.Exec(w.rebind(upsertStream), entry.Name, string(keys), string(schema), w.runID); err != nil {
		return fmt.Errorf("upsert stream %s: %w", entry.Name, err)
	}
	w.keys[entry.Name] = entry.PrimaryKeys
	return nil
}

func (w *SQLWriter) WriteRecord(rec api.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	keys, ok := w.keys[rec.Stream]
	if !ok {
		return fmt.Errorf("record for stream %s before its schema", rec.Stream)
	}
	key := RecordKey(rec, keys)

	raw, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("encode %s record %s: %w", rec.Stream, key, err)
	}
	if err := w.beginTx(); err != nil {
		return err
	}

	_, err = w.stmtRec.Exec(
		rec.Stream,
		key,
		nullable(rec.Context.ProjectID),
		nullable(rec.Context.BranchID),
		w.runID,
		rec.ExtractedAt.UnixNano(),
		string(raw),
	)
	if err != nil {
		return fmt.Errorf("upsert %s record %s: %w", rec.Stream, key, err)
	}

	w.count++
	if w.count >= w.batchSize {
		if err := w.commitTx(); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}
	return nil
}

// Close commits the pending batch, marks the run finished and closes the database.
func (w *SQLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.commitTx(); err != nil {
		_ = w.db.Close()
		return err
	}
	if _, err := w.db.Exec(w.rebind(`UPDATE runs SET finished_at = ? WHERE id = ?`), time.Now().UnixNano(), w.runID); err != nil {
		log.Printf("SQLWriter: finishing run %s failed: %v", w.runID, err)
	}
	return w.db.Close()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ Target = (*SQLWriter)(nil)
