package sink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// StreamSQLite iterates over one stream's records in a SQLite database
// written by SQLWriter, in record key order. Only one parsed record is
// alive at a time.
func StreamSQLite(dbPath, stream string, fn func(key string, record map[string]any) error) error {
	db, err := openExisting(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.Query("SELECT record_key, record FROM records WHERE stream = ? ORDER BY record_key", stream)
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return fmt.Errorf("parse record json: %w", err)
		}
		if err := fn(key, parsed); err != nil {
			return err
		}
	}
	return rows.Err()
}

// StreamCounts returns the number of stored records per stream.
func StreamCounts(dbPath string) (map[string]int, error) {
	db, err := openExisting(dbPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.Query("SELECT stream, COUNT(*) FROM records GROUP BY stream")
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[name] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return counts, nil
}

// openExisting opens a SQLite database without creating it when absent.
func openExisting(dbPath string) (*sql.DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	return db, nil
}
