package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Collection names. The set is fixed; operations against any other name
// fail with ErrUnknownCollection.
const (
	CollectionRoutines  = "routines"
	CollectionSequences = "sequences"
	CollectionTemplates = "templates"
	CollectionSchedule  = "schedule"
	CollectionHabits    = "habits"
	CollectionSettings  = "settings"
)

var collections = map[string]bool{
	CollectionRoutines:  true,
	CollectionSequences: true,
	CollectionTemplates: true,
	CollectionSchedule:  true,
	CollectionHabits:    true,
	CollectionSettings:  true,
}

// Store holds named collections of JSON records keyed by string id.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
// Open failures wrap ErrUnavailable so callers can degrade instead of crash.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create db directory: %v", ErrUnavailable, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrUnavailable, err)
	}

	db.SetMaxOpenConns(1)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: exec pragma %q: %v", ErrUnavailable, p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", ErrUnavailable, err)
	}
	if err := s.seedSettings(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: seed settings: %v", ErrUnavailable, err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS records (
		collection  TEXT NOT NULL,
		id          TEXT NOT NULL,
		data        TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);
	`
	_, err := s.db.Exec(ddl)
	return err
}

func checkCollection(collection string) error {
	if !collections[collection] {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	return nil
}

// RawRecord is one serialized record, used by PutBatch to keep input order.
type RawRecord struct {
	ID   string
	Data []byte
}

// Put upserts one record by id.
func (s *Store) Put(collection, id string, data []byte) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO records (collection, id, data) VALUES (?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data`,
		collection, id, string(data),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

// PutBatch upserts all records in a single transaction. Either every record
// is durably written or none are.
func (s *Store) PutBatch(collection string, records []RawRecord) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO records (collection, id, data) VALUES (?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(collection, r.ID, string(r.Data)); err != nil {
			tx.Rollback()
			return fmt.Errorf("put batch %s/%s: %w", collection, r.ID, err)
		}
	}
	return tx.Commit()
}

// Get returns the raw record, or found=false when the id does not exist.
// A missing id is not an error.
func (s *Store) Get(collection, id string) ([]byte, bool, error) {
	if err := checkCollection(collection); err != nil {
		return nil, false, err
	}
	var data string
	err := s.db.QueryRow(
		`SELECT data FROM records WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return []byte(data), true, nil
}

// GetAll returns every record in the collection in storage order.
func (s *Store) GetAll(collection string) ([][]byte, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT data FROM records WHERE collection = ? ORDER BY rowid`, collection,
	)
	if err != nil {
		return nil, fmt.Errorf("get all %s: %w", collection, err)
	}
	defer rows.Close()

	var all [][]byte
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		all = append(all, []byte(data))
	}
	return all, rows.Err()
}

// Delete removes one record. Deleting a missing id reports deleted=false
// rather than an error; managers decide whether that is a NotFound.
func (s *Store) Delete(collection, id string) (bool, error) {
	if err := checkCollection(collection); err != nil {
		return false, err
	}
	res, err := s.db.Exec(
		`DELETE FROM records WHERE collection = ? AND id = ?`, collection, id,
	)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Clear removes every record in the collection.
func (s *Store) Clear(collection string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM records WHERE collection = ?`, collection)
	if err != nil {
		return fmt.Errorf("clear %s: %w", collection, err)
	}
	return nil
}

// Count returns the number of records in the collection.
func (s *Store) Count(collection string) (int, error) {
	if err := checkCollection(collection); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM records WHERE collection = ?`, collection,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// --- typed helpers shared by the managers ---

func marshalRecord(collection, id string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}
	return data, nil
}

func putRecord(s *Store, collection, id string, v any) error {
	data, err := marshalRecord(collection, id, v)
	if err != nil {
		return err
	}
	return s.Put(collection, id, data)
}

func getRecord[T any](s *Store, collection, id string) (*T, bool, error) {
	data, found, err := s.Get(collection, id)
	if err != nil || !found {
		return nil, found, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return &v, true, nil
}

func getAllRecords[T any](s *Store, collection string) ([]T, error) {
	raw, err := s.GetAll(collection)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, data := range raw {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", collection, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// DefaultDBPath returns ~/.config/dayloop/dayloop.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "dayloop", "dayloop.db"), nil
}
