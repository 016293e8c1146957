package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SnapshotStore persists serialized store trees between invocations. The
// host calls Save after each tick and LoadLatest on cold start; the kernel
// itself never touches it.
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore opens (or creates) the sqlite database at dbPath.
// WAL mode and a single writer keep the serialized invocation loop from
// ever hitting SQLITE_BUSY.
func NewSnapshotStore(dbPath string) (*SnapshotStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &SnapshotStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SnapshotStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS store_snapshots (
			tick     INTEGER PRIMARY KEY,
			data     TEXT NOT NULL,
			saved_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	return err
}

// Save upserts the serialized tree for a tick.
func (s *SnapshotStore) Save(tick uint64, tree *Tree) error {
	data, err := tree.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize store tree: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO store_snapshots (tick, data) VALUES (?, ?)
		ON CONFLICT(tick) DO UPDATE SET data = excluded.data, saved_at = CURRENT_TIMESTAMP`,
		int64(tick), string(data))
	if err != nil {
		return fmt.Errorf("failed to save snapshot for tick %d: %w", tick, err)
	}
	return nil
}

// LoadLatest returns the most recently saved tree and its tick. A fresh
// database yields an empty tree at tick 0.
func (s *SnapshotStore) LoadLatest() (*Tree, uint64, error) {
	var (
		tick int64
		data string
	)
	err := s.db.QueryRow(
		`SELECT tick, data FROM store_snapshots ORDER BY tick DESC LIMIT 1`,
	).Scan(&tick, &data)
	if err == sql.ErrNoRows {
		return NewTree(), 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	tree, err := Load([]byte(data))
	if err != nil {
		return nil, 0, err
	}
	return tree, uint64(tick), nil
}

// Prune deletes snapshots older than keep ticks behind the newest one.
func (s *SnapshotStore) Prune(keep uint64) error {
	_, err := s.db.Exec(`
		DELETE FROM store_snapshots
		WHERE tick < (SELECT COALESCE(MAX(tick), 0) FROM store_snapshots) - ?`,
		int64(keep))
	return err
}

// Close releases the database handle.
func (s *SnapshotStore) Close() error { return s.db.Close() }
