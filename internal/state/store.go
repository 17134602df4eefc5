// Package state persists reconciliation history in an embedded SQLite
// database: one fingerprinted snapshot per applied migration, plus the
// button-field metadata that has no physical column to live in. The store
// is local bookkeeping only; the live database catalog remains the source
// of truth for schema state.
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tablekit/tablekit/pkg/types"
)

const (
	createSnapshots = `CREATE TABLE IF NOT EXISTS snapshots (
    snapshot_id TEXT PRIMARY KEY,
    table_name TEXT NOT NULL,
    version INTEGER NOT NULL,
    fingerprint TEXT NOT NULL,
    state TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createButtons = `CREATE TABLE IF NOT EXISTS buttons (
    table_name TEXT NOT NULL,
    field_name TEXT NOT NULL,
    action TEXT NOT NULL,
    visible_when TEXT NOT NULL,
    PRIMARY KEY (table_name, field_name)
);`

	idxSnapshotsTable   = `CREATE INDEX IF NOT EXISTS idx_snapshots_table ON snapshots(table_name, version);`
	idxSnapshotsCreated = `CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);`
)

var schemaDDL = []string{
	createSnapshots,
	createButtons,
	idxSnapshotsTable,
	idxSnapshotsCreated,
}

// Snapshot is one recorded post-migration state of a table.
type Snapshot struct {
	ID          string
	Table       string
	Version     int
	Fingerprint uint64
	State       types.TableState
	CreatedAt   time.Time
}

// Button is the stored metadata of a button field. Buttons are virtual:
// they exist only here, never in the relational schema.
type Button struct {
	Table       string
	Field       string
	Action      string
	VisibleWhen string
}

// Store is the SQLite-backed snapshot store. The zero value is not usable;
// create one with NewStore and call Attach before use.
type Store struct {
	mu       sync.RWMutex
	attached bool
	db       *sql.DB
}

// NewStore creates a detached store; call Attach with a Config to open it.
func NewStore() *Store {
	return &Store{}
}

// Attach opens (or creates) the store database under cfg.StateDir.
// Returns ErrStoreAttached if already attached. Unlike a cache, the store
// file is durable across attachments: history survives restarts.
func (s *Store) Attach(cfg types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrStoreAttached
	}

	// Only StateDir matters here; the store works without a database
	// connection so the DSN is not checked.
	dir := cfg.StateDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "tablekit.db"))
	if err != nil {
		return err
	}
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("initializing store schema: %w", err)
		}
	}

	s.db = db
	s.attached = true
	return nil
}

// Detach closes the store. Idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return err
		}
		s.db = nil
	}
	s.attached = false
	return nil
}

// Record stores state as the next snapshot version for its table and
// returns that version. Versions start at 1.
func (s *Store) Record(state types.TableState) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return 0, types.ErrStoreDetached
	}

	var version int
	row := s.db.QueryRow(
		`SELECT COALESCE(MAX(version), 0) FROM snapshots WHERE table_name = ?`, state.Name)
	if err := row.Scan(&version); err != nil {
		return 0, err
	}
	version++

	payload, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("encoding snapshot of %s: %w", state.Name, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO snapshots (snapshot_id, table_name, version, fingerprint, state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		newID(), state.Name, version,
		// SQLite integers are signed; fingerprints are stored as hex text.
		strconv.FormatUint(state.Fingerprint(), 16),
		string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return version, nil
}

// Latest returns the most recent snapshot of the named table, or
// ErrNoSnapshot if none has been recorded.
func (s *Store) Latest(table string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return Snapshot{}, types.ErrStoreDetached
	}

	row := s.db.QueryRow(
		`SELECT snapshot_id, table_name, version, fingerprint, state, created_at
		 FROM snapshots WHERE table_name = ?
		 ORDER BY version DESC LIMIT 1`, table)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return Snapshot{}, fmt.Errorf("%w: %s", types.ErrNoSnapshot, table)
	}
	return snap, err
}

// History returns snapshots of the named table, newest first. A limit of
// zero or less returns the full history.
func (s *Store) History(table string, limit int) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, types.ErrStoreDetached
	}
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	rows, err := s.db.Query(
		`SELECT snapshot_id, table_name, version, fingerprint, state, created_at
		 FROM snapshots WHERE table_name = ?
		 ORDER BY version DESC LIMIT ?`, table, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// PutButtons replaces the stored button metadata for a table with the
// button fields of t.
func (s *Store) PutButtons(t types.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return types.ErrStoreDetached
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM buttons WHERE table_name = ?`, t.Name); err != nil {
		return err
	}
	for _, f := range t.Fields {
		opts, ok := f.Options.(types.ButtonOptions)
		if !ok {
			continue
		}
		_, err := tx.Exec(
			`INSERT INTO buttons (table_name, field_name, action, visible_when)
			 VALUES (?, ?, ?, ?)`,
			t.Name, f.Name, opts.Action, opts.VisibleWhen)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Buttons returns the stored button metadata of a table in field-name order.
func (s *Store) Buttons(table string) ([]Button, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := s.db.Query(
		`SELECT table_name, field_name, action, visible_when
		 FROM buttons WHERE table_name = ?
		 ORDER BY field_name`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buttons []Button
	for rows.Next() {
		var b Button
		if err := rows.Scan(&b.Table, &b.Field, &b.Action, &b.VisibleWhen); err != nil {
			return nil, err
		}
		buttons = append(buttons, b)
	}
	return buttons, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var snap Snapshot
	var fingerprint, payload, createdAt string
	err := row.Scan(&snap.ID, &snap.Table, &snap.Version, &fingerprint, &payload, &createdAt)
	if err != nil {
		return Snapshot{}, err
	}
	if snap.Fingerprint, err = strconv.ParseUint(fingerprint, 16, 64); err != nil {
		return Snapshot{}, fmt.Errorf("decoding fingerprint of %s v%d: %w", snap.Table, snap.Version, err)
	}
	if err := json.Unmarshal([]byte(payload), &snap.State); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot of %s v%d: %w", snap.Table, snap.Version, err)
	}
	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Snapshot{}, fmt.Errorf("decoding timestamp of %s v%d: %w", snap.Table, snap.Version, err)
	}
	return snap, nil
}

// newID generates a UUID v7 so snapshot IDs sort by creation time.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
