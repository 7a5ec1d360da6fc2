/*
Package sqlite provides the SQLite-backed document store.

PURPOSE:
  Implements every care store interface over SQLite. The same patterns
  apply to PostgreSQL with minor dialect changes.

KEY TABLES:
  shifts             One row per shift; transport sub-record flattened
                     into t_* columns, present iff has_transport = 1
  transfer_requests  Transfer lifecycle records
  leave_requests     Leave lifecycle records
  notifications      Per-recipient mailbox; (recipient_id, id) keyed,
                     meta kind/ref columns support request resolution

PARTIAL UPDATES:
  PatchShift reads the row, applies the typed patch in Go (reusing
  care.ShiftPatch.Apply, which also enforces waypoint monotonicity), and
  writes the row back under the store's write lock. Single-process
  deployment makes this race-free; a multi-writer deployment would move
  the guard into SQL.

WAL MODE:
  Opened with WAL so readers don't block and crash recovery is sane.

WATCHES:
  SQLite has no change feed; the store broadcasts in-process after each
  committed write (all writes funnel through this store). See watch.go.

USAGE:
  store, err := sqlite.New("./data/agency.db")
  defer store.Close()

SEE ALSO:
  - care/store.go: interface definitions
  - store/memory: in-memory twin for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brightpath/shift-engine/geo"
)

// Store implements care.TxStore over SQLite.
type Store struct {
	db *sql.DB

	// mu serializes writes; SQLite allows one writer at a time anyway.
	mu sync.Mutex

	watch *watchRegistry
}

// New opens (or creates) the database. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, watch: newWatchRegistry()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS shifts (
		id              TEXT PRIMARY KEY,
		staff_id        TEXT NOT NULL,
		client_id       TEXT NOT NULL,
		category        TEXT NOT NULL,
		scheduled_start TEXT NOT NULL,
		scheduled_end   TEXT NOT NULL,
		clock_in        TEXT,
		clock_out       TEXT,
		confirmed       INTEGER NOT NULL DEFAULT 0,
		locked          INTEGER NOT NULL DEFAULT 0,
		report_access   INTEGER NOT NULL DEFAULT 0,
		cancelled       INTEGER NOT NULL DEFAULT 0,
		visit_address   TEXT NOT NULL DEFAULT '',
		has_transport   INTEGER NOT NULL DEFAULT 0,
		t_ride_started  INTEGER NOT NULL DEFAULT 0,
		t_ride_ended    INTEGER NOT NULL DEFAULT 0,
		t_cancelled     INTEGER NOT NULL DEFAULT 0,
		t_distance_km   REAL NOT NULL DEFAULT 0,
		t_last_lat      REAL,
		t_last_lon      REAL,
		t_cur_lat       REAL,
		t_cur_lon       REAL,
		t_pickup_done   INTEGER NOT NULL DEFAULT 0,
		t_visit_done    INTEGER NOT NULL DEFAULT 0,
		t_drop_done     INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_staff ON shifts(staff_id);
	CREATE INDEX IF NOT EXISTS idx_shifts_start ON shifts(scheduled_start);

	CREATE TABLE IF NOT EXISTS transfer_requests (
		id              TEXT PRIMARY KEY,
		shift_id        TEXT NOT NULL,
		from_staff_id   TEXT NOT NULL,
		from_staff_name TEXT NOT NULL,
		to_staff_id     TEXT NOT NULL,
		to_staff_name   TEXT NOT NULL,
		reason          TEXT NOT NULL,
		status          TEXT NOT NULL,
		resolution_note TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL,
		resolved_at     TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_status ON transfer_requests(status, created_at);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id              TEXT PRIMARY KEY,
		requester_id    TEXT NOT NULL,
		requester_name  TEXT NOT NULL,
		leave_type      TEXT NOT NULL,
		reason          TEXT NOT NULL,
		start_date      TEXT NOT NULL,
		end_date        TEXT NOT NULL,
		status          TEXT NOT NULL,
		resolution_note TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL,
		resolved_at     TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_leaves_status ON leave_requests(status, created_at);

	CREATE TABLE IF NOT EXISTS notifications (
		recipient_id TEXT NOT NULL,
		id           TEXT NOT NULL,
		type         TEXT NOT NULL,
		title        TEXT NOT NULL,
		message      TEXT NOT NULL,
		sender_id    TEXT NOT NULL,
		read         INTEGER NOT NULL DEFAULT 0,
		resolution   TEXT NOT NULL DEFAULT '',
		meta_kind    TEXT NOT NULL DEFAULT '',
		meta_ref     TEXT NOT NULL DEFAULT '',
		meta_json    TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL,
		seq          INTEGER NOT NULL,
		PRIMARY KEY (recipient_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_unread
		ON notifications(recipient_id, read, seq DESC);
	CREATE INDEX IF NOT EXISTS idx_notifications_meta
		ON notifications(meta_kind, meta_ref);
	`
	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by *sql.DB and *sql.Tx so row-level helpers serve
// both the direct path and transactional views.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TIME / NULL HELPERS
// =============================================================================

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func fmtTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func posCols(p *geo.Position) (sql.NullFloat64, sql.NullFloat64) {
	if p == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.Lat, Valid: true}, sql.NullFloat64{Float64: p.Lon, Valid: true}
}

func colsPos(lat, lon sql.NullFloat64) *geo.Position {
	if !lat.Valid || !lon.Valid {
		return nil
	}
	return &geo.Position{Lat: lat.Float64, Lon: lon.Float64}
}
