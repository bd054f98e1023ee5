package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/coldreach/leadctl/internal/leads"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database used as a local cache: lead snapshots
// per view, the invite audit log, and the last dashboard stats.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "leadctl.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Lead Snapshots ---

// SaveLeadSnapshot stores the most recent server payload for a view,
// replacing the previous snapshot. Satisfies leads.Snapshotter.
func (s *Store) SaveLeadSnapshot(view string, list []leads.Lead) error {
	payload, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO lead_snapshots (view, payload, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(view) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		view, string(payload), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// LeadSnapshot returns the cached leads for a view plus the time the
// snapshot was taken.
func (s *Store) LeadSnapshot(view string) ([]leads.Lead, time.Time, error) {
	var payload, fetchedAt string
	err := s.db.QueryRow("SELECT payload, fetched_at FROM lead_snapshots WHERE view = ?", view).Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	var list []leads.Lead
	if err := json.Unmarshal([]byte(payload), &list); err != nil {
		return nil, time.Time{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	t, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parsing fetched_at: %w", err)
	}
	return list, t, nil
}

// --- Invite Audit Log ---

// RecordInvite appends one attempt to the audit log and returns the
// generated row id.
func (s *Store) RecordInvite(inv Invite) (string, error) {
	id := inv.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := inv.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO invites (id, lead_id, lead_name, message, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, inv.LeadID, inv.LeadName, inv.Message, inv.Status,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// RecentInvites returns the newest audit rows first.
func (s *Store) RecentInvites(limit int) ([]Invite, error) {
	rows, err := s.db.Query(`
		SELECT id, lead_id, lead_name, message, status, created_at
		FROM invites ORDER BY created_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Invite
	for rows.Next() {
		var inv Invite
		var createdAt string
		if err := rows.Scan(&inv.ID, &inv.LeadID, &inv.LeadName, &inv.Message, &inv.Status, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		inv.CreatedAt = t
		results = append(results, inv)
	}
	return results, rows.Err()
}

// --- Stats Cache ---

// SaveStats stores the latest dashboard stats payload, replacing the
// previous one. The payload is opaque JSON owned by the caller.
func (s *Store) SaveStats(payload json.RawMessage) error {
	_, err := s.db.Exec(`
		INSERT INTO stats_cache (id, payload, fetched_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		string(payload), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// LastStats returns the cached stats payload and when it was fetched.
func (s *Store) LastStats() (json.RawMessage, time.Time, error) {
	var payload, fetchedAt string
	err := s.db.QueryRow("SELECT payload, fetched_at FROM stats_cache WHERE id = 1").Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parsing fetched_at: %w", err)
	}
	return json.RawMessage(payload), t, nil
}
