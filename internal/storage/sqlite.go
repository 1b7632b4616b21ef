package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the memory ledger, agent threads and
// the background job queue.
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
		dsn = filepath.Join(dataDir, "chefmate.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// A single connection serializes writers; appends from concurrent users
	// queue here instead of failing with "database is locked".
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

// DB exposes the underlying handle so the vector store can share it.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate applies embedded SQL migrations that have not been recorded in
// schema_version yet, in ascending file name order.
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

// --- Memories ---

const memoryColumns = `seq, id, user_id, kind, text, turns_json, created_at, vector_id`

// AppendMemory inserts a ledger row and returns it with Seq populated.
// Rows are never updated except for the vector_id back-reference.
func (s *Store) AppendMemory(ctx context.Context, m Memory) (Memory, error) {
	if m.Kind == "" {
		m.Kind = "fact"
	}
	if m.TurnsJSON == "" {
		m.TurnsJSON = "[]"
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (id, user_id, kind, text, turns_json, created_at, vector_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Kind, m.Text, m.TurnsJSON, m.CreatedAt.UTC().Format(time.RFC3339), m.VectorID,
	)
	if err != nil {
		return Memory{}, fmt.Errorf("inserting memory: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return Memory{}, fmt.Errorf("reading memory seq: %w", err)
	}
	m.Seq = seq
	return m, nil
}

// ListMemories returns every ledger row for userID in insertion order.
func (s *Store) ListMemories(ctx context.Context, userID string) ([]Memory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE user_id = ? ORDER BY seq ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}
	return scanMemories(rows)
}

// GetMemory returns a single ledger row by ID.
func (s *Store) GetMemory(ctx context.Context, id string) (Memory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return Memory{}, ErrNotFound
	}
	return m, err
}

// GetMemoriesByIDs returns the rows matching ids, in insertion order.
// Unknown IDs are skipped.
func (s *Store) GetMemoriesByIDs(ctx context.Context, ids []string) ([]Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + memoryColumns + ` FROM memories WHERE id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `) ORDER BY seq ASC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying memories by id: %w", err)
	}
	return scanMemories(rows)
}

// ListUnembeddedMemories returns up to limit rows that have no vector yet,
// oldest first.
func (s *Store) ListUnembeddedMemories(ctx context.Context, limit int) ([]Memory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE vector_id = '' ORDER BY seq ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying unembedded memories: %w", err)
	}
	return scanMemories(rows)
}

// CountMemories returns how many ledger rows belong to userID.
func (s *Store) CountMemories(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// SetMemoryVectorID records which vector row embeds the memory.
func (s *Store) SetMemoryVectorID(ctx context.Context, id, vectorID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE memories SET vector_id = ? WHERE id = ?`, vectorID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(r rowScanner) (Memory, error) {
	var m Memory
	var createdAt string
	if err := r.Scan(&m.Seq, &m.ID, &m.UserID, &m.Kind, &m.Text, &m.TurnsJSON, &createdAt, &m.VectorID); err != nil {
		return Memory{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Memory{}, fmt.Errorf("parsing created_at for memory %s: %w", m.ID, err)
	}
	m.CreatedAt = t
	return m, nil
}

func scanMemories(rows *sql.Rows) ([]Memory, error) {
	defer rows.Close()
	var out []Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
