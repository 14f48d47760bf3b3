package archive

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/getmockd/netmock/pkg/har"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps archives as JSON documents in a SQLite database. Each
// save stamps the row with a fresh revision ID.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get loads the archive stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*har.Archive, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var body string
	err := s.db.QueryRowContext(ctx, "SELECT body FROM archives WHERE key = ?", key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query archive %q: %w", key, err)
	}

	var a har.Archive
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return nil, fmt.Errorf("parse archive %q: %w", key, err)
	}
	a.Normalize()
	return &a, nil
}

// Save upserts the archive under key.
func (s *SQLiteStore) Save(ctx context.Context, key string, a *har.Archive) error {
	if err := validateKey(key); err != nil {
		return err
	}

	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode archive %q: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO archives (key, revision, entry_count, body, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			revision = excluded.revision,
			entry_count = excluded.entry_count,
			body = excluded.body,
			updated_at = excluded.updated_at
	`, key, uuid.NewString(), len(a.Log.Entries), string(body), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save archive %q: %w", key, err)
	}
	return nil
}

// Keys returns every stored key, sorted.
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM archives ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Revision returns the revision ID written by the last Save of key.
func (s *SQLiteStore) Revision(ctx context.Context, key string) (string, error) {
	var rev string
	err := s.db.QueryRowContext(ctx, "SELECT revision FROM archives WHERE key = ?", key).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return rev, err
}

func applyMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var migrations []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			migrations = append(migrations, e.Name())
		}
	}
	sort.Strings(migrations)

	for _, name := range migrations {
		version, err := parseVersion(name)
		if err != nil {
			return fmt.Errorf("parse version from %s: %w", name, err)
		}

		var count int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if count > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile(filepath.ToSlash(filepath.Join("migrations", name)))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := db.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, time.Now().Unix()); err != nil {
			return fmt.Errorf("record migration %d: %w", version, err)
		}
	}

	return nil
}

func parseVersion(filename string) (int, error) {
	prefix, _, _ := strings.Cut(filename, "_")
	return strconv.Atoi(prefix)
}
