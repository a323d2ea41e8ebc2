package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"github.com/jywlabs/scriptwiz/internal/session"
)

// DefaultSQLiteFile is the database file used when the sqlite backend has no DSN.
const DefaultSQLiteFile = "scriptwiz.db"

type dialect struct {
	driver string
	// placeholder returns the bind parameter for the n-th argument (1-based).
	placeholder func(n int) string
}

var dialects = map[string]dialect{
	BackendSQLite:   {driver: "sqlite", placeholder: func(int) string { return "?" }},
	BackendLibSQL:   {driver: "libsql", placeholder: func(int) string { return "?" }},
	BackendPostgres: {driver: "pgx", placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }},
}

// SQLStore keeps sessions in a scriptwiz_sessions table.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQL connects to the database and creates the sessions table if needed.
func OpenSQL(ctx context.Context, backend, dsn, dir string) (*SQLStore, error) {
	d, ok := dialects[backend]
	if !ok {
		return nil, fmt.Errorf("unknown sql backend: %s", backend)
	}
	if dsn == "" {
		if backend != BackendSQLite {
			return nil, fmt.Errorf("storage.dsn is required for the %s backend", backend)
		}
		dsn = filepath.Join(dir, DefaultSQLiteFile)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if backend == BackendSQLite {
		// Writes from several goroutines would otherwise hit SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	s := &SQLStore{db: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS scriptwiz_sessions (
	id TEXT PRIMARY KEY,
	data TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

func (s *SQLStore) ph(n int) string {
	return s.dialect.placeholder(n)
}

// Load reads a session row.
func (s *SQLStore) Load(ctx context.Context, id string) (*session.Session, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM scriptwiz_sessions WHERE id = "+s.ph(1), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", id, err)
	}
	return &sess, nil
}

// Save upserts a session row.
func (s *SQLStore) Save(ctx context.Context, sess *session.Session) error {
	if err := ValidateID(sess.ID); err != nil {
		return err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO scriptwiz_sessions (id, data, updated_at) VALUES (%s, %s, %s)
ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.ph(1), s.ph(2), s.ph(3))
	if _, err := s.db.ExecContext(ctx, query, sess.ID, string(data), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a session row. Missing sessions are not an error.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM scriptwiz_sessions WHERE id = "+s.ph(1), id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns stored session ids, sorted.
func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM scriptwiz_sessions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
