// Package storage persists sessions between runs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jywlabs/scriptwiz/internal/session"
)

// ErrNotFound is returned by Load for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendLibSQL   = "libsql"
	BackendPostgres = "postgres"
)

// Store loads and saves sessions by id.
type Store interface {
	Load(ctx context.Context, id string) (*session.Session, error)
	Save(ctx context.Context, s *session.Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	DSN     string
	Dir     string // project directory, used by the file backend and as the default sqlite location
}

// Open creates the store for the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendFile:
		return NewFileStore(opts.Dir), nil
	case BackendSQLite, BackendLibSQL, BackendPostgres:
		st, err := OpenSQL(ctx, strings.ToLower(opts.Backend), opts.DSN, opts.Dir)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown storage backend: %s (supported: file, sqlite, libsql, postgres)", opts.Backend)
}

// LoadOrNew loads a session and creates an empty one when none is stored.
func LoadOrNew(ctx context.Context, st Store, id string) (*session.Session, error) {
	s, err := st.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return session.New(id), nil
	}
	return s, err
}

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// ValidateID rejects ids that are unsafe as file names.
func ValidateID(id string) error {
	if !validID.MatchString(id) {
		return fmt.Errorf("invalid session id %q: use letters, digits, '-' and '_'", id)
	}
	return nil
}
