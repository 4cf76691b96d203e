package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/credstore"
	_ "modernc.org/sqlite"
)

// Store keeps one credential row per scope. Several scopes (API hosts,
// profiles) can share a database file without seeing each other's rows.
type Store struct {
	db    *sql.DB
	scope string
	now   func() time.Time
}

var _ credstore.Store = (*Store)(nil)

func NewStore(dsn, scope string) (*Store, error) {
	if scope == "" {
		return nil, errors.New("sqlite: scope is required")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Ping so a bad DSN fails here instead of on first Load
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, scope: scope, now: time.Now}, nil
}

// OpenFile opens (creating if needed) a database file readable only by the
// current user and applies migrations. The file holds live tokens, so the
// permissions matter.
func OpenFile(path, scope string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	_ = f.Close()

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	s, err := NewStore(dsn, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := s.ApplyMigrations(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Load(ctx context.Context) (credstore.Credentials, error) {
	var c credstore.Credentials
	err := s.db.QueryRowContext(ctx,
		`SELECT access_token, refresh_token FROM credentials WHERE scope = ?`,
		s.scope,
	).Scan(&c.Access, &c.Renewal)
	if err != nil {
		return credstore.Credentials{}, mapNotFound(err)
	}

	if !c.Complete() {
		return credstore.Credentials{}, credstore.ErrNotFound
	}
	return c, nil
}

// Save is a single upsert, so the pair is replaced as one unit.
func (s *Store) Save(ctx context.Context, c credstore.Credentials) error {
	if !c.Complete() {
		return credstore.ErrIncomplete
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (scope, access_token, refresh_token, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (scope) DO UPDATE SET
			access_token  = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at    = excluded.updated_at`,
		s.scope, c.Access, c.Renewal, s.now().UTC(),
	)
	return err
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE scope = ?`, s.scope)
	return err
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return credstore.ErrNotFound
	}
	return err
}
