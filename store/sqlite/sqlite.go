/*
Package sqlite provides a SQLite-backed chit.Storage.

STORAGE MODEL:
  One row per fund. The fund itself is stored as a JSON snapshot; id, name
  and created_at are duplicated into columns so the table can be inspected
  with plain SQL. The position column keeps the collection order stable.

ATOMIC REPLACE:
  SaveAll deletes every row and inserts the new collection inside one SQL
  transaction. A failure rolls back and the previous collection remains.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

MIGRATIONS:
  Versioned SQL files under migrations/ are embedded and applied with
  golang-migrate on New(). The migration run uses its own connection, so
  dbPath must be a file path (":memory:" would migrate a different database).

USAGE:
  store, err := sqlite.New("./data/chitfund.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - chit/store.go: Storage contract
  - chit/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/chitfund/chit"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens the database at dbPath and applies pending migrations.
func New(dbPath string) (*Store, error) {
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db}, nil
}

// RunMigrations applies every embedded migration not yet recorded.
func RunMigrations(dbPath string) error {
	migrateDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite3.WithInstance(migrateDB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite3 driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LoadAll returns the stored collection in save order.
func (s *Store) LoadAll(ctx context.Context) ([]chit.Fund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, snapshot_json FROM funds ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query funds: %w", err)
	}
	defer rows.Close()

	funds := []chit.Fund{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan fund: %w", err)
		}
		var f chit.Fund
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			return nil, fmt.Errorf("decode fund %s: %w", id, err)
		}
		funds = append(funds, f)
	}
	return funds, rows.Err()
}

// SaveAll replaces the stored collection in one transaction.
func (s *Store) SaveAll(ctx context.Context, funds []chit.Fund) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM funds`); err != nil {
		return fmt.Errorf("clear funds: %w", err)
	}

	stmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO funds (id, position, name, created_at, snapshot_json)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range funds {
		raw, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("encode fund %s: %w", f.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, string(f.ID), i, f.Name, f.CreatedAt.UTC().Format(time.RFC3339), string(raw)); err != nil {
			return fmt.Errorf("insert fund %s: %w", f.ID, err)
		}
	}
	return sqlTx.Commit()
}

var _ chit.Storage = (*Store)(nil)
