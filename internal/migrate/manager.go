// Package migrate applies the embedded schema with goose and provisions the
// initial administrator.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var migrations embed.FS

const migrationsDir = "sql"

var setupOnce sync.Once
var setupErr error

// seams for tests
var (
	gooseUp      = goose.UpContext
	gooseDown    = goose.DownContext
	gooseVersion = goose.GetDBVersionContext
)

// Manager executes schema migrations against a database handle.
type Manager struct {
	db *sql.DB
}

// NewManager constructs a Manager.
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

func setup() error {
	setupOnce.Do(func() {
		goose.SetBaseFS(migrations)
		setupErr = goose.SetDialect("pgx")
	})
	return setupErr
}

// Up applies all pending migrations.
func (m *Manager) Up(ctx context.Context) error {
	if m.db == nil {
		return errors.New("migrate: database handle is nil")
	}
	if err := setup(); err != nil {
		return err
	}
	return gooseUp(ctx, m.db, migrationsDir)
}

// Down rolls back the most recent applied migration.
func (m *Manager) Down(ctx context.Context) error {
	if m.db == nil {
		return errors.New("migrate: database handle is nil")
	}
	if err := setup(); err != nil {
		return err
	}
	return gooseDown(ctx, m.db, migrationsDir)
}

// Version returns the current schema version.
func (m *Manager) Version(ctx context.Context) (int64, error) {
	if m.db == nil {
		return 0, errors.New("migrate: database handle is nil")
	}
	if err := setup(); err != nil {
		return 0, err
	}
	return gooseVersion(ctx, m.db)
}
