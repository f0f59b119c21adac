// Package migrations embeds the SQL schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	// Registers the "postgres" database/sql driver goose runs on.
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var files embed.FS

// FS returns the embedded migration files.
func FS() fs.FS {
	return files
}

// Up applies all pending migrations and returns the resulting version.
func Up(ctx context.Context, databaseURL string) (int64, error) {
	provider, db, err := newProvider(databaseURL)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if _, err := provider.Up(ctx); err != nil {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// Reset rolls every migration back and applies them again.
// Intended for tests; it drops all data.
func Reset(ctx context.Context, databaseURL string) error {
	provider, db, err := newProvider(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := provider.DownTo(ctx, 0); err != nil {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("reapply migrations: %w", err)
	}
	return nil
}

func newProvider(databaseURL string) (*goose.Provider, *sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open migration connection: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, files)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create migration provider: %w", err)
	}

	return provider, db, nil
}
