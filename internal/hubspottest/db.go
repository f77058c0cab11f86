package hubspottest

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// OpenDB opens a SQLite database for the fake. Use ":memory:" for a throwaway
// store or a file path to keep records between runs.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// An in-memory database lives and dies with its only connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		_, err = db.Exec(pragma)
		if err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("exec %q: %w", pragma, err)
		}
	}

	return db, nil
}

var migrations = [][]string{
	{
		`CREATE TABLE objects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			object_type TEXT NOT NULL,
			archived INTEGER NOT NULL DEFAULT 0,
			archived_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX idx_objects_type ON objects(object_type, archived)`,
		`CREATE TABLE property_values (
			object_id INTEGER NOT NULL REFERENCES objects(id),
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (object_id, name)
		)`,
		`CREATE TABLE property_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			object_id INTEGER NOT NULL REFERENCES objects(id),
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX idx_property_history ON property_history(object_id, name)`,
	},
	{
		`CREATE TABLE association_types (
			id INTEGER PRIMARY KEY,
			from_type TEXT NOT NULL,
			to_type TEXT NOT NULL,
			category TEXT NOT NULL,
			label TEXT,
			name TEXT,
			inverse_id INTEGER NOT NULL
		)`,
		`CREATE TABLE associations (
			from_id INTEGER NOT NULL REFERENCES objects(id),
			to_id INTEGER NOT NULL REFERENCES objects(id),
			type_id INTEGER NOT NULL REFERENCES association_types(id),
			PRIMARY KEY (from_id, to_id, type_id)
		)`,
	},
}

// Migrate creates the fake's schema. Versions already applied are skipped,
// so a file-backed store can be reopened.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	for i, statements := range migrations {
		version := i + 1

		var applied int

		err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}

		if applied > 0 {
			continue
		}

		err = applyMigration(ctx, db, version, statements)
		if err != nil {
			return err
		}
	}

	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, version int, statements []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration %d: %w", version, err)
	}

	for _, statement := range statements {
		_, err = tx.ExecContext(ctx, statement)
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("migration %d: %w", version, err)
		}
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version)
	if err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("recording migration %d: %w", version, err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("committing migration %d: %w", version, err)
	}

	return nil
}
