// Package sqlite provides an embedded SQLite persistence for workflows and playbooks.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/playbook/pkg/persistence/sqlbase"
	_ "github.com/glebarez/go-sqlite"
)

// Dialect is the SQLite flavour of the shared SQL repository. Timestamps are
// kept as fixed width text.
var Dialect = sqlbase.Dialect{
	Name: "sqlite",
	MigrationsTable: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`,
	Time: sqlbase.TextTime,
}

// Persistence implements the persistence layer on top of a SQLite file.
type Persistence struct {
	*sqlbase.Persistence
}

// NewPersistence opens (creating when needed) the database at path.
func NewPersistence(ctx context.Context, logger *slog.Logger, path string) (*Persistence, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// one writer at a time, SQLite locks the whole file
	database.SetMaxOpenConns(1)

	base, err := sqlbase.NewPersistence(ctx, logger, database, Dialect, migrations())
	if err != nil {
		return nil, err
	}

	return &Persistence{Persistence: base}, nil
}

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL DEFAULT '',
				steps TEXT NOT NULL DEFAULT '[]',
				is_running BOOLEAN NOT NULL DEFAULT 0,
				is_playbook BOOLEAN NOT NULL DEFAULT 0,
				playbook_section TEXT,
				playbook_description TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)
		`,
		2: `CREATE INDEX idx_workflows_kind_created_at ON workflows(is_playbook, created_at DESC)`,
	}
}
