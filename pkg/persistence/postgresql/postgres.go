// Package postgresql provides PostgreSQL persistence for workflows and playbooks.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/playbook/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Dialect is the PostgreSQL flavour of the shared SQL repository.
var Dialect = sqlbase.Dialect{
	Name:                 "postgres",
	NumberedPlaceholders: true,
	MigrationsTable: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`,
}

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	*sqlbase.Persistence
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	base, err := sqlbase.NewPersistence(ctx, logger, database, Dialect, migrations())
	if err != nil {
		return nil, err
	}

	return &Persistence{Persistence: base}, nil
}
