package sqlbase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/playbook/pkg/persistence"
)

// Persistence is the part of a SQL backend that does not depend on the driver.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	workflowRepo *WorkflowRepository
}

// NewPersistence runs the migrations on an open database and wires the repositories.
// The database is closed when migrating fails.
func NewPersistence(
	ctx context.Context,
	logger *slog.Logger,
	database *sql.DB,
	dialect Dialect,
	migrations map[int]string,
) (*Persistence, error) {
	err := database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := NewMigrationManager(logger, database, dialect, migrations)

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		workflowRepo: NewWorkflowRepository(database, logger, dialect),
	}, nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
