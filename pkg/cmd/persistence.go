// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/playbook/pkg/persistence"
	"github.com/dukex/playbook/pkg/persistence/file"
	"github.com/dukex/playbook/pkg/persistence/postgresql"
	"github.com/dukex/playbook/pkg/persistence/redis"
	"github.com/dukex/playbook/pkg/persistence/sqlite"
)

var ErrUnsupportedPersistence = errors.New("unsupported persistence provider")

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql", "sqlite", "redis", "rediss"}

// NewPersistence picks the backend from the scheme of databaseURL.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider, err := parsePersistenceProvider(databaseURL)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Initializing persistence", "provider", provider)

	switch provider {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case "sqlite":
		return sqlite.NewPersistence(ctx, logger, strings.TrimPrefix(databaseURL, "sqlite://"))
	case "redis", "rediss":
		return redis.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) (string, error) {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "", fmt.Errorf("%w: database URL %q has no scheme", ErrUnsupportedPersistence, databaseURL)
	}

	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedPersistence, provider)
}
