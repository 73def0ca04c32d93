package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arcade-catalog/internal/config"
	"github.com/arcade-catalog/internal/filestore"
	"github.com/arcade-catalog/internal/postgres"
)

// Open selects the backend once for the process lifetime: the database when
// a connection URL is configured, the JSON file store otherwise
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if cfg.Storage.UseDatabase() {
		db, err := postgres.NewStore(ctx, cfg.Storage.DatabaseURL, &cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("opening database backend: %w", err)
		}
		logger.Info("storage backend selected", "backend", "postgres")
		return NewStore(db, logger), nil
	}

	files, err := filestore.NewStore(cfg.Storage.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening file backend: %w", err)
	}
	logger.Info("storage backend selected", "backend", "file", "dir", cfg.Storage.DataDir)
	return NewStore(files, logger), nil
}
