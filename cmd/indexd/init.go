package main

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	memrepo "github.com/vshulcz/Golastic/internal/adapters/repository/memory"
	pgrepo "github.com/vshulcz/Golastic/internal/adapters/repository/postgres"
	"github.com/vshulcz/Golastic/internal/config"
	"github.com/vshulcz/Golastic/internal/misc"
	"github.com/vshulcz/Golastic/internal/ports"
)

// buildRepo connects to Postgres when a DSN is configured and falls back to
// in-memory storage otherwise. The returned func releases the connection.
func buildRepo(ctx context.Context, cfg config.IndexdConfig, logger *zap.Logger) (ports.DocumentRepo, func()) {
	if cfg.DSN != "" {
		db, err := sql.Open("postgres", cfg.DSN)
		if err == nil {
			op := func() error {
				if err := db.PingContext(ctx); err != nil {
					return err
				}
				return pgrepo.Migrate(db)
			}
			if err = misc.Retry(ctx, misc.DefaultBackoff, pgrepo.IsRetryable, op); err == nil {
				logger.Info("db connected & migrated")
				return pgrepo.New(db), func() { _ = db.Close() }
			}
			_ = db.Close()
		}
		logger.Warn("postgres init failed, falling back to memory", zap.Error(err))
	}
	return memrepo.New(), func() {}
}
