package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
	"github.com/pneumonia-risk-mcp-server/internal/feedback"
	"github.com/pneumonia-risk-mcp-server/internal/repository"
)

// OpenFeedbackStore opens the feedback store selected by cfg.Driver. The
// postgres driver applies pending migrations before the store is returned.
func OpenFeedbackStore(ctx context.Context, cfg domain.DatabaseConfig, logger *logrus.Logger) (feedback.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		if cfg.Path == "" {
			return nil, domain.NewValidationError("database.path", "sqlite path is required", nil)
		}
		store, err := feedback.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", cfg.Path).Info("Feedback store opened (sqlite)")
		return store, nil

	case "postgres":
		runner, err := NewMigrationRunner(PostgresDSN(cfg), logger)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := runner.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close migration runner")
			}
		}()
		if err := runner.Up(ctx); err != nil {
			return nil, err
		}

		db, err := OpenPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		store, err := feedback.NewPostgresStore(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// OpenAssessmentStore opens assessment history for the postgres driver. Other
// drivers keep no history and yield a nil store.
func OpenAssessmentStore(ctx context.Context, cfg domain.DatabaseConfig, logger *logrus.Logger) (*repository.AssessmentRepository, error) {
	if strings.ToLower(cfg.Driver) != "postgres" {
		return nil, nil
	}

	poolConfig, err := pgxpool.ParseConfig(PostgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":      cfg.Host,
		"database":  cfg.Database,
		"max_conns": poolConfig.MaxConns,
	}).Info("Assessment history opened (postgres)")
	return repository.NewAssessmentRepository(pool, logger), nil
}
