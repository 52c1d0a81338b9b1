package db

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/config"
)

var (
	dbPool *pgxpool.Pool
	once   sync.Once
)

// GetPostgresDBPool returns the singleton *pgxpool.Pool for the configured DSN.
func GetPostgresDBPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	var err error
	once.Do(func() {
		poolCfg, configErr := pgxpool.ParseConfig(cfg.DSN())
		if configErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", configErr)
			return
		}
		if cfg.MaxConns > 0 {
			poolCfg.MaxConns = cfg.MaxConns
		}

		pool, connectErr := pgxpool.NewWithConfig(ctx, poolCfg)
		if connectErr != nil {
			err = fmt.Errorf("unable to connect to DB: %w", connectErr)
			return
		}
		dbPool = pool
	})

	if err != nil {
		return nil, err
	}
	if dbPool == nil {
		return nil, errors.New("database pool was not initialized")
	}
	if pingErr := dbPool.Ping(ctx); pingErr != nil {
		return nil, fmt.Errorf("database pool ping failed: %w", pingErr)
	}

	return dbPool, nil
}
