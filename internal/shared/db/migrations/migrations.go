package migrations

import (
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/yahya159/bidinsouk-sub004/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// RunMigrations applies all pending schema migrations against dbURL.
func RunMigrations(dbURL string) error {
	log.Info("Running database migrations", zap.String("source", "internal/shared/db/migrations/sql"))
	m, err := migrate.New(
		"file://internal/shared/db/migrations/sql",
		dbURL,
	)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
