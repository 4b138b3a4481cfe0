package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"ordersync/internal/adapters/out/persistence/orderrepo"
	"ordersync/internal/adapters/out/persistence/pendingrepo"
	"ordersync/internal/pkg/errs"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the order store and migrates its schema. Postgres suits a
// shared deployment; sqlite keeps the cache in a local file.
func Open(driver, dsn string, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, errs.NewValueIsInvalidErrorWithCause("store driver", fmt.Errorf("%q is not supported", driver))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(slog.NewLogLogger(log.Handler(), slog.LevelWarn), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}

	if driver == DriverSQLite {
		// sqlite allows a single writer.
		sqlDB, dbErr := db.DB()
		if dbErr != nil {
			return nil, dbErr
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err = Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the orders and pending_writes tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&orderrepo.OrderDTO{}, &pendingrepo.PendingWriteDTO{}); err != nil {
		return fmt.Errorf("migrate order store: %w", err)
	}
	return nil
}
