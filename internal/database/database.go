// Package database provides the PostgreSQL-backed stores for the
// archival subsystem: the execution log repository, the retention policy
// store, and the entity archiver.
package database

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/SanathAishu/clinic-administration-sub006/internal/config"
)

// Connect opens the PostgreSQL connection pool
func Connect(cfg *config.Config, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.PoolSize)
	db.SetMaxIdleConns(cfg.Database.PoolSize / 2)

	logger.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
		zap.Int("pool_size", cfg.Database.PoolSize),
	)

	return db, nil
}

// Migrate applies pending schema migrations from the configured path
func Migrate(db *sqlx.DB, migrationsPath string, logger *zap.Logger) error {
	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath), "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("Database migrations applied", zap.String("path", migrationsPath))
	return nil
}

// OpenGorm wraps the existing connection pool for the gorm-backed stores
func OpenGorm(db *sqlx.DB) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}
	return gdb, nil
}
