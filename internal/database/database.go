package database

import (
	"fmt"
	"time"

	"github.com/sjperalta/fintera-financing/internal/models"
	pkgLogger "github.com/sjperalta/fintera-financing/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options tunes the connection
type Options struct {
	Production    bool
	SlowThreshold time.Duration
}

// Connect establishes a connection to the PostgreSQL database
func Connect(databaseURL string, opts Options) (*gorm.DB, error) {
	logLevel := logger.Info
	if opts.Production {
		logLevel = logger.Warn
	}
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = 200 * time.Millisecond
	}

	gormLogger := pkgLogger.NewGormLogger(logLevel, opts.SlowThreshold)

	// Payment writes run in explicit serializable transactions, so GORM's
	// implicit per-statement transaction is skipped.
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the tables owned by the financing engine
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Sale{},
		&models.Installment{},
		&models.InstallmentPayment{},
		&models.SaleLedgerEntry{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
