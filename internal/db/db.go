package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"labops-backend/config"
	"labops-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Equipment{},
		&model.UsageLog{},
		&model.MaintenanceLog{},
		&model.CalibrationLog{},
		&model.EquipmentDocument{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if cfg.EnableRangeIndex && cfg.Driver == "postgres" {
		log.Println("Applying PostgreSQL range-index DDL for usage logs...")
		if err := applyRangeIndexDDL(db); err != nil {
			log.Printf("Warning: failed to apply range-index DDL: %v. Continuing without it.", err)
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// applyRangeIndexDDL adds a GIST index over the usage interval so overlap
// lookups on large histories don't scan the whole per-equipment log. The
// check constraint mirrors the validator's start < end rule at the storage
// layer. Every statement must stay safe to rerun, the DDL is applied on
// each boot.
func applyRangeIndexDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		// ADD CONSTRAINT has no IF NOT EXISTS form; drop-then-add keeps the
		// pair rerunnable.
		"ALTER TABLE usage_logs DROP CONSTRAINT IF EXISTS usage_logs_interval_valid;",
		"ALTER TABLE usage_logs " +
			"ADD CONSTRAINT usage_logs_interval_valid CHECK (start_time < end_time);",

		// Half-open ranges, matching the validator's [start, end) comparison.
		"CREATE INDEX IF NOT EXISTS idx_usage_logs_interval ON usage_logs " +
			"USING GIST (equipment_id, tstzrange(start_time, end_time, '[)'));",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
