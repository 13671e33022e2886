package infra

import (
	"fmt"

	"feedstock/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches GORM
// cannot express (partial indexes, jsonb defaults).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations applies the schema. Exposed separately so integration tests
// can migrate a scratch database without opening a second connection pool.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		return fmt.Errorf("pgcrypto extension: %w", err)
	}

	if err := db.AutoMigrate(
		&model.Farm{},
		&model.User{},
		&model.Supplier{},
		&model.RawMaterial{},
		&model.Purchase{},
		&model.PurchaseLine{},
		&model.Recipe{},
		&model.RecipeLine{},
		&model.ProductionRun{},
		&model.ProductionLine{},
		&model.StockLedger{},
		&model.StockBaseline{},
		&model.PriceChange{},
		&model.AuditEntry{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}

	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot fully handle
// on its own. Each statement uses IF NOT EXISTS semantics so re-running on an
// already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// partial index for the active-line aggregation joins
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_purchase_lines_active_material') THEN
		    CREATE INDEX idx_purchase_lines_active_material
		        ON purchase_lines (raw_material_id)
		        WHERE active = true;
		  END IF;
		END $$`,
		// partial index for the active-run consumption sum
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_production_runs_farm_active') THEN
		    CREATE INDEX idx_production_runs_farm_active
		        ON production_runs (farm_id)
		        WHERE active = true;
		  END IF;
		END $$`,
		// price history is always read newest-first per material
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_price_changes_material_created') THEN
		    CREATE INDEX idx_price_changes_material_created
		        ON price_changes (raw_material_id, created_at DESC);
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
