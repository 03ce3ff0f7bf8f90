/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// MigrationManager applies versioned migrations. Every migration runs in one
// transaction of its session together with the bookkeeping row that marks it
// applied.
type MigrationManager struct {
	session       *Session
	logger        Logger
	registry      ModelRegistry
	environment   string
	migrateConfig DataMigrateConfig
	initConfig    DataInitConfig
	extra         []MigrationItem
}

// Migration is the bookkeeping row of an applied migration.
type Migration struct {
	bun.BaseModel `bun:"table:migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step. db is the migration's transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version with up/down functions.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

// NewMigrationManager returns a manager working through session and the
// default model registry.
func NewMigrationManager(session *Session, logger Logger) *MigrationManager {
	return &MigrationManager{
		session:     session,
		logger:      loggerOrNop(logger),
		registry:    defaultRegistry,
		environment: "development",
	}
}

// SetEnvironment sets the environment used when seeding from SQL files.
func (mm *MigrationManager) SetEnvironment(env string) {
	mm.environment = env
}

func (mm *MigrationManager) SetMigrateConfig(cfg DataMigrateConfig) {
	mm.migrateConfig = cfg
}

// SetInitConfig sets the seeding options. A configured environment replaces
// the current one.
func (mm *MigrationManager) SetInitConfig(cfg DataInitConfig) {
	mm.initConfig = cfg
	if cfg.Environment != "" {
		mm.environment = cfg.Environment
	}
}

// SetRegistry replaces the registry whose models get tables.
func (mm *MigrationManager) SetRegistry(r ModelRegistry) {
	mm.registry = r
}

// AddMigration appends application migrations. They run after the built-in
// ones, ordered by version.
func (mm *MigrationManager) AddMigration(items ...MigrationItem) {
	mm.extra = append(mm.extra, items...)
}

// Close closes the manager's session.
func (mm *MigrationManager) Close() error {
	return mm.session.Close()
}

// RunMigrations creates the bookkeeping table if needed and applies every
// pending migration in version order.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		SetQueryLogSilent(true)
		defer SetQueryLogSilent(false)
	}

	db, err := mm.session.IDB()
	if err != nil {
		return err
	}
	if _, err := db.NewCreateTable().Model((*Migration)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := 0
	for _, migration := range mm.migrations() {
		ran, err := mm.runMigration(ctx, migration)
		if err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
		if ran {
			applied++
		}
	}

	mm.logger.Info("Database migrations completed", "applied", applied)
	return nil
}

func (mm *MigrationManager) migrations() []MigrationItem {
	migrations := []MigrationItem{{
		Version:     "001",
		Name:        "create_base_tables",
		Description: "Create tables of registered models",
		Up:          mm.createBaseTables,
	}}
	if mm.migrateConfig.EnableForeignKey {
		migrations = append(migrations, MigrationItem{
			Version:     "002",
			Name:        "add_foreign_keys",
			Description: "Add table foreign key constraints",
			Up:          mm.addForeignKeys,
		})
	}
	if mm.initConfig.AutoInitOnMigration {
		migrations = append(migrations, MigrationItem{
			Version:     "003",
			Name:        "seed_initial_data",
			Description: "Seed initial data",
			Up:          mm.seedInitialData,
		})
	}

	extra := append([]MigrationItem(nil), mm.extra...)
	sort.SliceStable(extra, func(i, j int) bool { return extra[i].Version < extra[j].Version })
	return append(migrations, extra...)
}

func (mm *MigrationManager) isApplied(ctx context.Context, version string) (bool, error) {
	db, err := mm.session.IDB()
	if err != nil {
		return false, err
	}
	return db.NewSelect().Model((*Migration)(nil)).Where("version = ?", version).Exists(ctx)
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) (bool, error) {
	if migration.Up == nil {
		return false, fmt.Errorf("migration %s has no up function", migration.Version)
	}
	exists, err := mm.isApplied(ctx, migration.Version)
	if err != nil || exists {
		return false, err
	}

	err = mm.session.Transaction(ctx, nil, func(ctx context.Context) error {
		db, err := mm.session.IDB()
		if err != nil {
			return err
		}
		if err := migration.Up(ctx, db); err != nil {
			return err
		}
		_, err = db.NewInsert().Model(&Migration{
			Version:     migration.Version,
			Name:        migration.Name,
			AppliedAt:   time.Now(),
			Description: migration.Description,
		}).Exec(ctx)
		return err
	})
	if err != nil {
		return false, err
	}

	mm.logger.Info("Migration executed successfully", "version", migration.Version, "name", migration.Name, "tx_id", mm.session.TxID())
	return true, nil
}

// RollbackMigration runs the Down step of an applied migration and removes
// its bookkeeping row.
func (mm *MigrationManager) RollbackMigration(ctx context.Context, version string) error {
	var item *MigrationItem
	for _, m := range mm.migrations() {
		if m.Version == version {
			m := m
			item = &m
			break
		}
	}
	if item == nil {
		return fmt.Errorf("unknown migration version %s", version)
	}
	if item.Down == nil {
		return fmt.Errorf("migration %s cannot be rolled back", version)
	}

	exists, err := mm.isApplied(ctx, version)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("migration %s is not applied", version)
	}

	return mm.session.Transaction(ctx, nil, func(ctx context.Context) error {
		db, err := mm.session.IDB()
		if err != nil {
			return err
		}
		if err := item.Down(ctx, db); err != nil {
			return err
		}
		_, err = db.NewDelete().Model((*Migration)(nil)).Where("version = ?", version).Exec(ctx)
		return err
	})
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	db, err := mm.session.IDB()
	if err != nil {
		return nil, err
	}
	var migrations []Migration
	err = db.NewSelect().Model(&migrations).Order("version ASC").Scan(ctx)
	return migrations, err
}

func (mm *MigrationManager) createBaseTables(ctx context.Context, db bun.IDB) error {
	for _, model := range modelInstances(mm.registry.Models()) {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

func (mm *MigrationManager) addForeignKeys(ctx context.Context, db bun.IDB) error {
	path := mm.migrateConfig.ForeignKeyFile
	if path == "" {
		mm.logger.Warn("Foreign keys enabled but no foreign key file configured")
		return nil
	}
	fkm, err := LoadForeignKeyManager(mm.logger, path)
	if err != nil {
		return err
	}
	if errs := fkm.ValidateConstraints(); len(errs) > 0 {
		return fmt.Errorf("foreign key constraint validation failed: %w", errors.Join(errs...))
	}

	added, err := fkm.AddAllForeignKeys(ctx, db)
	if err != nil {
		return err
	}
	mm.logger.Debug("Foreign key constraints applied", "config_path", path, "added", added, "total", len(fkm.Constraints()))
	return nil
}

// InitData seeds data from the configured SQL files.
func (mm *MigrationManager) InitData(ctx context.Context) error {
	return mm.seedInitialData(ctx, nil)
}

// seedInitialData runs the SQL files through the manager's session, so that
// inside a migration they share its transaction.
func (mm *MigrationManager) seedInitialData(ctx context.Context, _ bun.IDB) error {
	sqlManager := NewSQLInitManager(mm.session, mm.environment)
	sqlManager.SetLogger(mm.logger)
	if mm.initConfig.Filepath != "" {
		sqlManager.SetSQLRootPath(mm.initConfig.Filepath)
	}

	if _, err := sqlManager.ExecuteInitialization(ctx); err != nil {
		return fmt.Errorf("SQL file initialization failed: %w", err)
	}
	return nil
}
