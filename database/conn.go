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
	"fmt"
	"sync"

	"github.com/uptrace/bun"
)

var (
	globalMu      sync.RWMutex
	globalFactory *BaseDatabaseFactory
	globalConfig  *Config
)

// GetDB returns the global Bun database instance, nil before InitDB.
func GetDB() *bun.DB {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory == nil {
		return nil
	}
	return globalFactory.GetDB()
}

// GetDatabaseManager returns the global database manager.
func GetDatabaseManager() AbstractDatabaseManager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory == nil {
		return nil
	}
	return globalFactory.GetManager()
}

// GetDatabaseFactory returns the global database factory.
func GetDatabaseFactory() *BaseDatabaseFactory {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalFactory
}

// InitDB initializes the global database using the provided configuration.
func InitDB(ctx context.Context, cfg *Config, opts ...ManagerOption) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	return InitDatabaseWithOptions(ctx, cfg, cfg.DataMigrateConfig.EnableMigrateOnStartup, opts...)
}

// InitDatabaseWithOptions initializes the global database and optionally runs
// migrations. A previously initialized global database is closed first.
func InitDatabaseWithOptions(ctx context.Context, cfg *Config, runMigrations bool, opts ...ManagerOption) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}

	factory := NewDatabaseFactory()
	opts = append([]ManagerOption{
		WithMigrateConfig(cfg.DataMigrateConfig),
		WithInitConfig(cfg.DataInitConfig),
	}, opts...)
	manager, err := factory.CreateFromConfig(&cfg.ConnectionConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(ctx, runMigrations); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if cfg.DataInitConfig.AutoInitOnStartup {
		if err := manager.InitData(ctx); err != nil {
			_ = factory.Close()
			return nil, fmt.Errorf("failed to initialize data: %w", err)
		}
	}

	globalMu.Lock()
	previous := globalFactory
	globalFactory = factory
	globalConfig = cfg
	globalMu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
	return manager.GetDB(), nil
}

// NewGlobalSession opens a session on the global database.
func NewGlobalSession(opts ...SessionOption) (*Session, error) {
	manager := GetDatabaseManager()
	if manager == nil {
		return nil, ErrNotInitialized
	}
	return manager.NewSession(opts...)
}

// CloseDB closes the global database connection.
func CloseDB() error {
	globalMu.Lock()
	factory := globalFactory
	globalFactory = nil
	globalConfig = nil
	globalMu.Unlock()

	if factory == nil {
		return nil
	}
	return factory.Close()
}

// GetHealthStatus returns the current global database health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if factory := GetDatabaseFactory(); factory != nil {
		return factory.GetHealthStatus(ctx)
	}
	return &HealthStatus{LastError: "Database not initialized"}
}

// GetDatabaseStats returns global database statistics.
func GetDatabaseStats() *DBStats {
	if factory := GetDatabaseFactory(); factory != nil {
		return factory.GetStats()
	}
	return &DBStats{}
}

// RunMigrations executes the migrations of the global database.
func RunMigrations(ctx context.Context) error {
	manager := GetDatabaseManager()
	if manager == nil {
		return ErrNotInitialized
	}
	return manager.RunMigrations(ctx)
}

// InitData seeds the global database for the configured environment, "prod"
// when none is configured.
func InitData(ctx context.Context) error {
	env := "prod"
	globalMu.RLock()
	if globalConfig != nil && globalConfig.DataInitConfig.Environment != "" {
		env = globalConfig.DataInitConfig.Environment
	}
	globalMu.RUnlock()
	return InitDataWithSQL(ctx, env)
}

// InitDataWithSQL seeds the global database by executing the SQL files of the
// given environment.
func InitDataWithSQL(ctx context.Context, environment string) error {
	manager := GetDatabaseManager()
	if manager == nil {
		return ErrNotInitialized
	}
	session, err := manager.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	path := defaultSQLRootPath
	globalMu.RLock()
	if globalConfig != nil && globalConfig.DataInitConfig.Filepath != "" {
		path = globalConfig.DataInitConfig.Filepath
	}
	globalMu.RUnlock()

	sqlManager := NewSQLInitManager(session, environment)
	sqlManager.SetSQLRootPath(path)
	_, err = sqlManager.ExecuteInitialization(ctx)
	return err
}
