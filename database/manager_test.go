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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConnectionConfig() *ConnectionConfig {
	c := DefaultConnectionConfig()
	c.Type = TypeSQLite
	c.DBName = memoryDSN()
	c.MaxOpenConns = 1
	c.MaxIdleConns = 1
	c.HealthCheckInterval = 0
	return c
}

func TestDatabaseManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConnectionConfig()
	cfg.EnableMetrics = true
	reg := prometheus.NewRegistry()

	dm := NewDatabaseManager(cfg, WithRegisterer(reg))
	dm.SetLogger(nil)

	assert.ErrorIs(t, dm.Ping(ctx), ErrNotInitialized)
	_, err := dm.NewSession()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, "Database not initialized", dm.HealthCheck(ctx).LastError)
	assert.Equal(t, &DBStats{}, dm.GetStats())

	require.NoError(t, dm.Connect(ctx))
	t.Cleanup(func() { _ = dm.Disconnect() })
	require.NoError(t, dm.Connect(ctx), "connect twice is a no-op")
	require.NoError(t, dm.Ping(ctx))
	require.NotNil(t, dm.GetDB())
	require.NotNil(t, dm.GetSQLDB())

	require.NoError(t, dm.RunMigrations(ctx))

	session, err := dm.NewSession()
	require.NoError(t, err)
	defer session.Close()
	db, err := session.IDB()
	require.NoError(t, err)
	exists, err := db.NewSelect().Model((*Migration)(nil)).Where("version = ?", "001").Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	status := dm.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Empty(t, status.LastError)
	assert.Equal(t, 1, status.MaxOpenConns)
	assert.Equal(t, 1, dm.GetStats().MaxOpenConns)

	series, err := testutil.GatherAndCount(reg, "bunrepo_queries_total")
	require.NoError(t, err)
	assert.Positive(t, series, "queries are counted")

	require.NoError(t, dm.Disconnect())
	assert.Nil(t, dm.GetDB())
	assert.ErrorIs(t, dm.Ping(ctx), ErrNotInitialized)
	require.NoError(t, dm.Disconnect(), "disconnect twice is a no-op")

	require.NoError(t, dm.Reconnect(ctx))
	require.NoError(t, dm.Ping(ctx))
}

func TestDatabaseManagerUnsupportedType(t *testing.T) {
	dm := NewDatabaseManager(&ConnectionConfig{Type: "oracle", DBName: "x"})
	err := dm.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?cache=shared", sqliteDSN(":memory:"))
	assert.Equal(t, "file:test.db?mode=ro", sqliteDSN("file:test.db?mode=ro"))
	assert.Equal(t, "data/app.db", sqliteDSN("data/app.db"))
	assert.Equal(t, "app.db", sqliteDSN("app"))
}

func TestDatabaseFactory(t *testing.T) {
	ctx := context.Background()
	f := NewDatabaseFactory()
	f.SetLogger(nil)

	assert.Nil(t, f.GetDB())
	assert.Equal(t, "Database manager not initialized", f.GetHealthStatus(ctx).LastError)
	assert.Error(t, f.InitializeDatabase(ctx, false))

	_, err := f.CreateFromConfig(&ConnectionConfig{Type: TypeSQLite})
	require.Error(t, err, "dbname is required")

	_, err = f.CreateFromConfig(sqliteConnectionConfig())
	require.NoError(t, err)
	require.NoError(t, f.InitializeDatabase(ctx, true))
	t.Cleanup(func() { _ = f.Close() })

	assert.NotNil(t, f.GetDB())
	assert.True(t, f.GetHealthStatus(ctx).Healthy)
	assert.Equal(t, 1, f.GetStats().MaxOpenConns)
	require.NoError(t, f.Close())
	assert.Nil(t, f.GetDB())
}

func TestGlobalDatabase(t *testing.T) {
	ctx := context.Background()
	t.Cleanup(func() { _ = CloseDB() })

	assert.Nil(t, GetDB())
	assert.ErrorIs(t, RunMigrations(ctx), ErrNotInitialized)
	_, err := NewGlobalSession()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, "Database not initialized", GetHealthStatus(ctx).LastError)
	_, err = InitDB(ctx, nil)
	assert.Error(t, err)

	root := t.TempDir()
	writeSQLFile(t, root, "environments/qa", "001_migrations.sql",
		"INSERT INTO migrations (version, name) VALUES ('900', 'seeded by qa');")

	cfg := &Config{
		ConnectionConfig:  *sqliteConnectionConfig(),
		DataMigrateConfig: DataMigrateConfig{EnableMigrateOnStartup: true},
		DataInitConfig:    DataInitConfig{Filepath: root, Environment: "qa"},
	}
	db, err := InitDB(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, db)
	assert.Same(t, db, GetDB())
	assert.NotNil(t, GetDatabaseFactory())
	assert.True(t, GetHealthStatus(ctx).Healthy)
	assert.Equal(t, 1, GetDatabaseStats().MaxOpenConns)

	require.NoError(t, InitData(ctx))
	exists, err := db.NewSelect().Model((*Migration)(nil)).Where("version = ?", "900").Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	session, err := NewGlobalSession()
	require.NoError(t, err)
	require.NoError(t, session.Close())

	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
	assert.Nil(t, GetDatabaseManager())
	require.NoError(t, CloseDB())
}
