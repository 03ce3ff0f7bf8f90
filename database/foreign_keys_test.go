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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderUserFK() ForeignKeyConstraint {
	return ForeignKeyConstraint{
		Table:           "orders",
		Column:          "user_id",
		ReferenceTable:  "users",
		ReferenceColumn: "id",
		OnDelete:        "cascade",
	}
}

func TestForeignKeyConstraintValidate(t *testing.T) {
	fk := orderUserFK()
	assert.NoError(t, fk.Validate())
	assert.Equal(t, "fk_orders_user_id", fk.Name())

	fk.ConstraintName = "orders_owner"
	assert.Equal(t, "orders_owner", fk.Name())

	tests := []struct {
		name   string
		mutate func(fk *ForeignKeyConstraint)
		want   string
	}{
		{"table", func(fk *ForeignKeyConstraint) { fk.Table = "" }, "table name"},
		{"column", func(fk *ForeignKeyConstraint) { fk.Column = "" }, "column name"},
		{"reference table", func(fk *ForeignKeyConstraint) { fk.ReferenceTable = "" }, "reference table"},
		{"reference column", func(fk *ForeignKeyConstraint) { fk.ReferenceColumn = "" }, "reference column"},
		{"on delete", func(fk *ForeignKeyConstraint) { fk.OnDelete = "explode" }, "invalid delete policy"},
		{"on update", func(fk *ForeignKeyConstraint) { fk.OnUpdate = "later" }, "invalid update policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fk := orderUserFK()
			tt.mutate(&fk)
			err := fk.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestForeignKeyManagerConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "fk.yaml")

	itemOrder := ForeignKeyConstraint{
		Table: "order_items", Column: "order_id", ReferenceTable: "orders", ReferenceColumn: "id",
		OnDelete: "CASCADE", OnUpdate: "NO ACTION", Description: "items belong to an order",
	}
	fkm := NewForeignKeyManager(nil, orderUserFK(), itemOrder)
	require.NoError(t, fkm.ExportToConfig(path))

	loaded, err := LoadForeignKeyManager(nil, path)
	require.NoError(t, err)
	assert.Equal(t, path, loaded.ConfigPath())
	require.Len(t, loaded.Constraints(), 2)
	assert.Equal(t, "orders.user_id -> users.id", loaded.Constraints()[0].Description, "description is filled on export")
	assert.Equal(t, "items belong to an order", loaded.Constraints()[1].Description)
	assert.Empty(t, loaded.ValidateConstraints())

	assert.Len(t, loaded.ConstraintsByTable("ORDERS"), 1)
	assert.Empty(t, loaded.ConstraintsByTable("users"))

	require.NoError(t, os.WriteFile(path, []byte("foreign_keys:\n  - table: orders\n    column: user_id\n"), 0o644))
	require.NoError(t, loaded.ReloadConfig())
	require.Len(t, loaded.Constraints(), 1)
	assert.Len(t, loaded.ValidateConstraints(), 1)
}

func TestLoadForeignKeyManagerErrors(t *testing.T) {
	_, err := LoadForeignKeyManager(nil, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("foreign_keys: [::"), 0o644))
	_, err = LoadForeignKeyManager(nil, bad)
	assert.Error(t, err)

	assert.Error(t, NewForeignKeyManager(nil).ReloadConfig(), "no path")
}

func TestAddAllForeignKeysSkipsSQLite(t *testing.T) {
	db := newTestDB(t)
	logger := &recordingLogger{}
	fkm := NewForeignKeyManager(logger, orderUserFK())

	added, err := fkm.AddAllForeignKeys(context.Background(), db)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.True(t, logger.has("warn", "SQLite does not support adding foreign keys to existing tables, skipping"))
}
