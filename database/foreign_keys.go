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
	"os"
	"path/filepath"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"gopkg.in/yaml.v3"
)

var referentialActions = []string{"CASCADE", "RESTRICT", "SET NULL", "SET DEFAULT", "NO ACTION"}

// ForeignKeyConstraint describes a foreign key relationship between tables.
type ForeignKeyConstraint struct {
	Table           string `yaml:"table"`
	Column          string `yaml:"column"`
	ReferenceTable  string `yaml:"reference_table"`
	ReferenceColumn string `yaml:"reference_column"`
	OnDelete        string `yaml:"on_delete,omitempty"`
	OnUpdate        string `yaml:"on_update,omitempty"`
	ConstraintName  string `yaml:"constraint_name,omitempty"`
	Description     string `yaml:"description,omitempty"`
}

// ForeignKeyConfig is the layout of the foreign key YAML file.
type ForeignKeyConfig struct {
	ForeignKeys []ForeignKeyConstraint `yaml:"foreign_keys"`
}

// Name returns the explicit constraint name or fk_<table>_<column>.
func (fk ForeignKeyConstraint) Name() string {
	if fk.ConstraintName != "" {
		return fk.ConstraintName
	}
	return fmt.Sprintf("fk_%s_%s", fk.Table, fk.Column)
}

// AddQuery returns the ALTER TABLE statement that adds the constraint.
func (fk ForeignKeyConstraint) AddQuery(db bun.IDB) *bun.RawQuery {
	query := "ALTER TABLE ? ADD CONSTRAINT ? FOREIGN KEY (?) REFERENCES ? (?)"
	if fk.OnDelete != "" {
		query += " ON DELETE " + strings.ToUpper(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		query += " ON UPDATE " + strings.ToUpper(fk.OnUpdate)
	}
	return db.NewRaw(query,
		bun.Ident(fk.Table), bun.Ident(fk.Name()), bun.Ident(fk.Column),
		bun.Ident(fk.ReferenceTable), bun.Ident(fk.ReferenceColumn))
}

// Validate reports the first problem with the constraint definition.
func (fk ForeignKeyConstraint) Validate() error {
	switch {
	case fk.Table == "":
		return fmt.Errorf("table name cannot be empty")
	case fk.Column == "":
		return fmt.Errorf("column name cannot be empty: %s", fk.Table)
	case fk.ReferenceTable == "":
		return fmt.Errorf("reference table name cannot be empty: %s.%s", fk.Table, fk.Column)
	case fk.ReferenceColumn == "":
		return fmt.Errorf("reference column name cannot be empty: %s.%s -> %s", fk.Table, fk.Column, fk.ReferenceTable)
	}
	for _, action := range []struct{ kind, value string }{{"delete", fk.OnDelete}, {"update", fk.OnUpdate}} {
		if action.value != "" && !isReferentialAction(action.value) {
			return fmt.Errorf("invalid %s policy: %s, constraint: %s", action.kind, action.value, fk.Name())
		}
	}
	return nil
}

func isReferentialAction(s string) bool {
	for _, a := range referentialActions {
		if strings.EqualFold(s, a) {
			return true
		}
	}
	return false
}

// ForeignKeyManager adds foreign key constraints after the tables exist.
type ForeignKeyManager struct {
	constraints []ForeignKeyConstraint
	configPath  string
	logger      Logger
}

// NewForeignKeyManager creates a manager holding the given constraints.
func NewForeignKeyManager(logger Logger, constraints ...ForeignKeyConstraint) *ForeignKeyManager {
	return &ForeignKeyManager{
		constraints: constraints,
		logger:      loggerOrNop(logger),
	}
}

// LoadForeignKeyManager reads the constraints from a YAML file.
func LoadForeignKeyManager(logger Logger, configPath string) (*ForeignKeyManager, error) {
	fkm := NewForeignKeyManager(logger)
	fkm.configPath = configPath
	if err := fkm.ReloadConfig(); err != nil {
		return nil, err
	}
	return fkm, nil
}

// ReloadConfig replaces the constraints with the content of the YAML file.
func (fkm *ForeignKeyManager) ReloadConfig() error {
	if fkm.configPath == "" {
		return fmt.Errorf("foreign key config path is empty")
	}
	data, err := os.ReadFile(fkm.configPath)
	if err != nil {
		return fmt.Errorf("failed to read foreign key config: %w", err)
	}
	var config ForeignKeyConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse foreign key config %s: %w", fkm.configPath, err)
	}
	fkm.constraints = config.ForeignKeys
	return nil
}

// ExportToConfig writes the constraints as YAML, creating directories as needed.
func (fkm *ForeignKeyManager) ExportToConfig(outputPath string) error {
	config := ForeignKeyConfig{ForeignKeys: make([]ForeignKeyConstraint, 0, len(fkm.constraints))}
	for _, c := range fkm.constraints {
		if c.Description == "" {
			c.Description = fmt.Sprintf("%s.%s -> %s.%s", c.Table, c.Column, c.ReferenceTable, c.ReferenceColumn)
		}
		config.ForeignKeys = append(config.ForeignKeys, c)
	}

	data, err := yaml.Marshal(&config)
	if err != nil {
		return fmt.Errorf("failed to serialize foreign key config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write foreign key config: %w", err)
	}
	return nil
}

// ConfigPath returns the YAML file the constraints were loaded from.
func (fkm *ForeignKeyManager) ConfigPath() string {
	return fkm.configPath
}

// Constraints returns all configured constraints.
func (fkm *ForeignKeyManager) Constraints() []ForeignKeyConstraint {
	return fkm.constraints
}

// ConstraintsByTable returns the constraints declared on a table.
func (fkm *ForeignKeyManager) ConstraintsByTable(table string) []ForeignKeyConstraint {
	var result []ForeignKeyConstraint
	for _, c := range fkm.constraints {
		if strings.EqualFold(c.Table, table) {
			result = append(result, c)
		}
	}
	return result
}

// ValidateConstraints returns one error per invalid constraint.
func (fkm *ForeignKeyManager) ValidateConstraints() []error {
	var errs []error
	for _, c := range fkm.constraints {
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// AddAllForeignKeys adds every constraint. A constraint that the database
// rejects (usually because it already exists) is logged and skipped. SQLite
// cannot add constraints to existing tables, so nothing is done there.
func (fkm *ForeignKeyManager) AddAllForeignKeys(ctx context.Context, db bun.IDB) (int, error) {
	if db.Dialect().Name() == dialect.SQLite {
		fkm.logger.Warn("SQLite does not support adding foreign keys to existing tables, skipping", "constraints", len(fkm.constraints))
		return 0, nil
	}

	added := 0
	for _, c := range fkm.constraints {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		if _, err := c.AddQuery(db).Exec(ctx); err != nil {
			fkm.logger.Debug("Failed to add foreign key constraint", "constraint", c.Name(), "error", err)
			continue
		}
		added++
		fkm.logger.Debug("Added foreign key constraint", "constraint", c.Name())
	}
	return added, nil
}

// RemoveForeignKey drops a named foreign key from a table.
func (fkm *ForeignKeyManager) RemoveForeignKey(ctx context.Context, db bun.IDB, table, constraint string) error {
	keyword := "CONSTRAINT"
	if db.Dialect().Name() == dialect.MySQL {
		keyword = "FOREIGN KEY"
	}
	_, err := db.NewRaw("ALTER TABLE ? DROP "+keyword+" ?", bun.Ident(table), bun.Ident(constraint)).Exec(ctx)
	return err
}
