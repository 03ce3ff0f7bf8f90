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

package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tomoncle/bunrepo/database"
)

func NewForeignKeyCommand() *cobra.Command {
	fk := &cobra.Command{
		Use:   "fk",
		Short: "Inspect the foreign key configuration",
	}
	fk.AddCommand(newForeignKeyValidateCommand(), newForeignKeyExportCommand())
	return fk
}

func loadForeignKeys(from string) (*database.ForeignKeyManager, error) {
	if from == "" {
		from = cfg.DataMigrateConfig.ForeignKeyFile
	}
	if from == "" {
		return nil, fmt.Errorf("no foreign key file configured, use --from")
	}
	return database.LoadForeignKeyManager(database.GetLogger(), from)
}

func newForeignKeyValidateCommand() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the foreign key file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fkm, err := loadForeignKeys(from)
			if err != nil {
				return err
			}
			if errs := fkm.ValidateConstraints(); len(errs) > 0 {
				return errors.Join(errs...)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d constraint(s) valid\n", len(fkm.Constraints()))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "foreign key file (default: data_migrate_config.foreign_key_file)")
	return cmd
}

func newForeignKeyExportCommand() *cobra.Command {
	var from, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the validated foreign keys, with descriptions, to a new file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fkm, err := loadForeignKeys(from)
			if err != nil {
				return err
			}
			if errs := fkm.ValidateConstraints(); len(errs) > 0 {
				return errors.Join(errs...)
			}
			if err := fkm.ExportToConfig(output); err != nil {
				return err
			}
			log.WithField("output", output).WithField("constraints", len(fkm.Constraints())).Info("Foreign keys exported")
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "foreign key file (default: data_migrate_config.foreign_key_file)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
