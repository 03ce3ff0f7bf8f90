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
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tomoncle/bunrepo/database"
)

func NewMigrateCommand() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer database.CloseDB()

			if err := manager.RunMigrations(cmd.Context()); err != nil {
				return err
			}
			log.Info("Migrations applied")
			return nil
		},
	}
	migrate.AddCommand(newMigrateStatusCommand())
	return migrate
}

func newMigrateStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer database.CloseDB()

			session, err := manager.NewSession()
			if err != nil {
				return err
			}
			mm := database.NewMigrationManager(session, database.GetLogger())
			defer mm.Close()

			applied, err := mm.GetAppliedMigrations(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read applied migrations: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED AT")
			for _, m := range applied {
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}
