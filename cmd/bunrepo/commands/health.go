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

	"github.com/spf13/cobra"
	"github.com/tomoncle/bunrepo/database"
)

func NewHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Ping the database and print its health status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := connect(cmd.Context()); err != nil {
				return err
			}
			defer database.CloseDB()

			status := database.GetHealthStatus(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), status); err != nil {
				return err
			}
			if !status.Healthy {
				return fmt.Errorf("database is unhealthy: %s", status.LastError)
			}
			return nil
		},
	}
}

func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print connection pool statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := connect(cmd.Context()); err != nil {
				return err
			}
			defer database.CloseDB()
			return printJSON(cmd.OutOrStdout(), database.GetDatabaseStats())
		},
	}
}
