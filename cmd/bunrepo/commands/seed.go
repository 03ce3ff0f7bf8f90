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
	"github.com/spf13/cobra"
	"github.com/tomoncle/bunrepo/database"
)

func NewSeedCommand() *cobra.Command {
	var environment string

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Execute the SQL seed files of an environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := connect(cmd.Context()); err != nil {
				return err
			}
			defer database.CloseDB()

			if environment != "" {
				return database.InitDataWithSQL(cmd.Context(), environment)
			}
			return database.InitData(cmd.Context())
		},
	}
	seed.Flags().StringVarP(&environment, "environment", "e", "", "environment directory to seed (default: data_init_config.environment)")
	return seed
}
