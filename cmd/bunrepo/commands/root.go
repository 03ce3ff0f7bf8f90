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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tomoncle/bunrepo/database"
	"github.com/tomoncle/bunrepo/utils"
)

var (
	configPath string
	envFile    string
	logLevel   string

	cfg *database.Config
	log = utils.NewLogger("CLI")
)

// NewRootCommand builds the bunrepo command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "bunrepo",
		Short:         "Database management cli",
		Long:          `bunrepo runs migrations and seeds, and reports health and pool statistics for a configured database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
			if logLevel != "" {
				utils.ConfigureLogLevel(logLevel)
			}

			loaded, err := database.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/database.yaml", "database config file (yaml, json or toml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level of every logger (debug, info, warn, error)")

	root.AddCommand(
		NewMigrateCommand(),
		NewSeedCommand(),
		NewHealthCommand(),
		NewStatsCommand(),
		NewForeignKeyCommand(),
	)
	return root
}

// Logger returns the cli logger.
func Logger() *logrus.Logger {
	return log
}

// connect initializes the global database from the loaded config without
// running migrations.
func connect(ctx context.Context) (database.AbstractDatabaseManager, error) {
	if _, err := database.InitDatabaseWithOptions(ctx, cfg, false); err != nil {
		return nil, err
	}
	return database.GetDatabaseManager(), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
