// Copyright 2025 The PEAC Protocol Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/peacprotocol/peac/internal/server"
	"github.com/peacprotocol/peac/pkg/keys"
	"github.com/peacprotocol/peac/pkg/logging"
	"github.com/peacprotocol/peac/pkg/utils"
)

func Serve() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the receipts HTTP service.",
		Long: `Run the receipts HTTP service.

Serves receipt issuance, verification, bulk verification, and purge
issuance over JSON, plus health and metrics endpoints. Configuration comes
from an optional YAML file (--config) with PEAC_-prefixed environment
variables taking precedence; the root --keys flag overrides the key store
path from the config. The service drains in-flight requests on SIGINT or
SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := utils.ValidateOptionalFile("config file", configPath); err != nil {
				return err
			}
			cfg, err := server.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if ro.KeysFile != "" {
				cfg.KeysFile = ro.KeysFile
			}

			store, err := keys.NewSet()
			if err != nil {
				return err
			}
			if cfg.KeysFile != "" {
				if store, err = keys.LoadSet(cfg.KeysFile); err != nil {
					return err
				}
			}

			log := logging.New(logging.Options{
				Level:  logging.ParseLevel(cfg.LogLevel),
				Format: logging.ParseFormat(cfg.LogFormat),
			})

			s, err := server.New(server.Options{Config: cfg, Store: store, Logger: log})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return s.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the YAML service config.")
	_ = cmd.MarkFlagFilename("config", "yaml", "yml")
	return cmd
}
