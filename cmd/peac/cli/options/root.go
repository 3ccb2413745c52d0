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

// Package options defines the command-line options and flags for the peac
// CLI. It provides option structures for the root command and the flag
// groups subcommands share.
package options

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/peacprotocol/peac/pkg/keys"
	"github.com/peacprotocol/peac/pkg/logging"
	"github.com/peacprotocol/peac/pkg/utils"
)

// EnvPrefix is the prefix used for environment variables that configure the CLI.
const EnvPrefix = "PEAC"

// DefaultTimeout specifies the default timeout duration for commands.
const DefaultTimeout = 3 * time.Minute

// RootOptions defines flags and options for the root CLI command.
// These options are available globally across all subcommands.
type RootOptions struct {
	// KeysFile is the path to the JSON Ed25519 key store.
	KeysFile string
	// LogLevel sets the minimum log level (debug, info, warn, error, silent).
	LogLevel string
	// LogFormat sets the log output format (text, json).
	LogFormat string
	// Timeout sets the maximum duration for command execution.
	Timeout time.Duration
}

// ValidLogLevels lists the valid log level strings.
var ValidLogLevels = []string{"debug", "info", "warn", "error", "silent"}

// ValidLogFormats lists the valid log format strings.
var ValidLogFormats = []string{"text", "json"}

// AddFlags adds root-level flags to the cobra command.
func (o *RootOptions) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&o.KeysFile, "keys", "k", "",
		"path to the JSON key store")
	_ = cmd.MarkFlagFilename("keys", "json")

	cmd.PersistentFlags().StringVar(&o.LogLevel, "log-level", "info",
		"set the minimum log level (debug, info, warn, error, silent)")

	cmd.PersistentFlags().StringVar(&o.LogFormat, "log-format", "text",
		"set the log output format (text, json)")

	cmd.PersistentFlags().DurationVarP(&o.Timeout, "timeout", "t", DefaultTimeout,
		"timeout for commands")
}

// NewLogger creates a logger based on the root options.
func (o *RootOptions) NewLogger() logging.Logger {
	return logging.New(logging.Options{
		Level:  logging.ParseLevel(o.LogLevel),
		Format: logging.ParseFormat(o.LogFormat),
	})
}

// LoadKeys loads the key store named by --keys. Without the flag it returns
// an empty store, so commands that can take keys per call still work.
func (o *RootOptions) LoadKeys() (*keys.Set, error) {
	if o.KeysFile == "" {
		return keys.NewSet()
	}
	if err := utils.ValidateFileExists("keys file", o.KeysFile); err != nil {
		return nil, err
	}
	return keys.LoadSet(o.KeysFile)
}
