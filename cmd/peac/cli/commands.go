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

// Package cli assembles the peac command tree: key generation, receipt
// signing and verification, nonce-bound message signing, policy discovery,
// and the receipts service.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/peacprotocol/peac/cmd/peac/cli/options"
)

var ro = &options.RootOptions{}

// New builds the root peac command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "peac",
		Short:             "PEAC receipt signing and verification.",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
	ro.AddFlags(cmd)

	cmd.AddCommand(Keygen())
	cmd.AddCommand(Sign())
	cmd.AddCommand(Verify())
	cmd.AddCommand(BulkVerify())
	cmd.AddCommand(SignMessage())
	cmd.AddCommand(VerifyMessage())
	cmd.AddCommand(Discover())
	cmd.AddCommand(Serve())
	return cmd
}
