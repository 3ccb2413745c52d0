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
	"context"

	"github.com/spf13/cobra"

	"github.com/peacprotocol/peac/cmd/peac/cli/options"
	"github.com/peacprotocol/peac/pkg/discovery"
)

func Discover() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover ORIGIN",
		Short: "Fetch an origin's well-known peac.txt policy.",
		Long: `Fetch an origin's well-known peac.txt policy.

Requests {ORIGIN}/.well-known/peac.txt, parses the key:value fields, and
prints the parsed policy as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), ro.Timeout)
			defer cancel()

			doc, err := discovery.NewClient(discovery.Options{}).Discover(ctx, args[0])
			if err != nil {
				return err
			}
			return options.PrintJSON(cmd, doc)
		},
	}
	return cmd
}
