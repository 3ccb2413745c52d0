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
	"strings"

	"github.com/spf13/cobra"

	"github.com/peacprotocol/peac/cmd/peac/cli/options"
	"github.com/peacprotocol/peac/pkg/receipt"
	"github.com/peacprotocol/peac/pkg/tracing"
	"github.com/peacprotocol/peac/pkg/verify"
)

func Verify() *cobra.Command {
	o := &options.ExtraKeysFlags{}
	var purge bool

	cmd := &cobra.Command{
		Use:   "verify JWS_TOKEN",
		Short: "Verify a receipt envelope.",
		Long: `Verify a receipt envelope.

Checks the compact JWS envelope against the key store and the receipt
schema, and prints the full verification result as JSON. Keys from
--keys-file take precedence over the root store for this call.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ro.LoadKeys()
			if err != nil {
				return err
			}
			override, err := o.Load()
			if err != nil {
				return err
			}

			schema := receipt.SchemaAccess
			if purge {
				schema = receipt.SchemaPurge
			}

			v := verify.NewVerifier(verify.Options{Store: store, Schema: schema})
			attrs := map[string]interface{}{
				"peac.schema": schema.String(),
			}
			return tracing.Run(cmd.Context(), "Verify", attrs, func(context.Context) error {
				return options.PrintJSON(cmd, v.Verify(args[0], override))
			})
		},
	}

	o.AddFlags(cmd)
	cmd.Flags().BoolVar(&purge, "purge", false, "Verify against the purge receipt schema.")
	return cmd
}

func BulkVerify() *cobra.Command {
	o := &options.ExtraKeysFlags{}
	var file string

	cmd := &cobra.Command{
		Use:   "bulk-verify",
		Short: "Verify a batch of receipt envelopes.",
		Long: `Verify a batch of receipt envelopes.

Reads envelopes from --file (or standard input with --file -), one compact
JWS per line, blank lines skipped. Prints the aggregate result with
per-envelope outcomes in input order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := ro.LoadKeys()
			if err != nil {
				return err
			}
			override, err := o.Load()
			if err != nil {
				return err
			}

			data, err := options.ReadFileOrStdin(cmd, file)
			if err != nil {
				return err
			}
			var envelopes []string
			for _, line := range strings.Split(string(data), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					envelopes = append(envelopes, line)
				}
			}

			v := verify.NewVerifier(verify.Options{Store: store})
			attrs := map[string]interface{}{
				"peac.batch_size": len(envelopes),
			}
			return tracing.Run(cmd.Context(), "BulkVerify", attrs, func(context.Context) error {
				return options.PrintJSON(cmd, v.BulkVerify(envelopes, override))
			})
		},
	}

	o.AddFlags(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "-", "NDJSON envelope file, or - for stdin.")
	return cmd
}
