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
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peacprotocol/peac/cmd/peac/cli/options"
	"github.com/peacprotocol/peac/pkg/receipt"
	"github.com/peacprotocol/peac/pkg/signing"
)

func Sign() *cobra.Command {
	o := &options.KidFlags{}
	var (
		file  string
		purge bool
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a receipt as a compact JWS envelope.",
		Long: `Sign a receipt as a compact JWS envelope.

Reads a receipt payload as JSON from --file (or standard input with
--file -), validates it against the receipt schema, and prints the signed
envelope. The kid field of the payload is set from --kid; the signing key
must be in the store given by --keys.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := ro.LoadKeys()
			if err != nil {
				return err
			}

			data, err := options.ReadFileOrStdin(cmd, file)
			if err != nil {
				return fmt.Errorf("failed to read receipt: %w", err)
			}
			var payload map[string]interface{}
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("receipt is not valid JSON: %w", err)
			}

			schema := receipt.SchemaAccess
			if purge {
				schema = receipt.SchemaPurge
			}

			issuer := signing.NewIssuer(signing.Options{Store: store})
			compact, err := issuer.IssueMap(payload, schema, o.Kid)
			if err != nil {
				return err
			}
			cmd.Println(compact)
			return nil
		},
	}

	o.AddFlags(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "Receipt JSON file, or - for stdin. [required]")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().BoolVar(&purge, "purge", false, "Sign a purge receipt instead of an access receipt.")
	return cmd
}
