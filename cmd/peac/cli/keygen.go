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
	"os"

	"github.com/spf13/cobra"

	"github.com/peacprotocol/peac/cmd/peac/cli/options"
	"github.com/peacprotocol/peac/pkg/keys"
)

func Keygen() *cobra.Command {
	o := &options.KidFlags{}
	var output string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 keypair.",
		Long: `Generate an Ed25519 keypair.

The keypair is printed as JSON with both the private and the public key in
the key-store descriptor format, so either half can be pasted into a key
store file directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := keys.Generate(o.Kid)
			if err != nil {
				return err
			}

			result := map[string]interface{}{
				"kid":         o.Kid,
				"private_key": k.Descriptor(true),
				"public_key":  k.Descriptor(false),
			}

			if output != "" {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, append(data, '\n'), 0o600); err != nil {
					return fmt.Errorf("failed to write keypair: %w", err)
				}
				cmd.Printf("keypair saved to %s\n", output)
				return nil
			}
			return options.PrintJSON(cmd, result)
		},
	}

	o.AddFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout).")
	return cmd
}
