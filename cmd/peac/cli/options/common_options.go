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

package options

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/peacprotocol/peac/pkg/keys"
	"github.com/peacprotocol/peac/pkg/utils"
)

// FlagAdder is implemented by any flag group that can register itself to a cobra command.
type FlagAdder interface {
	AddFlags(cmd *cobra.Command)
}

// KidFlags contains the key-identifier flag shared by signing commands.
type KidFlags struct {
	// Kid selects the signing key from the store.
	Kid string
}

// AddFlags adds the kid flag to the cobra command.
func (o *KidFlags) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Kid, "kid", "i", "", "Key identifier for signing. [required]")
	_ = cmd.MarkFlagRequired("kid")
}

// ExtraKeysFlags contains the per-call key store flag verification commands
// share. Keys from this file take precedence over the root store.
type ExtraKeysFlags struct {
	// KeysFile is a path to an additional JSON key store.
	KeysFile string
}

// AddFlags adds the extra-keys flag to the cobra command.
func (o *ExtraKeysFlags) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.KeysFile, "keys-file", "", "Additional keys file for verification.")
	_ = cmd.MarkFlagFilename("keys-file", "json")
}

// Load reads the additional key store, or returns nil when the flag is
// unset.
func (o *ExtraKeysFlags) Load() (*keys.Set, error) {
	if o.KeysFile == "" {
		return nil, nil
	}
	if err := utils.ValidateFileExists("keys file", o.KeysFile); err != nil {
		return nil, err
	}
	return keys.LoadSet(o.KeysFile)
}

// AddAllFlags is a helper function to register multiple flag groups at once.
func AddAllFlags(cmd *cobra.Command, flagGroups ...FlagAdder) {
	for _, fg := range flagGroups {
		fg.AddFlags(cmd)
	}
}

// PrintJSON writes v to the command's output as indented JSON.
func PrintJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}

// ReadFileOrStdin reads the named file, or standard input when path is "-".
func ReadFileOrStdin(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
