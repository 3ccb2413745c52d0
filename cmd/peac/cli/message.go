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
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/peacprotocol/peac/cmd/peac/cli/options"
	"github.com/peacprotocol/peac/pkg/keys"
	"github.com/peacprotocol/peac/pkg/nonce"
	"github.com/peacprotocol/peac/pkg/signature"
	"github.com/peacprotocol/peac/pkg/verify"
)

func SignMessage() *cobra.Command {
	o := &options.KidFlags{}
	var (
		nonceVal  string
		timestamp int64
	)

	cmd := &cobra.Command{
		Use:   "sign-message MESSAGE",
		Short: "Sign a message bound to a nonce and timestamp.",
		Long: `Sign a message bound to a nonce and timestamp.

Produces an Ed25519 signature over the message, a nonce, and a millisecond
timestamp. The nonce defaults to a random UUID and the timestamp to now;
both are printed alongside the signature so the message can be verified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ro.LoadKeys()
			if err != nil {
				return err
			}
			key := store.Get(o.Kid)
			if key == nil {
				return fmt.Errorf("%w: %s", keys.ErrKeyNotFound, o.Kid)
			}
			seed, err := key.Seed()
			if err != nil {
				return err
			}

			if nonceVal == "" {
				nonceVal = uuid.NewString()
			}
			if timestamp == 0 {
				timestamp = time.Now().UnixMilli()
			}

			sig, err := signature.SignBase64(args[0], seed, nonceVal, timestamp)
			if err != nil {
				return err
			}
			return options.PrintJSON(cmd, map[string]interface{}{
				"message":   args[0],
				"nonce":     nonceVal,
				"timestamp": timestamp,
				"signature": sig,
				"kid":       o.Kid,
			})
		},
	}

	o.AddFlags(cmd)
	cmd.Flags().StringVar(&nonceVal, "nonce", "", "Nonce to bind (default: random UUID).")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "Millisecond timestamp to bind (default: now).")
	return cmd
}

func VerifyMessage() *cobra.Command {
	var (
		kid       string
		nonceVal  string
		timestamp int64
		sigB64    string
	)

	cmd := &cobra.Command{
		Use:   "verify-message MESSAGE",
		Short: "Verify a nonce-bound message signature.",
		Long: `Verify a nonce-bound message signature.

Checks the Ed25519 signature over the message, nonce, and timestamp against
the public key named by --kid, and enforces the freshness window on the
timestamp. Note that replay protection spans a single invocation only; a
long-lived verifier shares one nonce ledger across checks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ro.LoadKeys()
			if err != nil {
				return err
			}
			key := store.Get(kid)
			if key == nil {
				return fmt.Errorf("%w: %s", keys.ErrKeyNotFound, kid)
			}

			sig, err := base64.StdEncoding.DecodeString(sigB64)
			if err != nil {
				return fmt.Errorf("signature is not valid base64: %w", err)
			}

			mv := verify.NewMessageVerifier(nonce.NewCache())
			verr := mv.Verify(signature.SignedMessage{
				Message:         args[0],
				Nonce:           nonceVal,
				TimestampMillis: timestamp,
				Signature:       sig,
			}, key.Public())

			result := map[string]interface{}{"valid": verr == nil}
			if verr != nil {
				result["error"] = verr.Error()
			}
			return options.PrintJSON(cmd, result)
		},
	}

	cmd.Flags().StringVarP(&kid, "kid", "i", "", "Key identifier of the public key. [required]")
	_ = cmd.MarkFlagRequired("kid")
	cmd.Flags().StringVar(&nonceVal, "nonce", "", "Nonce the signature binds. [required]")
	_ = cmd.MarkFlagRequired("nonce")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "Millisecond timestamp the signature binds. [required]")
	_ = cmd.MarkFlagRequired("timestamp")
	cmd.Flags().StringVarP(&sigB64, "signature", "s", "", "Base64 signature to check. [required]")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}
