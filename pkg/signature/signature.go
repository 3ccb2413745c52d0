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

// Package signature implements the low-level nonce-bound signing scheme: an
// Ed25519 signature over the canonical concatenation of a message, a nonce,
// and a millisecond timestamp. The scheme carries no key identifier; key
// selection is the caller's responsibility. Replay protection is layered on
// separately through pkg/nonce.
package signature

import (
	"encoding/base64"

	"github.com/peacprotocol/peac/internal/crypto"
)

// SignedMessage bundles the fields of one nonce-bound signature. The
// signature covers message || nonce || decimal(timestampMillis) exactly.
type SignedMessage struct {
	Message         string `json:"message"`
	Nonce           string `json:"nonce"`
	TimestampMillis int64  `json:"timestamp"`
	Signature       []byte `json:"-"`
}

// Sign signs message bound to nonce and timestampMillis with a 32-byte
// Ed25519 seed. Returns the 64-byte raw signature. A wrong-length seed is an
// error.
func Sign(message string, seed []byte, nonce string, timestampMillis int64) ([]byte, error) {
	canonical := crypto.CanonicalNonceMessage(message, nonce, timestampMillis)
	return crypto.SignWithSeed(seed, canonical)
}

// Verify checks a 64-byte signature over message bound to nonce and
// timestampMillis against a 32-byte public key. Malformed key or signature
// lengths are an error; a well-formed signature that does not match returns
// (false, nil).
func Verify(message string, sig []byte, publicKey []byte, nonce string, timestampMillis int64) (bool, error) {
	canonical := crypto.CanonicalNonceMessage(message, nonce, timestampMillis)
	return crypto.VerifySignature(publicKey, canonical, sig)
}

// SignBase64 is Sign with the signature returned in standard base64, the
// transport encoding the reference implementation uses for this scheme.
func SignBase64(message string, seed []byte, nonce string, timestampMillis int64) (string, error) {
	sig, err := Sign(message, seed, nonce, timestampMillis)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyBase64 is Verify for a standard-base64 signature. An undecodable
// signature string verifies as false without error, matching how a wrong
// signature of the right shape behaves.
func VerifyBase64(message, sigB64 string, publicKey []byte, nonce string, timestampMillis int64) (bool, error) {
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false, nil
	}
	return Verify(message, sig, publicKey, nonce, timestampMillis)
}
