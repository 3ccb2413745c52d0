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

// Package jws implements the compact JWS framing used for PEAC receipt
// envelopes: three base64url segments (protected header, payload, signature)
// joined by ".", signed with EdDSA over the standard JWS signing input. The
// output interoperates bit-exactly with other compact-JWS consumers.
package jws

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/peacprotocol/peac/internal/crypto"
	"github.com/peacprotocol/peac/pkg/keys"
)

// AlgEdDSA is the only signature algorithm the receipts protocol accepts.
const AlgEdDSA = "EdDSA"

// Header is the protected header of a receipt envelope.
type Header struct {
	Alg string `json:"alg"`
	Kid string `json:"kid,omitempty"`
}

// Parsed is the result of splitting and decoding a compact envelope. The
// signature has not been checked; SigningInput carries the exact bytes it
// must cover.
type Parsed struct {
	Header       Header
	HeaderRaw    []byte
	Payload      []byte
	Signature    []byte
	SigningInput []byte
}

// Encode encodes bytes as unpadded base64url, the segment encoding of the
// compact serialization.
func Encode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode decodes an unpadded base64url segment.
func Decode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

// Sign produces the compact serialization of payload under the given signing
// key. The protected header is exactly {"alg":"EdDSA","kid":<kid>}.
func Sign(payload []byte, key *keys.Key) (string, error) {
	seed, err := key.Seed()
	if err != nil {
		return "", err
	}

	headerBytes, err := json.Marshal(Header{Alg: AlgEdDSA, Kid: key.Kid()})
	if err != nil {
		return "", fmt.Errorf("failed to marshal header: %w", err)
	}

	signingInput := Encode(headerBytes) + "." + Encode(payload)
	sig, err := crypto.SignWithSeed(seed, []byte(signingInput))
	if err != nil {
		return "", err
	}

	return signingInput + "." + Encode(sig), nil
}

// Parse splits a compact serialization into its three segments and decodes
// them. It does not verify the signature or interpret the payload.
func Parse(compact string) (*Parsed, error) {
	parts := strings.Split(compact, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed envelope: expected 3 segments, got %d", len(parts))
	}

	headerBytes, err := Decode(parts[0])
	if err != nil {
		return nil, fmt.Errorf("malformed envelope: header segment: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("malformed envelope: header is not valid JSON: %w", err)
	}

	payload, err := Decode(parts[1])
	if err != nil {
		return nil, fmt.Errorf("malformed envelope: payload segment: %w", err)
	}

	signature, err := Decode(parts[2])
	if err != nil {
		return nil, fmt.Errorf("malformed envelope: signature segment: %w", err)
	}

	return &Parsed{
		Header:       header,
		HeaderRaw:    headerBytes,
		Payload:      payload,
		Signature:    signature,
		SigningInput: []byte(parts[0] + "." + parts[1]),
	}, nil
}

// VerifySignature checks the parsed envelope's signature against a public
// key. Malformed key material surfaces as an error; an intact key with a
// wrong signature returns (false, nil).
func (p *Parsed) VerifySignature(publicKey []byte) (bool, error) {
	return crypto.VerifySignature(publicKey, p.SigningInput, p.Signature)
}
