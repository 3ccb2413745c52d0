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

// Package keys provides Ed25519 key material for PEAC receipts: key
// generation, a JSON key-store loader, and kid-based resolution.
//
// A Key addressed by its kid carries the 32-byte public key and, for
// signing-capable keys, the 32-byte private seed. Keys and key sets are
// immutable once constructed; key rotation is modeled as building a new set,
// never mutating an existing one.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/peacprotocol/peac/internal/crypto"
)

// KeyType is the only key type the receipts protocol uses.
const KeyType = "Ed25519-OKP"

// ErrKeyNotFound is returned when a kid cannot be resolved.
var ErrKeyNotFound = errors.New("key not found")

// Key is one Ed25519 key pair or public key, addressed by kid.
type Key struct {
	kid    string
	public ed25519.PublicKey
	seed   []byte
}

// NewVerificationKey builds a verification-only Key from a kid and a 32-byte
// public key.
func NewVerificationKey(kid string, publicKey []byte) (*Key, error) {
	if kid == "" {
		return nil, fmt.Errorf("key ID is required")
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("malformed public key for %q: expected %d bytes, got %d",
			kid, ed25519.PublicKeySize, len(publicKey))
	}
	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pub, publicKey)
	return &Key{kid: kid, public: pub}, nil
}

// NewSigningKey builds a signing-capable Key from a kid and a 32-byte private
// seed. The public key is derived from the seed.
func NewSigningKey(kid string, seed []byte) (*Key, error) {
	if kid == "" {
		return nil, fmt.Errorf("key ID is required")
	}
	pub, err := crypto.PublicKeyFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("signing key %q: %w", kid, err)
	}
	s := make([]byte, ed25519.SeedSize)
	copy(s, seed)
	return &Key{kid: kid, public: pub, seed: s}, nil
}

// Generate creates a fresh Ed25519 signing key addressed by kid.
func Generate(kid string) (*Key, error) {
	if kid == "" {
		return nil, fmt.Errorf("key ID is required")
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return NewSigningKey(kid, priv.Seed())
}

// Kid returns the key identifier.
func (k *Key) Kid() string { return k.kid }

// Public returns the 32-byte public key.
func (k *Key) Public() ed25519.PublicKey { return k.public }

// CanSign reports whether the key carries a private seed.
func (k *Key) CanSign() bool { return len(k.seed) == ed25519.SeedSize }

// Seed returns the 32-byte private seed, or an error for verification-only
// keys.
func (k *Key) Seed() ([]byte, error) {
	if !k.CanSign() {
		return nil, fmt.Errorf("key %q has no private material", k.kid)
	}
	return k.seed, nil
}

// b64url is the unpadded base64url encoding used for JWK octet fields.
var b64url = base64.RawURLEncoding

// Descriptor is the JSON wire form of a key-store entry, a minimal JWK for
// an Ed25519 OKP key. D is present only for signing-capable keys.
type Descriptor struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	Kid string `json:"kid,omitempty"`
	X   string `json:"x"`
	D   string `json:"d,omitempty"`
}

// Matches reports whether the descriptor names an Ed25519 OKP key. Loaders
// skip entries for which this is false.
func (d Descriptor) Matches() bool {
	return d.Kty == "OKP" && d.Crv == "Ed25519"
}

// FromDescriptor builds a Key from a key-store entry. The kid argument wins
// over any kid inside the descriptor.
func FromDescriptor(kid string, d Descriptor) (*Key, error) {
	if !d.Matches() {
		return nil, fmt.Errorf("key %q: unsupported type %s/%s (want OKP/Ed25519)", kid, d.Kty, d.Crv)
	}
	if d.D != "" {
		seed, err := b64url.DecodeString(d.D)
		if err != nil {
			return nil, fmt.Errorf("key %q: invalid private key encoding: %w", kid, err)
		}
		return NewSigningKey(kid, seed)
	}
	if d.X == "" {
		return nil, fmt.Errorf("key %q: missing public key", kid)
	}
	pub, err := b64url.DecodeString(d.X)
	if err != nil {
		return nil, fmt.Errorf("key %q: invalid public key encoding: %w", kid, err)
	}
	return NewVerificationKey(kid, pub)
}

// Descriptor returns the JSON wire form of the key. When includePrivate is
// true and the key can sign, the seed is included in the d field.
func (k *Key) Descriptor(includePrivate bool) Descriptor {
	d := Descriptor{
		Kty: "OKP",
		Crv: "Ed25519",
		Kid: k.kid,
		X:   b64url.EncodeToString(k.public),
	}
	if includePrivate && k.CanSign() {
		d.D = b64url.EncodeToString(k.seed)
	}
	return d
}
