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

package verify

import (
	"github.com/peacprotocol/peac/pkg/nonce"
	"github.com/peacprotocol/peac/pkg/signature"
)

// MessageVerifier verifies nonce-bound signed messages and enforces replay
// protection through an injected nonce cache. The cache is shared, owned by
// the caller; the verifier never creates one implicitly.
type MessageVerifier struct {
	cache *nonce.Cache
}

// NewMessageVerifier creates a MessageVerifier over the given replay ledger.
func NewMessageVerifier(cache *nonce.Cache) *MessageVerifier {
	return &MessageVerifier{cache: cache}
}

// Verify checks the message's signature against publicKey and then admits
// its nonce. The signature gate runs first so forged traffic cannot poison
// the ledger. Returns nil on success, or an *Error of kind MalformedKey,
// SignatureInvalid, or ReplayRejected.
func (m *MessageVerifier) Verify(msg signature.SignedMessage, publicKey []byte) error {
	ok, err := signature.Verify(msg.Message, msg.Signature, publicKey, msg.Nonce, msg.TimestampMillis)
	if err != nil {
		return newError(KindMalformedKey, "unusable key material", err)
	}
	if !ok {
		return newError(KindSignatureInvalid, "signature invalid", nil)
	}
	if !m.cache.Admit(msg.Nonce, msg.TimestampMillis) {
		return newError(KindReplayRejected, "nonce replayed or timestamp outside freshness window", nil)
	}
	return nil
}
