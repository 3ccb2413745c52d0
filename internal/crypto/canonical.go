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

// Package crypto provides internal cryptographic operations for PEAC receipts.
//
// This package contains the low-level Ed25519 primitives and canonical byte
// construction used by the signing and verification implementations. External
// consumers should use the higher-level APIs in pkg/signature, pkg/signing
// and pkg/verify instead.
package crypto

import "strconv"

// CanonicalNonceMessage computes the canonical signing bytes for the
// nonce-bound message scheme: the UTF-8 concatenation of the message, the
// nonce, and the decimal string form of the millisecond timestamp, in that
// order, with no separators.
//
// The encoding is not injective: a (message, nonce) pair can in theory share
// canonical bytes with a different split. This matches the reference wire
// format; adding separators would break compatibility with existing signers.
func CanonicalNonceMessage(message, nonce string, timestampMillis int64) []byte {
	buf := make([]byte, 0, len(message)+len(nonce)+20)
	buf = append(buf, message...)
	buf = append(buf, nonce...)
	buf = strconv.AppendInt(buf, timestampMillis, 10)
	return buf
}
