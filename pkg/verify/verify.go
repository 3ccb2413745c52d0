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

// Package verify provides PEAC receipt envelope verification.
//
// A Verifier checks a compact envelope through a fixed sequence of gates:
// structural parse, header kid presence, key resolution, signature, payload
// schema, and header/payload kid equality. Each gate maps to a distinct
// ErrorKind so callers can tell a forged signature from a malformed payload.
// Expected failures never surface as hard errors; they produce a Result with
// Valid=false and the failing kind.
package verify

import (
	"encoding/json"
	"time"

	"github.com/peacprotocol/peac/pkg/jws"
	"github.com/peacprotocol/peac/pkg/keys"
	"github.com/peacprotocol/peac/pkg/receipt"
)

// Metadata is the verification metadata block echoed in results for
// observability.
type Metadata struct {
	Signature string `json:"signature"`
	Schema    string `json:"schema,omitempty"`
	Timestamp string `json:"timestamp"`
	KeyID     string `json:"key_id,omitempty"`
}

// Result is the outcome of verifying one envelope.
type Result struct {
	Valid        bool                   `json:"valid"`
	Header       *jws.Header            `json:"header,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	Error        string                 `json:"error,omitempty"`
	ErrorKind    ErrorKind              `json:"error_kind,omitempty"`
	Verification *Metadata              `json:"verification,omitempty"`
}

// BulkResult aggregates the ordered outcomes of a bulk verification.
type BulkResult struct {
	Total   int      `json:"total"`
	Valid   int      `json:"valid"`
	Invalid int      `json:"invalid"`
	Results []Result `json:"results"`
}

// Options configures a Verifier.
type Options struct {
	// Store is the preloaded key store consulted after any per-call
	// override set. May be nil.
	Store *keys.Set
	// Schema selects the payload variant to validate. Defaults to
	// receipt.SchemaAccess.
	Schema receipt.Schema
	// Clock overrides the time source for verification timestamps. Intended
	// for tests.
	Clock func() time.Time
}

// Verifier verifies receipt envelopes against a read-only key store. It is
// stateless apart from that store and safe for concurrent use.
type Verifier struct {
	resolver *keys.Resolver
	schema   receipt.Schema
	now      func() time.Time
}

// NewVerifier creates a Verifier from options.
func NewVerifier(opts Options) *Verifier {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Verifier{
		resolver: keys.NewResolver(opts.Store),
		schema:   opts.Schema,
		now:      now,
	}
}

// Verify checks one compact envelope. The optional override set takes
// precedence over the preloaded store for key resolution, scoped to this
// call only.
func (v *Verifier) Verify(compact string, override *keys.Set) Result {
	now := v.now().UTC().Format(time.RFC3339)

	fail := func(err *Error) Result {
		return Result{
			Error:        err.Error(),
			ErrorKind:    err.Kind,
			Verification: &Metadata{Signature: "invalid", Timestamp: now},
		}
	}

	parsed, err := jws.Parse(compact)
	if err != nil {
		return fail(newError(KindStructuralParse, "failed to parse envelope", err))
	}
	if parsed.Header.Alg != jws.AlgEdDSA {
		return fail(newError(KindStructuralParse, "unsupported algorithm "+parsed.Header.Alg+" (expected EdDSA)", nil))
	}
	kid := parsed.Header.Kid
	if kid == "" {
		return fail(newError(KindStructuralParse, "missing kid in protected header", nil))
	}

	key, err := v.resolver.Resolve(kid, override)
	if err != nil {
		return fail(newError(KindKeyNotFound, "cannot resolve verification key", err))
	}

	ok, err := parsed.VerifySignature(key.Public())
	if err != nil {
		return fail(newError(KindMalformedKey, "unusable key material for "+kid, err))
	}
	if !ok {
		return fail(newError(KindSignatureInvalid, "signature invalid", nil))
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(parsed.Payload, &payload); err != nil {
		return fail(newError(KindSchemaValidation, "payload is not a JSON object", err))
	}
	if err := v.schema.Validate(payload); err != nil {
		return fail(newError(KindSchemaValidation, "payload failed schema validation", err))
	}

	payloadKid, _ := payload["kid"].(string)
	if payloadKid != kid {
		return fail(newError(KindKidMismatch,
			"kid mismatch: header="+kid+", payload="+payloadKid, nil))
	}

	header := parsed.Header
	return Result{
		Valid:   true,
		Header:  &header,
		Payload: payload,
		Verification: &Metadata{
			Signature: "valid",
			Schema:    "valid",
			Timestamp: now,
			KeyID:     kid,
		},
	}
}

// BulkVerify verifies each envelope of an ordered sequence independently.
// Results preserve input order; one invalid entry never aborts the rest.
func (v *Verifier) BulkVerify(envelopes []string, override *keys.Set) BulkResult {
	out := BulkResult{
		Total:   len(envelopes),
		Results: make([]Result, 0, len(envelopes)),
	}
	for _, env := range envelopes {
		r := v.Verify(env, override)
		if r.Valid {
			out.Valid++
		} else {
			out.Invalid++
		}
		out.Results = append(out.Results, r)
	}
	return out
}
