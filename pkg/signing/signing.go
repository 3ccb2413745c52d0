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

// Package signing provides PEAC receipt envelope issuance.
//
// An Issuer signs schema-valid payloads into compact JWS envelopes. Before
// validation the payload's kid field is forced to the signing kid, so header
// and body kid agree by construction. Issuance fails fast: a schema or key
// error returns before any signing happens, and no partial envelope is ever
// produced.
package signing

import (
	"encoding/json"
	"fmt"

	"github.com/peacprotocol/peac/pkg/jws"
	"github.com/peacprotocol/peac/pkg/keys"
	"github.com/peacprotocol/peac/pkg/receipt"
)

// Options configures an Issuer.
type Options struct {
	// Store holds the signing keys, addressed by kid.
	Store *keys.Set
}

// Issuer signs receipt payloads into compact envelopes. It is stateless
// apart from the read-only key store and safe for concurrent use.
type Issuer struct {
	store *keys.Set
}

// NewIssuer creates an Issuer from options.
func NewIssuer(opts Options) *Issuer {
	return &Issuer{store: opts.Store}
}

// Issue validates an access receipt and signs it under kid. The payload's
// kid field is overwritten with the signing kid first.
func (i *Issuer) Issue(r *receipt.Receipt, kid string) (string, error) {
	m, err := r.ToMap()
	if err != nil {
		return "", fmt.Errorf("failed to encode receipt: %w", err)
	}
	return i.IssueMap(m, receipt.SchemaAccess, kid)
}

// IssuePurge validates a purge receipt and signs it under kid.
func (i *Issuer) IssuePurge(r *receipt.PurgeReceipt, kid string) (string, error) {
	m, err := r.ToMap()
	if err != nil {
		return "", fmt.Errorf("failed to encode purge receipt: %w", err)
	}
	return i.IssueMap(m, receipt.SchemaPurge, kid)
}

// IssueMap validates a generic payload object against the given schema and
// signs it under kid. The input map is not modified; the signed payload
// carries the forced kid.
func (i *Issuer) IssueMap(payload map[string]interface{}, schema receipt.Schema, kid string) (string, error) {
	key := i.store.Get(kid)
	if key == nil {
		return "", fmt.Errorf("signing key for %q: %w", kid, keys.ErrKeyNotFound)
	}
	if !key.CanSign() {
		return "", fmt.Errorf("key %q cannot sign: no private material", kid)
	}

	// Force header/body kid consistency before validation.
	forced := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		forced[k] = v
	}
	forced["kid"] = kid

	if err := schema.Validate(forced); err != nil {
		return "", err
	}

	body, err := json.Marshal(forced)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return jws.Sign(body, key)
}
