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

// Package receipt defines the PEAC receipt payload shapes and their schema
// validation. Two payload variants exist: the access receipt (subject,
// aipref, enforcement) attesting a content-access event, and the purge
// receipt (subject, corpus, erasure basis) attesting a content-purge event.
package receipt

import (
	"encoding/json"
	"time"
)

// Receipt is an access receipt payload. Subject describes the accessed
// resource, AIPref the AI-preference/consent terms, Enforcement the
// enforcement outcome. Payment and Ext are free-form extensions.
type Receipt struct {
	Subject     map[string]interface{} `json:"subject"`
	AIPref      map[string]interface{} `json:"aipref"`
	Enforcement map[string]interface{} `json:"enforcement"`
	IssuedAt    string                 `json:"issued_at"`
	Kid         string                 `json:"kid"`
	Payment     map[string]interface{} `json:"payment,omitempty"`
	Ext         map[string]interface{} `json:"ext,omitempty"`
}

// PurgeReceipt is a purge receipt payload: an attestation that subject was
// erased from the named corpus, optionally citing the legal erasure basis
// (gdpr, ccpa, contractual, other).
type PurgeReceipt struct {
	Subject      map[string]interface{} `json:"subject"`
	Corpus       string                 `json:"corpus"`
	ErasureBasis string                 `json:"erasure_basis,omitempty"`
	IssuedAt     string                 `json:"issued_at"`
	Kid          string                 `json:"kid"`
	Ext          map[string]interface{} `json:"ext,omitempty"`
}

// Now returns the current time formatted as the issued_at timestamp.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ToMap converts the receipt to its generic JSON object form.
func (r *Receipt) ToMap() (map[string]interface{}, error) {
	return toMap(r)
}

// ToMap converts the purge receipt to its generic JSON object form.
func (r *PurgeReceipt) ToMap() (map[string]interface{}, error) {
	return toMap(r)
}

func toMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
