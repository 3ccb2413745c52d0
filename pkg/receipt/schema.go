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

package receipt

import (
	"fmt"
	"strings"
)

// Schema selects which payload variant to validate against.
type Schema int

const (
	// SchemaAccess is the access receipt schema (subject, aipref,
	// enforcement, issued_at, kid).
	SchemaAccess Schema = iota
	// SchemaPurge is the purge receipt schema (subject, corpus, issued_at,
	// kid).
	SchemaPurge
)

// String returns the schema name.
func (s Schema) String() string {
	if s == SchemaPurge {
		return "purge"
	}
	return "access"
}

// SchemaError reports the offending fields of a payload that failed schema
// validation.
type SchemaError struct {
	// Schema is the variant the payload was validated against.
	Schema Schema
	// Fields lists the missing or wrongly typed fields, in schema order.
	Fields []string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid %s receipt schema: missing or invalid field(s): %s",
		e.Schema, strings.Join(e.Fields, ", "))
}

// fieldRule is one required or optional field check.
type fieldRule struct {
	name     string
	required bool
	check    func(v interface{}) bool
}

func isObject(v interface{}) bool {
	_, ok := v.(map[string]interface{})
	return ok
}

func isNonEmptyString(v interface{}) bool {
	s, ok := v.(string)
	return ok && s != ""
}

var accessRules = []fieldRule{
	{name: "subject", required: true, check: isObject},
	{name: "aipref", required: true, check: isObject},
	{name: "enforcement", required: true, check: isObject},
	{name: "issued_at", required: true, check: isNonEmptyString},
	{name: "kid", required: true, check: isNonEmptyString},
	{name: "payment", check: isObject},
	{name: "ext", check: isObject},
}

var purgeRules = []fieldRule{
	{name: "subject", required: true, check: isObject},
	{name: "corpus", required: true, check: isNonEmptyString},
	{name: "issued_at", required: true, check: isNonEmptyString},
	{name: "kid", required: true, check: isNonEmptyString},
	{name: "erasure_basis", check: isNonEmptyString},
	{name: "ext", check: isObject},
}

// Validate checks a generic JSON payload object against the schema. It
// returns a *SchemaError naming every missing or invalid field, or nil when
// the payload conforms. Unknown fields are permitted.
func (s Schema) Validate(payload map[string]interface{}) error {
	rules := accessRules
	if s == SchemaPurge {
		rules = purgeRules
	}

	var bad []string
	for _, rule := range rules {
		v, present := payload[rule.name]
		if !present || v == nil {
			if rule.required {
				bad = append(bad, rule.name)
			}
			continue
		}
		if !rule.check(v) {
			bad = append(bad, rule.name)
		}
	}

	if len(bad) > 0 {
		return &SchemaError{Schema: s, Fields: bad}
	}
	return nil
}
