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
	"encoding/json"
	"strings"
	"testing"

	"github.com/peacprotocol/peac/pkg/jws"
	"github.com/peacprotocol/peac/pkg/keys"
	"github.com/peacprotocol/peac/pkg/receipt"
	"github.com/peacprotocol/peac/pkg/signing"
)

// fixture bundles an issuer and verifier sharing one signing key.
type fixture struct {
	key      *keys.Key
	issuer   *signing.Issuer
	verifier *Verifier
}

func newFixture(t *testing.T, kid string) *fixture {
	t.Helper()
	k, err := keys.Generate(kid)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	set, err := keys.NewSet(k)
	if err != nil {
		t.Fatalf("Failed to build key set: %v", err)
	}
	return &fixture{
		key:      k,
		issuer:   signing.NewIssuer(signing.Options{Store: set}),
		verifier: NewVerifier(Options{Store: set}),
	}
}

func (f *fixture) issue(t *testing.T) string {
	t.Helper()
	compact, err := f.issuer.Issue(&receipt.Receipt{
		Subject:     map[string]interface{}{"uri": "https://example.com/a"},
		AIPref:      map[string]interface{}{"status": "allowed"},
		Enforcement: map[string]interface{}{"outcome": "granted"},
		IssuedAt:    receipt.Now(),
	}, f.key.Kid())
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	return compact
}

func TestVerify_RoundTrip(t *testing.T) {
	f := newFixture(t, "k1")
	compact := f.issue(t)

	r := f.verifier.Verify(compact, nil)
	if !r.Valid {
		t.Fatalf("round trip invalid: %s", r.Error)
	}
	if r.Header == nil || r.Header.Kid != "k1" {
		t.Errorf("header = %+v, want kid k1", r.Header)
	}
	if r.Payload["kid"] != "k1" {
		t.Errorf("payload kid = %v, want k1", r.Payload["kid"])
	}
	if r.Verification == nil {
		t.Fatal("missing verification metadata")
	}
	if r.Verification.Signature != "valid" || r.Verification.Schema != "valid" {
		t.Errorf("metadata = %+v, want signature/schema valid", r.Verification)
	}
	if r.Verification.KeyID != "k1" {
		t.Errorf("metadata key_id = %q, want k1", r.Verification.KeyID)
	}
	if r.Verification.Timestamp == "" {
		t.Error("metadata timestamp empty")
	}
}

func TestVerify_StructuralParse(t *testing.T) {
	f := newFixture(t, "k1")

	tests := []struct {
		name    string
		compact string
	}{
		{"two segments", "abc.def"},
		{"empty", ""},
		{"garbage base64", "!!!.???.###"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := f.verifier.Verify(tt.compact, nil)
			if r.Valid {
				t.Fatal("malformed envelope verified")
			}
			if r.ErrorKind != KindStructuralParse {
				t.Errorf("kind = %v, want StructuralParseError", r.ErrorKind)
			}
		})
	}
}

func TestVerify_MissingKid(t *testing.T) {
	f := newFixture(t, "k1")

	// Envelope with a kid-less header, signed correctly otherwise.
	header := jws.Encode([]byte(`{"alg":"EdDSA"}`))
	payload := jws.Encode([]byte(`{}`))
	compact := header + "." + payload + "." + jws.Encode(make([]byte, 64))

	r := f.verifier.Verify(compact, nil)
	if r.Valid {
		t.Fatal("kid-less envelope verified")
	}
	if r.ErrorKind != KindStructuralParse {
		t.Errorf("kind = %v, want StructuralParseError", r.ErrorKind)
	}
	if !strings.Contains(r.Error, "kid") {
		t.Errorf("error %q does not mention kid", r.Error)
	}
}

func TestVerify_UnknownKid(t *testing.T) {
	f := newFixture(t, "k1")
	compact := f.issue(t)

	empty := NewVerifier(Options{})
	r := empty.Verify(compact, nil)
	if r.Valid {
		t.Fatal("verified without any key store")
	}
	if r.ErrorKind != KindKeyNotFound {
		t.Errorf("kind = %v, want KeyNotFoundError", r.ErrorKind)
	}
}

func TestVerify_TamperedSignatureSegment(t *testing.T) {
	f := newFixture(t, "k1")
	compact := f.issue(t)

	// Flip one character of the signature segment.
	idx := strings.LastIndex(compact, ".") + 1
	flipped := byte('A')
	if compact[idx] == 'A' {
		flipped = 'B'
	}
	tampered := compact[:idx] + string(flipped) + compact[idx+1:]

	r := f.verifier.Verify(tampered, nil)
	if r.Valid {
		t.Fatal("tampered signature verified")
	}
	if r.ErrorKind != KindSignatureInvalid {
		t.Errorf("kind = %v, want SignatureInvalidError", r.ErrorKind)
	}
	if r.Verification == nil || r.Verification.Signature != "invalid" {
		t.Errorf("metadata = %+v, want signature invalid", r.Verification)
	}
}

// TestVerify_PayloadEditWithoutResign pins the gate order: an edited payload
// invalidates the signature before any schema or kid comparison runs.
func TestVerify_PayloadEditWithoutResign(t *testing.T) {
	f := newFixture(t, "k1")
	compact := f.issue(t)

	parts := strings.Split(compact, ".")
	payload, err := jws.Decode(parts[1])
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	edited := strings.Replace(string(payload), `"kid":"k1"`, `"kid":"k2"`, 1)
	parts[1] = jws.Encode([]byte(edited))

	r := f.verifier.Verify(strings.Join(parts, "."), nil)
	if r.Valid {
		t.Fatal("edited payload verified")
	}
	if r.ErrorKind != KindSignatureInvalid {
		t.Errorf("kind = %v, want SignatureInvalidError (signature gate precedes kid gate)", r.ErrorKind)
	}
}

// TestVerify_KidMismatch re-signs a payload whose kid disagrees with the
// header, so the signature is intact and the mismatch gate is reached.
func TestVerify_KidMismatch(t *testing.T) {
	f := newFixture(t, "k1")

	payload, err := json.Marshal(map[string]interface{}{
		"subject":     map[string]interface{}{"uri": "https://example.com/a"},
		"aipref":      map[string]interface{}{"status": "allowed"},
		"enforcement": map[string]interface{}{"outcome": "granted"},
		"issued_at":   receipt.Now(),
		"kid":         "someone-else",
	})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	compact, err := jws.Sign(payload, f.key)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	r := f.verifier.Verify(compact, nil)
	if r.Valid {
		t.Fatal("kid-mismatched envelope verified")
	}
	if r.ErrorKind != KindKidMismatch {
		t.Errorf("kind = %v, want KidMismatchError (not SignatureInvalidError)", r.ErrorKind)
	}
}

func TestVerify_SchemaInvalidPayload(t *testing.T) {
	f := newFixture(t, "k1")

	payload, err := json.Marshal(map[string]interface{}{
		"subject": map[string]interface{}{"uri": "https://example.com/a"},
		"kid":     "k1",
	})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	compact, err := jws.Sign(payload, f.key)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	r := f.verifier.Verify(compact, nil)
	if r.Valid {
		t.Fatal("schema-invalid envelope verified")
	}
	if r.ErrorKind != KindSchemaValidation {
		t.Errorf("kind = %v, want SchemaValidationError", r.ErrorKind)
	}
	for _, field := range []string{"aipref", "enforcement", "issued_at"} {
		if !strings.Contains(r.Error, field) {
			t.Errorf("error %q does not name %q", r.Error, field)
		}
	}
}

func TestVerify_OverrideKeySet(t *testing.T) {
	f := newFixture(t, "k1")
	compact := f.issue(t)

	// A verifier with no store succeeds when the key arrives per call.
	pubOnly, err := keys.NewVerificationKey("k1", f.key.Public())
	if err != nil {
		t.Fatalf("NewVerificationKey() error: %v", err)
	}
	override, err := keys.NewSet(pubOnly)
	if err != nil {
		t.Fatalf("NewSet() error: %v", err)
	}

	empty := NewVerifier(Options{})
	r := empty.Verify(compact, override)
	if !r.Valid {
		t.Fatalf("override-set verification failed: %s", r.Error)
	}

	// The override is call-scoped: the next call without it fails again.
	if r := empty.Verify(compact, nil); r.Valid {
		t.Error("override leaked into verifier state")
	}
}

func TestVerify_PurgeSchema(t *testing.T) {
	k, err := keys.Generate("pk")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	set, err := keys.NewSet(k)
	if err != nil {
		t.Fatalf("NewSet() error: %v", err)
	}
	issuer := signing.NewIssuer(signing.Options{Store: set})

	compact, err := issuer.IssuePurge(&receipt.PurgeReceipt{
		Subject:  map[string]interface{}{"uri": "https://example.com/x"},
		Corpus:   "corpus-1",
		IssuedAt: receipt.Now(),
	}, "pk")
	if err != nil {
		t.Fatalf("IssuePurge() error: %v", err)
	}

	purgeVerifier := NewVerifier(Options{Store: set, Schema: receipt.SchemaPurge})
	if r := purgeVerifier.Verify(compact, nil); !r.Valid {
		t.Errorf("purge envelope rejected by purge verifier: %s", r.Error)
	}

	accessVerifier := NewVerifier(Options{Store: set})
	if r := accessVerifier.Verify(compact, nil); r.Valid {
		t.Error("purge envelope satisfied the access schema")
	} else if r.ErrorKind != KindSchemaValidation {
		t.Errorf("kind = %v, want SchemaValidationError", r.ErrorKind)
	}
}

func TestBulkVerify_OrderAndCounts(t *testing.T) {
	f := newFixture(t, "k1")

	good1 := f.issue(t)
	good2 := f.issue(t)
	corrupted := good1[:len(good1)-4] + "AAAA"

	out := f.verifier.BulkVerify([]string{good1, corrupted, good2}, nil)

	if out.Total != 3 || out.Valid != 2 || out.Invalid != 1 {
		t.Errorf("counts = total %d / valid %d / invalid %d, want 3/2/1",
			out.Total, out.Valid, out.Invalid)
	}
	if len(out.Results) != 3 {
		t.Fatalf("results length = %d, want 3", len(out.Results))
	}
	if !out.Results[0].Valid || out.Results[1].Valid || !out.Results[2].Valid {
		t.Errorf("per-entry validity = (%v, %v, %v), want (true, false, true)",
			out.Results[0].Valid, out.Results[1].Valid, out.Results[2].Valid)
	}
}

func TestBulkVerify_Empty(t *testing.T) {
	f := newFixture(t, "k1")
	out := f.verifier.BulkVerify(nil, nil)
	if out.Total != 0 || out.Valid != 0 || out.Invalid != 0 || len(out.Results) != 0 {
		t.Errorf("empty bulk = %+v, want zeroes", out)
	}
}

func TestResultJSON_ErrorKindName(t *testing.T) {
	f := newFixture(t, "k1")
	r := f.verifier.Verify("not-an-envelope", nil)

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if !strings.Contains(string(data), `"error_kind":"StructuralParseError"`) {
		t.Errorf("serialized result %s lacks named error kind", data)
	}

	// Valid results omit the error fields entirely.
	ok := f.verifier.Verify(f.issue(t), nil)
	data, err = json.Marshal(ok)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if strings.Contains(string(data), "error") {
		t.Errorf("valid result %s carries error fields", data)
	}
}
