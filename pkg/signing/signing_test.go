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

package signing

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/peacprotocol/peac/pkg/jws"
	"github.com/peacprotocol/peac/pkg/keys"
	"github.com/peacprotocol/peac/pkg/receipt"
)

// newIssuer builds an Issuer with one signing key.
func newIssuer(t *testing.T, kid string) (*Issuer, *keys.Key) {
	t.Helper()
	k, err := keys.Generate(kid)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	set, err := keys.NewSet(k)
	if err != nil {
		t.Fatalf("Failed to build key set: %v", err)
	}
	return NewIssuer(Options{Store: set}), k
}

// accessReceipt returns a schema-valid access receipt without a kid.
func accessReceipt() *receipt.Receipt {
	return &receipt.Receipt{
		Subject:     map[string]interface{}{"uri": "https://example.com/a"},
		AIPref:      map[string]interface{}{"status": "allowed"},
		Enforcement: map[string]interface{}{"outcome": "granted"},
		IssuedAt:    receipt.Now(),
	}
}

func TestIssue_ForcesKid(t *testing.T) {
	issuer, k := newIssuer(t, "k1")

	r := accessReceipt()
	r.Kid = "caller-supplied" // must be overwritten

	compact, err := issuer.Issue(r, "k1")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	parsed, err := jws.Parse(compact)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if parsed.Header.Kid != "k1" {
		t.Errorf("header kid = %q, want k1", parsed.Header.Kid)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(parsed.Payload, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["kid"] != "k1" {
		t.Errorf("payload kid = %v, want k1", payload["kid"])
	}

	ok, err := parsed.VerifySignature(k.Public())
	if err != nil {
		t.Fatalf("VerifySignature() error: %v", err)
	}
	if !ok {
		t.Error("issued envelope does not verify under the signing key")
	}
}

func TestIssue_KidMissingFromPayloadIsFine(t *testing.T) {
	issuer, _ := newIssuer(t, "k1")
	if _, err := issuer.Issue(accessReceipt(), "k1"); err != nil {
		t.Errorf("Issue() with empty payload kid: %v", err)
	}
}

func TestIssue_SchemaErrorNamesFields(t *testing.T) {
	issuer, _ := newIssuer(t, "k1")

	r := accessReceipt()
	r.AIPref = nil
	r.Enforcement = nil

	_, err := issuer.Issue(r, "k1")
	if err == nil {
		t.Fatal("expected schema error, got nil")
	}
	var se *receipt.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *receipt.SchemaError, got %T: %v", err, err)
	}
	for _, want := range []string{"aipref", "enforcement"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name %q", err, want)
		}
	}
}

func TestIssue_UnknownKid(t *testing.T) {
	issuer, _ := newIssuer(t, "k1")
	_, err := issuer.Issue(accessReceipt(), "ghost")
	if !errors.Is(err, keys.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestIssue_VerificationOnlyKey(t *testing.T) {
	k, err := keys.Generate("pub-only")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	pubOnly, err := keys.NewVerificationKey("pub-only", k.Public())
	if err != nil {
		t.Fatalf("NewVerificationKey() error: %v", err)
	}
	set, err := keys.NewSet(pubOnly)
	if err != nil {
		t.Fatalf("NewSet() error: %v", err)
	}

	issuer := NewIssuer(Options{Store: set})
	if _, err := issuer.Issue(accessReceipt(), "pub-only"); err == nil {
		t.Error("expected error issuing with verification-only key, got nil")
	}
}

func TestIssueMap_DoesNotMutateInput(t *testing.T) {
	issuer, _ := newIssuer(t, "k1")

	payload := map[string]interface{}{
		"subject":     map[string]interface{}{"uri": "https://example.com/a"},
		"aipref":      map[string]interface{}{"status": "allowed"},
		"enforcement": map[string]interface{}{"outcome": "granted"},
		"issued_at":   receipt.Now(),
		"kid":         "original",
	}
	if _, err := issuer.IssueMap(payload, receipt.SchemaAccess, "k1"); err != nil {
		t.Fatalf("IssueMap() error: %v", err)
	}
	if payload["kid"] != "original" {
		t.Errorf("input payload mutated: kid = %v", payload["kid"])
	}
}

func TestIssuePurge(t *testing.T) {
	issuer, k := newIssuer(t, "purge-key")

	compact, err := issuer.IssuePurge(&receipt.PurgeReceipt{
		Subject:      map[string]interface{}{"uri": "https://example.com/a"},
		Corpus:       "crawl-2025-07",
		ErasureBasis: "gdpr",
		IssuedAt:     receipt.Now(),
	}, "purge-key")
	if err != nil {
		t.Fatalf("IssuePurge() error: %v", err)
	}

	parsed, err := jws.Parse(compact)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	ok, err := parsed.VerifySignature(k.Public())
	if err != nil || !ok {
		t.Fatalf("purge envelope does not verify: ok=%v err=%v", ok, err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(parsed.Payload, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["corpus"] != "crawl-2025-07" {
		t.Errorf("corpus = %v, want crawl-2025-07", payload["corpus"])
	}
	if payload["erasure_basis"] != "gdpr" {
		t.Errorf("erasure_basis = %v, want gdpr", payload["erasure_basis"])
	}
}

func TestIssuePurge_MissingCorpus(t *testing.T) {
	issuer, _ := newIssuer(t, "k1")
	_, err := issuer.IssuePurge(&receipt.PurgeReceipt{
		Subject:  map[string]interface{}{"uri": "https://example.com/a"},
		IssuedAt: receipt.Now(),
	}, "k1")
	if err == nil || !strings.Contains(err.Error(), "corpus") {
		t.Errorf("expected corpus schema error, got %v", err)
	}
}
