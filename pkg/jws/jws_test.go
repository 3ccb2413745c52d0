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

package jws

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/peacprotocol/peac/pkg/keys"
)

// signingKey generates a test signing key.
func signingKey(t *testing.T, kid string) *keys.Key {
	t.Helper()
	k, err := keys.Generate(kid)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	return k
}

func TestSignAndParse_RoundTrip(t *testing.T) {
	k := signingKey(t, "k1")
	payload := []byte(`{"subject":{"uri":"https://example.com/a"},"kid":"k1"}`)

	compact, err := Sign(payload, k)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if strings.Count(compact, ".") != 2 {
		t.Fatalf("compact form has %d dots, want 2: %q", strings.Count(compact, "."), compact)
	}

	parsed, err := Parse(compact)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if parsed.Header.Alg != AlgEdDSA {
		t.Errorf("header alg = %q, want %q", parsed.Header.Alg, AlgEdDSA)
	}
	if parsed.Header.Kid != "k1" {
		t.Errorf("header kid = %q, want k1", parsed.Header.Kid)
	}
	if !bytes.Equal(parsed.Payload, payload) {
		t.Errorf("payload = %q, want %q", parsed.Payload, payload)
	}

	ok, err := parsed.VerifySignature(k.Public())
	if err != nil {
		t.Fatalf("VerifySignature() error: %v", err)
	}
	if !ok {
		t.Error("expected signature to verify")
	}
}

// TestSign_HeaderShape pins the exact protected header so envelopes stay
// interoperable with other compact-JWS consumers.
func TestSign_HeaderShape(t *testing.T) {
	k := signingKey(t, "header-key")
	compact, err := Sign([]byte("{}"), k)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	headerSeg := strings.SplitN(compact, ".", 2)[0]
	headerBytes, err := Decode(headerSeg)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := `{"alg":"EdDSA","kid":"header-key"}`
	if string(headerBytes) != want {
		t.Errorf("header = %s, want %s", headerBytes, want)
	}
}

func TestSign_VerificationOnlyKey(t *testing.T) {
	k := signingKey(t, "pub")
	pubOnly, err := keys.NewVerificationKey("pub", k.Public())
	if err != nil {
		t.Fatalf("NewVerificationKey() error: %v", err)
	}
	if _, err := Sign([]byte("{}"), pubOnly); err == nil {
		t.Error("expected error signing with verification-only key, got nil")
	}
}

func TestParse_MalformedInputs(t *testing.T) {
	tests := []struct {
		name    string
		compact string
	}{
		{"empty", ""},
		{"one segment", "abc"},
		{"two segments", "abc.def"},
		{"four segments", "a.b.c.d"},
		{"bad header base64", "!!!.e30.c2ln"},
		{"bad payload base64", "e30.!!!.c2ln"},
		{"bad signature base64", "e30.e30.!!!"},
		{"header not JSON", Encode([]byte("not json")) + ".e30.c2ln"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.compact); err == nil {
				t.Errorf("Parse(%q) expected error, got nil", tt.compact)
			}
		})
	}
}

func TestVerifySignature_WrongKey(t *testing.T) {
	signer := signingKey(t, "signer")
	other := signingKey(t, "other")

	compact, err := Sign([]byte(`{"x":1}`), signer)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	parsed, err := Parse(compact)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	ok, err := parsed.VerifySignature(other.Public())
	if err != nil {
		t.Fatalf("VerifySignature() error: %v", err)
	}
	if ok {
		t.Error("signature verified under the wrong key")
	}
}

func TestEncodeDecode(t *testing.T) {
	data := []byte{0x00, 0xff, 0x10, 0x80, 'a'}
	decoded, err := Decode(Encode(data))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if !bytes.Equal(decoded, data) {
		t.Errorf("round trip = %v, want %v", decoded, data)
	}
	// Unpadded encoding only.
	if strings.Contains(Encode([]byte("ab")), "=") {
		t.Error("Encode() produced padding")
	}
}

func TestParsedHeaderRawMatchesHeader(t *testing.T) {
	k := signingKey(t, "raw")
	compact, err := Sign([]byte("{}"), k)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	parsed, err := Parse(compact)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	var reparsed Header
	if err := json.Unmarshal(parsed.HeaderRaw, &reparsed); err != nil {
		t.Fatalf("HeaderRaw is not valid JSON: %v", err)
	}
	if reparsed != parsed.Header {
		t.Errorf("HeaderRaw %s disagrees with Header %+v", parsed.HeaderRaw, parsed.Header)
	}
}
