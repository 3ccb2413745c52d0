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
	"errors"
	"fmt"
)

// ErrorKind categorizes a verification failure for programmatic handling.
type ErrorKind int

const (
	// KindUnknown indicates an unclassified error.
	KindUnknown ErrorKind = iota

	// KindStructuralParse indicates malformed envelope framing, including a
	// protected header without a usable alg/kid.
	KindStructuralParse

	// KindSchemaValidation indicates a payload missing required fields or
	// carrying wrongly typed ones.
	KindSchemaValidation

	// KindKeyNotFound indicates the kid could not be resolved to key
	// material.
	KindKeyNotFound

	// KindKidMismatch indicates the header kid and payload kid disagree.
	KindKidMismatch

	// KindSignatureInvalid indicates cryptographic verification failed.
	KindSignatureInvalid

	// KindReplayRejected indicates a reused nonce or a timestamp outside
	// the freshness window.
	KindReplayRejected

	// KindMalformedKey indicates key material of the wrong length or type.
	KindMalformedKey
)

// String returns the reportable name of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindStructuralParse:
		return "StructuralParseError"
	case KindSchemaValidation:
		return "SchemaValidationError"
	case KindKeyNotFound:
		return "KeyNotFoundError"
	case KindKidMismatch:
		return "KidMismatchError"
	case KindSignatureInvalid:
		return "SignatureInvalidError"
	case KindReplayRejected:
		return "ReplayRejectedError"
	case KindMalformedKey:
		return "MalformedKeyError"
	default:
		return "UnknownError"
	}
}

// MarshalJSON serializes the kind as its reportable name.
func (k ErrorKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses the reportable name produced by MarshalJSON.
func (k *ErrorKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "StructuralParseError":
		*k = KindStructuralParse
	case "SchemaValidationError":
		*k = KindSchemaValidation
	case "KeyNotFoundError":
		*k = KindKeyNotFound
	case "KidMismatchError":
		*k = KindKidMismatch
	case "SignatureInvalidError":
		*k = KindSignatureInvalid
	case "ReplayRejectedError":
		*k = KindReplayRejected
	case "MalformedKeyError":
		*k = KindMalformedKey
	default:
		*k = KindUnknown
	}
	return nil
}

// Error is a structured verification error carrying its kind and the
// underlying cause.
type Error struct {
	// Kind categorizes the failure.
	Kind ErrorKind
	// Message is a human-readable description.
	Message string
	// Cause is the wrapped underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// newError creates a verification error.
func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the ErrorKind from an error chain. Returns KindUnknown for
// nil or foreign errors.
func KindOf(err error) ErrorKind {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindUnknown
}
