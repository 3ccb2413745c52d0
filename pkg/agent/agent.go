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

// Package agent adapts the receipts service into a single-entry tool for AI
// agent frameworks. One Run call dispatches on an operation name and always
// answers with a JSON document, encoding remote failures into the answer
// instead of an error return, so a framework can hand the result straight
// back to a model.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/peacprotocol/peac/pkg/client"
	"github.com/peacprotocol/peac/pkg/keys"
	"github.com/peacprotocol/peac/pkg/logging"
)

// Supported operation names.
const (
	OpIssue      = "issue"
	OpVerify     = "verify"
	OpBulkVerify = "bulk_verify"
	OpPurge      = "purge"
)

// Request is the single input schema of the tool. Which fields matter
// depends on Operation.
type Request struct {
	// Operation selects one of issue, verify, bulk_verify, or purge.
	Operation string `json:"operation"`

	// Subject is the content URI, required for issue and purge.
	Subject string `json:"subject,omitempty"`
	// Purpose is the access purpose, required for issue.
	Purpose string `json:"purpose,omitempty"`
	// CrawlerType defaults to "agent" for issue.
	CrawlerType string `json:"crawler_type,omitempty"`

	// JWS is the envelope to check, required for verify.
	JWS string `json:"jws,omitempty"`
	// Receipts is the envelope batch, required for bulk_verify.
	Receipts []string `json:"receipts,omitempty"`
	// Keys is an optional call-scoped key set for verify and bulk_verify.
	Keys map[string]keys.Descriptor `json:"keys,omitempty"`

	// Corpus names the dataset purged from, required for purge.
	Corpus string `json:"corpus,omitempty"`
	// ErasureBasis is the optional legal basis for purge.
	ErasureBasis string `json:"erasure_basis,omitempty"`
}

// Tool dispatches receipt operations to a remote service.
type Tool struct {
	client *client.Client
	log    logging.Logger
}

// Options configures a Tool.
type Options struct {
	// Client is the service client. Required.
	Client *client.Client
	// Logger receives dispatch diagnostics.
	Logger logging.Logger
}

// New creates a Tool.
func New(opts Options) (*Tool, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	return &Tool{
		client: opts.Client,
		log:    logging.Ensure(opts.Logger),
	}, nil
}

// Name returns the tool's registration name.
func (t *Tool) Name() string { return "peac_receipt" }

// Description returns the tool's usage text for agent frameworks.
func (t *Tool) Description() string {
	return "Issue and verify PEAC receipts for content access attestation. " +
		"Operations: issue (sign a receipt for content access), verify (check " +
		"one receipt), bulk_verify (check a batch), purge (sign a data " +
		"deletion receipt)."
}

// Run executes one operation and returns a JSON answer. Failures are part
// of the answer, never a Go error, so callers can relay the string as-is.
func (t *Tool) Run(ctx context.Context, req Request) string {
	t.log.Debug("tool dispatch: operation=%s", req.Operation)

	switch req.Operation {
	case OpIssue:
		return t.issue(ctx, req)
	case OpVerify:
		return t.verify(ctx, req)
	case OpBulkVerify:
		return t.bulkVerify(ctx, req)
	case OpPurge:
		return t.purge(ctx, req)
	default:
		return failure(fmt.Sprintf("unknown operation %q, supported: %s",
			req.Operation, strings.Join([]string{OpIssue, OpVerify, OpBulkVerify, OpPurge}, ", ")))
	}
}

func (t *Tool) issue(ctx context.Context, req Request) string {
	if req.Subject == "" || req.Purpose == "" {
		return failure("issue requires subject and purpose")
	}
	crawler := req.CrawlerType
	if crawler == "" {
		crawler = "agent"
	}

	out, err := t.client.IssueReceipt(ctx, client.IssueRequest{
		Subject:     req.Subject,
		Purpose:     req.Purpose,
		CrawlerType: crawler,
	})
	if err != nil {
		return failure(err.Error())
	}
	return answer(map[string]interface{}{
		"success": true,
		"receipt": out.Receipt,
		"jws":     out.JWS,
		"message": "Receipt issued for " + req.Subject,
	})
}

func (t *Tool) verify(ctx context.Context, req Request) string {
	if req.JWS == "" {
		return failure("verify requires jws")
	}

	out, err := t.client.VerifyReceipt(ctx, client.VerifyRequest{
		JWS:  req.JWS,
		Keys: req.Keys,
	})
	if err != nil {
		return failure(err.Error())
	}
	msg := "Receipt verified successfully"
	if !out.Valid {
		msg = "Verification failed: " + out.Error
	}
	return answer(map[string]interface{}{
		"valid":   out.Valid,
		"receipt": out.Payload,
		"error":   out.Error,
		"message": msg,
	})
}

func (t *Tool) bulkVerify(ctx context.Context, req Request) string {
	if len(req.Receipts) == 0 {
		return failure("bulk_verify requires receipts")
	}

	out, err := t.client.BulkVerify(ctx, client.BulkVerifyRequest{
		NDJSON: strings.Join(req.Receipts, "\n"),
		Keys:   req.Keys,
	})
	if err != nil {
		return failure(err.Error())
	}
	return answer(map[string]interface{}{
		"total":   out.Total,
		"valid":   out.Valid,
		"invalid": out.Invalid,
		"results": out.Results,
		"message": fmt.Sprintf("Bulk verification complete: %d/%d valid", out.Valid, out.Total),
	})
}

func (t *Tool) purge(ctx context.Context, req Request) string {
	if req.Subject == "" || req.Corpus == "" {
		return failure("purge requires subject and corpus")
	}

	out, err := t.client.IssuePurge(ctx, client.PurgeRequest{
		Subject:      req.Subject,
		Corpus:       req.Corpus,
		ErasureBasis: req.ErasureBasis,
	})
	if err != nil {
		return failure(err.Error())
	}
	return answer(map[string]interface{}{
		"success":       true,
		"purge_receipt": out.PurgeReceipt,
		"jws":           out.JWS,
		"message":       "Purge receipt issued for " + req.Subject,
	})
}

func answer(v map[string]interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return failure("failed to encode answer: " + err.Error())
	}
	return string(data)
}

func failure(msg string) string {
	data, _ := json.MarshalIndent(map[string]interface{}{
		"success": false,
		"error":   msg,
	}, "", "  ")
	return string(data)
}
