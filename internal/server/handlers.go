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

package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/peacprotocol/peac/pkg/keys"
	"github.com/peacprotocol/peac/pkg/receipt"
	"github.com/peacprotocol/peac/pkg/tracing"
	"github.com/peacprotocol/peac/pkg/verify"
)

type issueRequest struct {
	Subject     string                 `json:"subject"`
	Purpose     string                 `json:"purpose"`
	CrawlerType string                 `json:"crawler_type"`
	Options     map[string]interface{} `json:"options"`
}

type verifyRequest struct {
	JWS  string                     `json:"jws"`
	Keys map[string]keys.Descriptor `json:"keys"`
}

type bulkVerifyRequest struct {
	NDJSON   string                     `json:"ndjson"`
	Receipts []string                   `json:"receipts"`
	Keys     map[string]keys.Descriptor `json:"keys"`
}

type purgeRequest struct {
	Subject      string `json:"subject"`
	Corpus       string `json:"corpus"`
	ErasureBasis string `json:"erasure_basis"`
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func (s *Server) handleIssue(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Subject == "" || req.Purpose == "" {
		badRequest(c, "subject and purpose are required")
		return
	}
	if s.cfg.DefaultKid == "" {
		badRequest(c, "service has no signing key configured")
		return
	}
	if s.cfg.Pricing.Enabled && req.Options["payment"] == nil {
		paymentRequired(c, s.cfg.Pricing)
		return
	}

	crawler := req.CrawlerType
	if crawler == "" {
		crawler = "agent"
	}

	payload := map[string]interface{}{
		"subject": map[string]interface{}{"uri": req.Subject},
		"aipref":  map[string]interface{}{"status": "allowed", "purpose": req.Purpose},
		"enforcement": map[string]interface{}{
			"method":       "none",
			"crawler_type": crawler,
		},
		"issued_at": receipt.Now(),
	}
	// Caller-supplied blocks override the defaults.
	for _, field := range []string{"aipref", "enforcement", "payment", "ext"} {
		if v, ok := req.Options[field]; ok {
			payload[field] = v
		}
	}

	var compact string
	err := tracing.Run(c.Request.Context(), "IssueReceipt", map[string]interface{}{
		"peac.schema": receipt.SchemaAccess.String(),
		"peac.kid":    s.cfg.DefaultKid,
	}, func(context.Context) error {
		var err error
		compact, err = s.issuer.IssueMap(payload, receipt.SchemaAccess, s.cfg.DefaultKid)
		return err
	})
	if err != nil {
		badRequest(c, fmt.Sprintf("issuance failed: %v", err))
		return
	}
	payload["kid"] = s.cfg.DefaultKid

	s.metrics.receiptsIssued.WithLabelValues("access").Inc()
	c.JSON(http.StatusOK, gin.H{"receipt": payload, "jws": compact})
}

func (s *Server) handleVerify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.JWS == "" {
		badRequest(c, "jws is required")
		return
	}

	override, err := overrideSet(req.Keys)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	_, span := tracing.Start(c.Request.Context(), "VerifyReceipt")
	result := s.access.Verify(req.JWS, override)
	span.SetAttribute("peac.valid", result.Valid)
	span.End()

	s.countOutcome(result)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleBulkVerify(c *gin.Context) {
	var req bulkVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	envelopes := req.Receipts
	if req.NDJSON != "" {
		if len(envelopes) > 0 {
			badRequest(c, "provide either ndjson or receipts, not both")
			return
		}
		for _, line := range strings.Split(req.NDJSON, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				envelopes = append(envelopes, line)
			}
		}
	}
	if len(envelopes) == 0 {
		badRequest(c, "no receipts to verify")
		return
	}
	if len(envelopes) > s.cfg.BulkLimit {
		badRequest(c, fmt.Sprintf("batch of %d exceeds limit %d", len(envelopes), s.cfg.BulkLimit))
		return
	}

	override, err := overrideSet(req.Keys)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	_, span := tracing.Start(c.Request.Context(), "BulkVerify")
	span.SetAttribute("peac.batch_size", len(envelopes))
	out := s.access.BulkVerify(envelopes, override)
	span.End()

	for _, r := range out.Results {
		s.countOutcome(r)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handlePurge(c *gin.Context) {
	var req purgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Subject == "" || req.Corpus == "" {
		badRequest(c, "subject and corpus are required")
		return
	}
	if s.cfg.DefaultKid == "" {
		badRequest(c, "service has no signing key configured")
		return
	}

	payload := map[string]interface{}{
		"subject":   map[string]interface{}{"uri": req.Subject},
		"corpus":    req.Corpus,
		"issued_at": receipt.Now(),
	}
	if req.ErasureBasis != "" {
		payload["erasure_basis"] = req.ErasureBasis
	}

	var compact string
	err := tracing.Run(c.Request.Context(), "IssueReceipt", map[string]interface{}{
		"peac.schema": receipt.SchemaPurge.String(),
		"peac.kid":    s.cfg.DefaultKid,
	}, func(context.Context) error {
		var err error
		compact, err = s.issuer.IssueMap(payload, receipt.SchemaPurge, s.cfg.DefaultKid)
		return err
	})
	if err != nil {
		badRequest(c, fmt.Sprintf("issuance failed: %v", err))
		return
	}
	payload["kid"] = s.cfg.DefaultKid

	s.metrics.receiptsIssued.WithLabelValues("purge").Inc()
	c.JSON(http.StatusOK, gin.H{"purge_receipt": payload, "jws": compact})
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"keys":   s.store.Len(),
	})
}

// countOutcome records one verification result in the metrics.
func (s *Server) countOutcome(r verify.Result) {
	if r.Valid {
		s.metrics.verifyOutcomes.WithLabelValues("valid").Inc()
		return
	}
	s.metrics.verifyOutcomes.WithLabelValues(r.ErrorKind.String()).Inc()
}

// overrideSet builds a call-scoped key set from request-supplied
// descriptors. Non-Ed25519 entries are skipped, matching the key store
// loader; malformed Ed25519 material is an error.
func overrideSet(descriptors map[string]keys.Descriptor) (*keys.Set, error) {
	if len(descriptors) == 0 {
		return nil, nil
	}
	var members []*keys.Key
	for kid, d := range descriptors {
		if !d.Matches() {
			continue
		}
		k, err := keys.FromDescriptor(kid, d)
		if err != nil {
			return nil, fmt.Errorf("invalid key %q: %w", kid, err)
		}
		members = append(members, k)
	}
	return keys.NewSet(members...)
}
