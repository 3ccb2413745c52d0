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

// Package client is the HTTP client for a receipts service. It retries
// transient failures with exponential backoff, refuses to hammer a failing
// upstream through a circuit breaker, and surfaces payment challenges as
// typed errors so callers can react to HTTP 402 without string matching.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/peacprotocol/peac/pkg/keys"
	"github.com/peacprotocol/peac/pkg/logging"
	"github.com/peacprotocol/peac/pkg/utils"
	"github.com/peacprotocol/peac/pkg/verify"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	userAgent         = "peac-go/0.9 (+https://peac.dev)"

	// PricingHeader carries the pricing terms of a payment challenge.
	PricingHeader = "X-PEAC-Pricing"
)

// PaymentRequiredError is returned when the service answers HTTP 402. It is
// never retried.
type PaymentRequiredError struct {
	// Pricing is the decoded pricing terms from the response, if present.
	Pricing map[string]interface{}
	// Detail is the service's human-readable message.
	Detail string
}

func (e *PaymentRequiredError) Error() string {
	if e.Detail != "" {
		return "payment required: " + e.Detail
	}
	return "payment required"
}

// StatusError is a non-402 HTTP failure.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service returned HTTP %d: %s", e.StatusCode, e.Body)
}

// IssueRequest asks the service to issue an access receipt.
type IssueRequest struct {
	Subject     string                 `json:"subject"`
	Purpose     string                 `json:"purpose"`
	CrawlerType string                 `json:"crawler_type,omitempty"`
	Options     map[string]interface{} `json:"options,omitempty"`
}

// IssueResponse is the issued receipt plus its signed envelope.
type IssueResponse struct {
	Receipt map[string]interface{} `json:"receipt"`
	JWS     string                 `json:"jws"`
}

// VerifyRequest asks the service to verify one envelope. Keys, when set, is
// a call-scoped key set that takes precedence over the service's store.
type VerifyRequest struct {
	JWS  string                     `json:"jws"`
	Keys map[string]keys.Descriptor `json:"keys,omitempty"`
}

// BulkVerifyRequest asks the service to verify a batch. Either NDJSON (one
// envelope per line) or Receipts may be set.
type BulkVerifyRequest struct {
	NDJSON   string                     `json:"ndjson,omitempty"`
	Receipts []string                   `json:"receipts,omitempty"`
	Keys     map[string]keys.Descriptor `json:"keys,omitempty"`
}

// PurgeRequest asks the service to issue a purge receipt.
type PurgeRequest struct {
	Subject      string `json:"subject"`
	Corpus       string `json:"corpus"`
	ErasureBasis string `json:"erasure_basis,omitempty"`
}

// PurgeResponse is the issued purge receipt plus its signed envelope.
type PurgeResponse struct {
	PurgeReceipt map[string]interface{} `json:"purge_receipt"`
	JWS          string                 `json:"jws"`
}

// Options configures a Client.
type Options struct {
	// Endpoint is the service base URL, e.g. "https://receipts.example.com".
	Endpoint string
	// APIKey, when set, is sent as a bearer token.
	APIKey string
	// HTTPClient overrides the transport. Defaults to a 10 second timeout.
	HTTPClient *http.Client
	// MaxRetries bounds retry attempts beyond the first try. Defaults to 3.
	MaxRetries int
	// FailureThreshold is the consecutive-failure count that trips the
	// circuit breaker. Defaults to 5.
	FailureThreshold int
	// Cooldown is how long the breaker stays open. Defaults to 30 seconds.
	Cooldown time.Duration
	// Logger receives request diagnostics. Defaults to the package default.
	Logger logging.Logger
}

// Client talks to a receipts service.
type Client struct {
	endpoint   string
	apiKey     string
	http       *http.Client
	maxRetries int
	breaker    *circuitBreaker
	log        logging.Logger
}

// New creates a Client for the given service endpoint.
func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	c := &Client{
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		apiKey:     opts.APIKey,
		http:       hc,
		maxRetries: maxRetries,
		breaker:    newCircuitBreaker(opts.FailureThreshold, opts.Cooldown),
		log:        logging.Ensure(opts.Logger),
	}
	if c.apiKey != "" {
		c.log.Debug("client for %s using api key %s", c.endpoint, utils.MaskToken(c.apiKey))
	}
	return c, nil
}

// IssueReceipt issues an access receipt for a subject.
func (c *Client) IssueReceipt(ctx context.Context, req IssueRequest) (*IssueResponse, error) {
	var out IssueResponse
	if err := c.post(ctx, "/receipts/issue", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyReceipt verifies one envelope remotely.
func (c *Client) VerifyReceipt(ctx context.Context, req VerifyRequest) (*verify.Result, error) {
	var out verify.Result
	if err := c.post(ctx, "/receipts/verify", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkVerify verifies a batch of envelopes remotely.
func (c *Client) BulkVerify(ctx context.Context, req BulkVerifyRequest) (*verify.BulkResult, error) {
	var out verify.BulkResult
	if err := c.post(ctx, "/receipts/bulk-verify", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IssuePurge issues a purge receipt.
func (c *Client) IssuePurge(ctx context.Context, req PurgeRequest) (*PurgeResponse, error) {
	var out PurgeResponse
	if err := c.post(ctx, "/purge/issue", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BreakerState reports the circuit breaker's current state, for
// observability.
func (c *Client) BreakerState() string {
	return string(c.breaker.state())
}

// post sends one JSON request with breaker gating and backoff retries.
// Transport failures and 5xx responses retry; 4xx responses, including
// payment challenges, are permanent.
func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	operation := func() error {
		if !c.breaker.allow() {
			// An open breaker fails fast; retrying inside the cooldown
			// cannot succeed.
			return backoff.Permanent(ErrCircuitOpen)
		}
		err := c.do(ctx, path, body, out)
		if err != nil {
			c.breaker.recordFailure()
			return err
		}
		c.breaker.recordSuccess()
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		c.log.Warn("request to %s failed: %v", path, err)
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		return backoff.Permanent(paymentError(resp.Header.Get(PricingHeader), respBody))
	case resp.StatusCode >= 500:
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	case resp.StatusCode >= 400:
		return backoff.Permanent(&StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))})
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return backoff.Permanent(fmt.Errorf("invalid JSON from %s: %w", path, err))
	}
	return nil
}

// paymentError builds a PaymentRequiredError from the pricing header and the
// 402 response body.
func paymentError(pricingHeader string, body []byte) *PaymentRequiredError {
	e := &PaymentRequiredError{}
	if pricingHeader != "" {
		_ = json.Unmarshal([]byte(pricingHeader), &e.Pricing)
	}
	var challenge struct {
		Message string                 `json:"message"`
		Pricing map[string]interface{} `json:"pricing"`
	}
	if err := json.Unmarshal(body, &challenge); err == nil {
		e.Detail = challenge.Message
		if e.Pricing == nil {
			e.Pricing = challenge.Pricing
		}
	}
	return e
}
