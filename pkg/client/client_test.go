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

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts.Endpoint = srv.URL
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 1
	}
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestIssueReceipt_RoundTrip(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/receipts/issue", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))

		var req IssueRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://example.com/a", req.Subject)
		assert.Equal(t, "ai-training", req.Purpose)

		json.NewEncoder(w).Encode(IssueResponse{
			Receipt: map[string]interface{}{"kid": "k1"},
			JWS:     "h.p.s",
		})
	}), Options{APIKey: "sekrit"})

	out, err := c.IssueReceipt(context.Background(), IssueRequest{
		Subject: "https://example.com/a",
		Purpose: "ai-training",
	})
	require.NoError(t, err)
	assert.Equal(t, "h.p.s", out.JWS)
	assert.Equal(t, "k1", out.Receipt["kid"])
}

func TestBulkVerify_PassesBatch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/receipts/bulk-verify", r.URL.Path)
		var req BulkVerifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a.b.c\nd.e.f", req.NDJSON)
		w.Write([]byte(`{"total":2,"valid":1,"invalid":1,"results":[{"valid":true},{"valid":false}]}`))
	}), Options{})

	out, err := c.BulkVerify(context.Background(), BulkVerifyRequest{NDJSON: "a.b.c\nd.e.f"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, 1, out.Valid)
	require.Len(t, out.Results, 2)
	assert.True(t, out.Results[0].Valid)
}

func TestRetry_TransientServerError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"purge_receipt":{"corpus":"c1"},"jws":"h.p.s"}`))
	}), Options{MaxRetries: 2})

	out, err := c.IssuePurge(context.Background(), PurgeRequest{
		Subject: "https://example.com/x",
		Corpus:  "c1",
	})
	require.NoError(t, err)
	assert.Equal(t, "h.p.s", out.JWS)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPaymentRequired_NotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set(PricingHeader, `{"price":"0.01","currency":"USD"}`)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":"payment_required","message":"Payment or consent required for access"}`))
	}), Options{MaxRetries: 3})

	_, err := c.VerifyReceipt(context.Background(), VerifyRequest{JWS: "a.b.c"})
	require.Error(t, err)

	var pay *PaymentRequiredError
	require.ErrorAs(t, err, &pay)
	assert.Equal(t, "0.01", pay.Pricing["price"])
	assert.Contains(t, pay.Detail, "Payment or consent")
	assert.Equal(t, int32(1), calls.Load(), "402 must not be retried")
}

func TestClientError_NotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}), Options{MaxRetries: 3})

	_, err := c.VerifyReceipt(context.Background(), VerifyRequest{JWS: "a.b.c"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBreaker_TripsAndFailsFast(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}), Options{MaxRetries: 1, FailureThreshold: 2, Cooldown: time.Hour})

	_, err := c.VerifyReceipt(context.Background(), VerifyRequest{JWS: "a.b.c"})
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, string(StateOpen), c.BreakerState())

	// Breaker is open: the next call fails without touching the wire.
	_, err = c.VerifyReceipt(context.Background(), VerifyRequest{JWS: "a.b.c"})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestBreakerStateMachine(t *testing.T) {
	now := time.Now()
	b := newCircuitBreaker(2, 30*time.Second)
	b.now = func() time.Time { return now }

	assert.Equal(t, StateClosed, b.state())
	assert.True(t, b.allow())

	b.recordFailure()
	assert.Equal(t, StateClosed, b.state(), "below threshold stays closed")

	b.recordFailure()
	assert.Equal(t, StateOpen, b.state())
	assert.False(t, b.allow())

	// Cooldown elapses: half-open lets a probe through.
	now = now.Add(31 * time.Second)
	assert.Equal(t, StateHalfOpen, b.state())
	assert.True(t, b.allow())

	// A failed probe restarts the cooldown.
	b.recordFailure()
	assert.Equal(t, StateOpen, b.state())

	// A successful probe closes the breaker.
	now = now.Add(31 * time.Second)
	b.recordSuccess()
	assert.Equal(t, StateClosed, b.state())
	assert.True(t, b.allow())
}

func TestNew_RequiresEndpoint(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
