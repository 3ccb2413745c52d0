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

// Package discovery fetches and parses the well-known peac.txt policy file
// an origin publishes to describe its receipt and payment expectations.
package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WellKnownPath is where an origin publishes its policy file.
const WellKnownPath = "/.well-known/peac.txt"

// MaxLines caps the number of non-comment lines a policy file may carry.
// Files over the cap are rejected outright rather than truncated.
const MaxLines = 20

// maxBodyBytes bounds the response body read; a policy file within the line
// cap fits comfortably.
const maxBodyBytes = 64 * 1024

const userAgent = "peac-go/0.9 (+https://peac.dev)"

// Document is a parsed policy file.
type Document struct {
	// Fields holds every key:value line, raw values as published.
	Fields map[string]string `json:"fields"`
	// Payments is the parsed payments list when the payments field carries
	// a bracketed list, nil otherwise.
	Payments []string `json:"payments,omitempty"`
	// LineCount is the number of non-comment lines parsed.
	LineCount int `json:"line_count"`
}

// Get returns the raw value of a field, or "" when absent.
func (d *Document) Get(key string) string {
	if d == nil {
		return ""
	}
	return d.Fields[key]
}

// Parse parses policy file content. Blank lines and lines starting with "#"
// are skipped; lines without a ":" are counted but carry no field. Content
// over MaxLines is an error.
func Parse(content string) (*Document, error) {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) > MaxLines {
		return nil, fmt.Errorf("line limit exceeded: %d > %d", len(lines), MaxLines)
	}

	doc := &Document{
		Fields:    make(map[string]string),
		LineCount: len(lines),
	}
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		doc.Fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if payments, ok := doc.Fields["payments"]; ok {
		doc.Payments = parsePayments(payments)
	}
	return doc, nil
}

// parsePayments parses a bracketed list like [x402, tempo, l402]. Values may
// be quoted. A non-bracketed value yields nil, leaving the raw field as the
// only representation.
func parsePayments(value string) []string {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "[") || !strings.HasSuffix(value, "]") {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value[1:len(value)-1], ",") {
		item = strings.Trim(strings.TrimSpace(item), `"'`)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Client fetches policy files over HTTP.
type Client struct {
	http *http.Client
}

// Options configures a discovery Client.
type Options struct {
	// HTTPClient overrides the transport. Defaults to a client with a
	// 10 second timeout.
	HTTPClient *http.Client
}

// NewClient creates a discovery Client.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{http: hc}
}

// Discover fetches and parses origin's policy file. A non-2xx response or a
// malformed file is an error; the caller distinguishes "no policy" from
// transport failure through the wrapped error.
func (c *Client) Discover(ctx context.Context, origin string) (*Document, error) {
	url := strings.TrimRight(origin, "/") + WellKnownPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build discovery request for %s: %w", origin, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discovery request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("discovery of %s returned HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file from %s: %w", url, err)
	}

	doc, err := Parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("invalid policy file at %s: %w", url, err)
	}
	return doc, nil
}
