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

// Package server implements the receipts HTTP service: receipt issuance,
// verification, bulk verification, and purge issuance over JSON, with
// per-client rate limiting, request metrics, and a payment-required gate.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/peacprotocol/peac/pkg/keys"
	"github.com/peacprotocol/peac/pkg/logging"
	"github.com/peacprotocol/peac/pkg/signing"
	"github.com/peacprotocol/peac/pkg/verify"
)

const shutdownGrace = 10 * time.Second

// Options configures a Server.
type Options struct {
	// Config is the service configuration. Required.
	Config *Config
	// Store is the key store backing issuance and verification.
	Store *keys.Set
	// Logger receives request and lifecycle logs.
	Logger logging.Logger
}

// Server is the receipts HTTP service.
type Server struct {
	cfg     *Config
	store   *keys.Set
	issuer  *signing.Issuer
	access  *verify.Verifier
	log     logging.Logger
	metrics *metrics
	limiter *clientLimiter
	engine  *gin.Engine
}

// New assembles a Server. When the configuration names a default signing
// kid, the store must hold a signing-capable key under it.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	cfg := opts.Config

	if cfg.DefaultKid != "" {
		k := opts.Store.Get(cfg.DefaultKid)
		if k == nil {
			return nil, fmt.Errorf("default signing key %q not in store", cfg.DefaultKid)
		}
		if !k.CanSign() {
			return nil, fmt.Errorf("key %q has no private material, cannot issue", cfg.DefaultKid)
		}
	}

	s := &Server{
		cfg:     cfg,
		store:   opts.Store,
		issuer:  signing.NewIssuer(signing.Options{Store: opts.Store}),
		access:  verify.NewVerifier(verify.Options{Store: opts.Store}),
		log:     logging.Ensure(opts.Logger),
		metrics: newMetrics(),
		limiter: newClientLimiter(cfg.RateRPS, cfg.RateBurst, 0),
	}
	s.engine = s.buildRouter()
	return s, nil
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.observe(), s.rateLimit())

	r.POST("/receipts/issue", s.handleIssue)
	r.POST("/receipts/verify", s.handleVerify)
	r.POST("/receipts/bulk-verify", s.handleBulkVerify)
	r.POST("/purge/issue", s.handlePurge)

	r.GET("/healthz", s.handleHealthz)
	r.GET("/metrics", gin.WrapH(s.metrics.handler()))
	return r
}

// Handler exposes the routed service, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is canceled, then drains in-flight requests
// before returning.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("receipts service listening on %s", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down, draining for up to %s", shutdownGrace)
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
