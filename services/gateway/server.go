// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/koustavx08/web3-todo-dapp/pkg/logging"
	"github.com/koustavx08/web3-todo-dapp/services/observability"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Addr is the listen address. Default: 127.0.0.1:8787.
	Addr string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// ServiceName names the trace spans. Default: web3todo-gateway.
	ServiceName string
}

// Server is the gateway HTTP server.
type Server struct {
	config ServerConfig
	router *gin.Engine
	logger *logging.Logger
}

// NewServer builds the router: recovery, tracing, request logging, then
// the routes.
func NewServer(cfg ServerConfig, handlers *Handlers, logger *logging.Logger, metrics *observability.Metrics) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "web3todo-gateway"
	}
	if logger == nil {
		logger = logging.Discard()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(RequestLogger(logger, metrics))
	RegisterRoutes(router, handlers, metrics)

	return &Server{config: cfg, router: router, logger: logger}
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
//
// # Outputs
//
//   - error: nil after a clean shutdown, otherwise the listen or shutdown
//     error.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("gateway listening", "addr", s.config.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		s.logger.Info("gateway shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
