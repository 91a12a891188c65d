// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command gateway serves the to-do HTTP gateway without the CLI.
//
// Configuration comes from the same file as the CLI (-config, default
// ~/.web3todo/config.yaml) and the same environment overrides.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/koustavx08/web3-todo-dapp/internal/app"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml")
	addr := flag.String("addr", "", "Listen address (overrides gateway.addr)")
	flag.Parse()

	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, app.Options{ConfigPath: *configPath, Service: "web3todo-gateway"})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	if *addr != "" {
		a.Config.Gateway.Addr = *addr
	}
	if err := a.Session.CheckConnection(ctx); err != nil {
		a.Logger.Warn("initial wallet check failed", "error", err)
	}
	if !a.HasWallet() {
		a.Logger.Warn("serving without a wallet; wallet endpoints will answer 503")
	}

	if err := a.Background(ctx, a.Gateway().Run); err != nil {
		a.Logger.Error("gateway stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
}
