// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package app wires configuration, the wallet, the contract service and
// their ambient stack into one running client.
//
// # Description
//
// Both entry points (the todo CLI and the standalone gateway) build an App
// and then pick the surfaces they need. Construction never fails because
// the wallet is unreachable: the session simply has no provider and every
// action reports "Wallet provider not found".
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/koustavx08/web3-todo-dapp/pkg/config"
	"github.com/koustavx08/web3-todo-dapp/pkg/logging"
	"github.com/koustavx08/web3-todo-dapp/services/deploy"
	"github.com/koustavx08/web3-todo-dapp/services/gateway"
	"github.com/koustavx08/web3-todo-dapp/services/notify"
	"github.com/koustavx08/web3-todo-dapp/services/observability"
	"github.com/koustavx08/web3-todo-dapp/services/policy"
	"github.com/koustavx08/web3-todo-dapp/services/storage"
	"github.com/koustavx08/web3-todo-dapp/services/tasks"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
	"github.com/koustavx08/web3-todo-dapp/services/wallet/wsprovider"
)

// Version is reported in traces and by the gateway.
const Version = "0.1.0"

// Options configures New.
type Options struct {
	// ConfigPath is the YAML file. Empty selects config.DefaultPath.
	ConfigPath string

	// Service names the process in logs and traces.
	Service string

	// Sink receives notifications in addition to the bus, the log and the
	// metrics. The CLI passes its spinner renderer here. May be nil.
	Sink notify.Notifier

	// Provider replaces the WebSocket wallet connection. Tests use this.
	Provider wallet.Provider

	// Logger replaces the configured logger.
	Logger *logging.Logger

	// Quiet keeps the configured logger off the console, for surfaces
	// that own the terminal.
	Quiet bool
}

// App holds the wired client.
type App struct {
	Config     *config.Config
	ConfigPath string
	Logger     *logging.Logger
	Logs       *logging.Recent
	Bus        *notify.Bus
	Notifier   notify.Notifier
	Registry   *prometheus.Registry
	Metrics    *observability.Metrics
	Session    *wallet.Session
	Service    *tasks.Service
	Uploader   *storage.Uploader

	provider      wallet.Provider
	store         storage.Store
	closeProvider func() error
	stopTracing   func(context.Context) error
}

// New loads the configuration and wires every component.
//
// # Outputs
//
//   - *App: ready to use; call Close when done.
//   - error: configuration, tracing or storage setup failures. An
//     unreachable wallet is not an error.
func New(ctx context.Context, opts Options) (*App, error) {
	path := opts.ConfigPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if opts.Service == "" {
		opts.Service = "web3todo"
	}

	a := &App{Config: cfg, ConfigPath: path}
	a.Logger = opts.Logger
	if a.Logger == nil {
		a.Logs = logging.NewRecent(cfg.Logging.Recent)
		a.Logger = cfg.Logging.Logger(opts.Service, opts.Quiet, a.Logs)
	}

	telemetry := cfg.Telemetry
	if telemetry.ServiceName == "" {
		telemetry.ServiceName = opts.Service
	}
	if telemetry.ServiceVersion == "" {
		telemetry.ServiceVersion = Version
	}
	a.stopTracing, err = observability.Init(ctx, telemetry)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = observability.NewMetrics(a.Registry)

	a.Bus = notify.NewBus()
	sinks := []notify.Notifier{
		a.Bus,
		notify.ToLogger(a.Logger),
		notify.NotifierFunc(func(n notify.Notification) { a.Metrics.Notification(string(n.Level)) }),
	}
	if opts.Sink != nil {
		sinks = append(sinks, opts.Sink)
	}
	a.Notifier = notify.Multi(sinks...)

	a.store, err = storage.Open(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}
	a.Uploader = storage.NewUploader(a.store, a.Logger, a.Metrics)

	a.provider = opts.Provider
	if a.provider == nil {
		a.dialWallet(ctx)
	}

	a.Session = wallet.NewSession(wallet.SessionConfig{
		Provider: a.provider,
		Network:  cfg.Network,
		Notifier: a.Notifier,
		Logger:   a.Logger,
	})
	screen, err := loadScreen(cfg.Tasks.PatternFile)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("content screen: %w", err)
	}
	a.Service, err = tasks.NewService(tasks.Config{
		Session:              a.Session,
		ContractAddress:      cfg.ContractAddress(),
		Uploader:             a.Uploader,
		DescriptionThreshold: cfg.Tasks.DescriptionThreshold,
		Screen:               screen,
		ContentPolicy:        tasks.ContentPolicy(cfg.Tasks.ContentPolicy),
		PollInterval:         cfg.Wallet.PollInterval,
		Notifier:             a.Notifier,
		Logger:               a.Logger,
		Metrics:              a.Metrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func loadScreen(path string) (*policy.Engine, error) {
	if path == "" {
		return policy.NewEngine()
	}
	return policy.Load(path)
}

func (a *App) dialWallet(ctx context.Context) {
	p, err := wsprovider.Dial(ctx, wsprovider.Config{
		URL:               a.Config.Wallet.ProviderURL,
		RequestsPerSecond: a.Config.Wallet.RequestsPerSecond,
		Subscribe:         true,
		Logger:            a.Logger,
	})
	if err != nil {
		a.Logger.Warn("wallet provider unreachable", "url", a.Config.Wallet.ProviderURL, "error", err)
		return
	}
	a.provider = p
	a.closeProvider = p.Close
}

// HasWallet reports whether a wallet provider is attached.
func (a *App) HasWallet() bool {
	return a.provider != nil
}

// Deployer builds a deployer over the session.
func (a *App) Deployer() (*deploy.Deployer, error) {
	return deploy.NewDeployer(deploy.Config{
		Session:      a.Session,
		PollInterval: a.Config.Wallet.PollInterval,
		Notifier:     a.Notifier,
		Logger:       a.Logger,
		Metrics:      a.Metrics,
	})
}

// Gateway builds the HTTP server.
func (a *App) Gateway() *gateway.Server {
	handlers := gateway.NewHandlers(gateway.HandlersConfig{
		Session:  a.Session,
		Service:  a.Service,
		Bus:      a.Bus,
		Uploader: a.Uploader,
		Logs:     a.Logs,
		Logger:   a.Logger,
		Metrics:  a.Metrics,
	})
	gw := a.Config.Gateway
	return gateway.NewServer(gateway.ServerConfig{
		Addr:            gw.Addr,
		ReadTimeout:     gw.ReadTimeout,
		WriteTimeout:    gw.WriteTimeout,
		ShutdownTimeout: gw.ShutdownTimeout,
		ServiceName:     a.Config.Telemetry.ServiceName,
	}, handlers, a.Logger, a.Metrics)
}

// ApplyConfig takes over the parts of a reloaded configuration that can
// change while running: the contract address.
func (a *App) ApplyConfig(cfg *config.Config) {
	next := cfg.ContractAddress()
	if next == a.Service.ContractAddress() {
		return
	}
	a.Logger.Info("contract address changed", "address", next.Hex())
	a.Service.SetContractAddress(next)
	if next != (common.Address{}) {
		notify.Info(a.Notifier, notify.IDNetwork, "Contract address updated")
	}
}

// Background runs the session watch loop, the service's view tracking and
// the config watcher until ctx ends. extra runs alongside them; when it
// returns the others are stopped.
func (a *App) Background(ctx context.Context, extra func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error { return ignoreCanceled(a.Session.Watch(runCtx)) })
	g.Go(func() error { return ignoreCanceled(a.Service.Run(runCtx)) })
	g.Go(func() error {
		w := config.NewWatcher(a.ConfigPath, a.ApplyConfig, a.Logger)
		if err := w.Run(runCtx); err != nil {
			a.Logger.Warn("config watcher stopped", "error", err)
		}
		return nil
	})
	if extra != nil {
		g.Go(func() error {
			defer stop()
			return ignoreCanceled(extra(runCtx))
		})
	}
	return g.Wait()
}

// Close releases the provider, storage and tracing.
func (a *App) Close() error {
	var errs []error
	if a.closeProvider != nil {
		errs = append(errs, a.closeProvider())
	}
	if a.store != nil {
		errs = append(errs, storage.Close(a.store))
	}
	if a.stopTracing != nil {
		errs = append(errs, a.stopTracing(context.Background()))
	}
	if a.Logger != nil {
		errs = append(errs, a.Logger.Close())
	}
	return errors.Join(errs...)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
