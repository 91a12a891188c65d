// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/koustavx08/web3-todo-dapp/pkg/logging"
	"github.com/koustavx08/web3-todo-dapp/services/ledger"
	"github.com/koustavx08/web3-todo-dapp/services/notify"
	"github.com/koustavx08/web3-todo-dapp/services/observability"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

const operation = "deploy"

// Config configures a Deployer.
type Config struct {
	// Session supplies the provider and the deploying account. Required.
	Session *wallet.Session

	// PollInterval is how often the receipt is polled.
	PollInterval time.Duration

	Notifier notify.Notifier
	Logger   *logging.Logger
	Metrics  *observability.Metrics
}

// Result describes a deployed contract.
type Result struct {
	Address     common.Address `json:"address"`
	TxHash      common.Hash    `json:"transactionHash"`
	BlockNumber uint64         `json:"blockNumber"`
	Deployer    common.Address `json:"deployer"`
}

// Deployer sends contract-creation transactions.
type Deployer struct {
	session      *wallet.Session
	pollInterval time.Duration
	notifier     notify.Notifier
	logger       *logging.Logger
	metrics      *observability.Metrics
}

// NewDeployer creates a Deployer.
func NewDeployer(cfg Config) (*Deployer, error) {
	if cfg.Session == nil {
		return nil, errors.New("deploy: session is required")
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Deployer{
		session:      cfg.Session,
		pollInterval: cfg.PollInterval,
		notifier:     cfg.Notifier,
		logger:       cfg.Logger.With("component", "deploy"),
		metrics:      cfg.Metrics,
	}, nil
}

// Deploy publishes the artifact's bytecode and waits for one confirmation.
//
// # Description
//
// The wallet must be on the configured network. Its selected account
// signs the creation transaction. Deploy waits as long as ctx allows.
//
// # Outputs
//
//   - Result: the new contract address and the creation transaction.
//   - error: ErrNoBytecode, ErrIncompatibleABI, wallet errors,
//     ledger.ErrTransactionReverted, or ErrNoContractAddress.
func (d *Deployer) Deploy(ctx context.Context, artifact Artifact) (_ Result, err error) {
	ctx, span := observability.StartSpan(ctx, "deploy.Deploy")
	defer func() { observability.EndSpan(span, err) }()

	code, err := artifact.Code()
	if err != nil {
		notify.Error(d.notifier, notify.IDDeploy, "Artifact has no deployable bytecode")
		return Result{}, err
	}
	if err := artifact.CheckABI(); err != nil {
		notify.Error(d.notifier, notify.IDDeploy, "Artifact is not a TodoList contract")
		return Result{}, err
	}

	account, err := d.session.RequestAccounts(ctx)
	if err != nil {
		notify.Error(d.notifier, notify.IDDeploy, failureMessage(err))
		return Result{}, err
	}
	if !d.session.State().CorrectNetwork {
		notify.Error(d.notifier, notify.IDDeploy, "Switch to "+d.session.Network().Name+" before deploying")
		return Result{}, wallet.ErrNetworkMismatch
	}

	transactor := ledger.NewTransactor(d.session.Provider(), d.pollInterval, d.logger)
	tx, err := transactor.Send(ctx, account, nil, code)
	if err != nil {
		d.metrics.TxFailed(operation, statusOf(err))
		notify.Error(d.notifier, notify.IDDeploy, failureMessage(err))
		return Result{}, fmt.Errorf("sending creation transaction: %w", err)
	}
	name := artifact.ContractName
	if name == "" {
		name = "contract"
	}
	notify.Loading(d.notifier, notify.IDDeploy, "Deploying "+name+"...")
	d.logger.Info("creation transaction sent", "tx", tx.Hash().Hex(), "deployer", account.Hex())

	done := d.metrics.TxSubmitted(operation)
	receipt, err := tx.Wait(ctx)
	if err != nil {
		done(statusOf(err))
		notify.Error(d.notifier, notify.IDDeploy, failureMessage(err))
		return Result{}, err
	}
	if receipt.ContractAddress == nil || *receipt.ContractAddress == (common.Address{}) {
		done(observability.StatusError)
		notify.Error(d.notifier, notify.IDDeploy, "Deployment produced no contract address")
		return Result{}, ErrNoContractAddress
	}
	done(observability.StatusSuccess)

	res := Result{
		Address:     *receipt.ContractAddress,
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
		Deployer:    account,
	}
	notify.Success(d.notifier, notify.IDDeploy, name+" deployed to: "+res.Address.Hex())
	d.logger.Info("contract deployed", "address", res.Address.Hex(), "block", res.BlockNumber)
	return res, nil
}

func failureMessage(err error) string {
	if reason := ledger.Reason(err); reason != "" {
		return "Deployment failed: " + reason
	}
	return "Deployment failed"
}

func statusOf(err error) string {
	switch {
	case wallet.IsUserRejection(err):
		return observability.StatusRejected
	case errors.Is(err, ledger.ErrTransactionReverted):
		return observability.StatusReverted
	default:
		return observability.StatusError
	}
}
