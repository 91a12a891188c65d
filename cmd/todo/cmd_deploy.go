// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koustavx08/web3-todo-dapp/internal/app"
	"github.com/koustavx08/web3-todo-dapp/pkg/config"
	"github.com/koustavx08/web3-todo-dapp/pkg/ux"
	"github.com/koustavx08/web3-todo-dapp/services/deploy"
)

func runDeploy(cmd *cobra.Command, args []string) error {
	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app.App) error {
		path := artifactPath
		if path == "" {
			path = a.Config.Contract.Artifact
		}
		artifact, err := deploy.LoadArtifact(path)
		if err != nil {
			return fmt.Errorf("%w (compile the contract first, e.g. `npx hardhat compile`)", err)
		}
		if err := ensureConnected(ctx, a); err != nil {
			return err
		}

		deployer, err := a.Deployer()
		if err != nil {
			return err
		}
		res, err := deployer.Deploy(ctx, artifact)
		if err != nil {
			return reported(err)
		}

		if saveAddress {
			if err := saveContractAddress(a.ConfigPath, res.Address.Hex()); err != nil {
				ux.Warning("Could not update the config file: " + err.Error())
			} else if !jsonOutput {
				ux.Muted("Saved contract.address to " + a.ConfigPath)
			}
		}
		if jsonOutput {
			return ux.JSON(res)
		}
		ux.KeyValue([][2]string{
			{"Contract", res.Address.Hex()},
			{"Transaction", res.TxHash.Hex()},
			{"Block", fmt.Sprint(res.BlockNumber)},
			{"Deployer", res.Deployer.Hex()},
		})
		return nil
	})
}

// saveContractAddress rewrites the config file with the new address.
// Environment overrides are not written back.
func saveContractAddress(path, address string) error {
	cfg, err := config.Read(path, nil)
	if err != nil {
		return err
	}
	cfg.Contract.Address = address
	return config.Save(path, *cfg)
}
