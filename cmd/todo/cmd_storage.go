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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/koustavx08/web3-todo-dapp/internal/app"
	"github.com/koustavx08/web3-todo-dapp/pkg/ux"
)

var errNoStorage = errors.New("no content storage configured; set storage.backend in the config file or WEB3_STORAGE_TOKEN")

func runStoragePut(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	name := storageName
	if name == "" {
		name = filepath.Base(args[0])
	}
	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app.App) error {
		if !a.Uploader.Available() {
			return errNoStorage
		}
		var cid string
		err := ux.WithSpinner(fmt.Sprintf("Uploading %s to %s...", name, a.Uploader.Backend()), func() error {
			var err error
			cid, err = a.Uploader.PutBytes(ctx, name, data)
			return err
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return ux.JSON(map[string]any{"cid": cid, "name": name, "size": len(data), "backend": a.Uploader.Backend()})
		}
		fmt.Fprintln(cmd.OutOrStdout(), cid)
		return nil
	})
}

func runStorageGet(cmd *cobra.Command, args []string) error {
	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app.App) error {
		if !a.Uploader.Available() {
			return errNoStorage
		}
		data, err := a.Uploader.GetBytes(ctx, args[0])
		if err != nil {
			return err
		}
		if outputPath != "" {
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				return err
			}
			ux.Success(fmt.Sprintf("Wrote %d bytes to %s", len(data), outputPath))
			return nil
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	})
}
