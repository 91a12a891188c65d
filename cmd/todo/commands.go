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
	"github.com/spf13/cobra"

	"github.com/koustavx08/web3-todo-dapp/pkg/ux"
)

// --- Global Command Variables ---
var (
	configPath       string
	personalityLevel string // full/minimal/machine
	jsonOutput       bool

	taskDescription string
	assumeYes       bool
	artifactPath    string
	saveAddress     bool
	storageName     string
	outputPath      string
	forceInit       bool

	rootCmd = &cobra.Command{
		Use:   "todo",
		Short: "A to-do list that lives on the blockchain",
		Long: `todo manages tasks stored in a TodoList smart contract. Your wallet
signs every change; completed tasks can be minted as NFTs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			switch {
			case jsonOutput:
				ux.SetLevel(ux.PersonalityMachine)
			case personalityLevel != "":
				ux.SetLevel(ux.ParseLevel(personalityLevel))
			default:
				ux.InitPersonality()
			}
		},
	}

	// --- Wallet ---
	walletCmd = &cobra.Command{
		Use:   "wallet",
		Short: "Connect and inspect the wallet",
	}
	walletConnectCmd = &cobra.Command{
		Use:   "connect",
		Short: "Ask the wallet for account access",
		Args:  cobra.NoArgs,
		RunE:  runWalletConnect, // Defined in cmd_wallet.go
	}
	walletStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the connected account and network",
		Args:  cobra.NoArgs,
		RunE:  runWalletStatus,
	}
	walletSwitchCmd = &cobra.Command{
		Use:   "switch",
		Short: "Switch the wallet to the configured network",
		Args:  cobra.NoArgs,
		RunE:  runWalletSwitch,
	}
	walletDisconnectCmd = &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the local connection",
		Args:  cobra.NoArgs,
		RunE:  runWalletDisconnect,
	}

	// --- Tasks ---
	taskCmd = &cobra.Command{
		Use:     "task",
		Short:   "Create and manage tasks",
		Aliases: []string{"tasks", "t"},
	}
	taskListCmd = &cobra.Command{
		Use:     "list",
		Short:   "List your tasks and tasks delegated to you",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE:    runTaskList, // Defined in cmd_task.go
	}
	taskShowCmd = &cobra.Command{
		Use:   "show [task_id]",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE:  runTaskShow,
	}
	taskCreateCmd = &cobra.Command{
		Use:   "create [title]",
		Short: "Create a task (prompts when no title is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTaskCreate,
	}
	taskCompleteCmd = &cobra.Command{
		Use:     "complete [task_id]",
		Short:   "Mark a task as done",
		Aliases: []string{"done"},
		Args:    cobra.ExactArgs(1),
		RunE:    runTaskComplete,
	}
	taskDelegateCmd = &cobra.Command{
		Use:   "delegate [task_id] [address]",
		Short: "Let another account complete a task",
		Args:  cobra.ExactArgs(2),
		RunE:  runTaskDelegate,
	}
	taskDeleteCmd = &cobra.Command{
		Use:     "delete [task_id]",
		Short:   "Delete a task you own",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE:    runTaskDelete,
	}
	taskMintCmd = &cobra.Command{
		Use:   "mint [task_id]",
		Short: "Mint a completed task as an NFT",
		Args:  cobra.ExactArgs(1),
		RunE:  runTaskMint,
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show your productivity stats",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}

	// --- Surfaces ---
	uiCmd = &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE:  runUI, // Defined in cmd_ui.go
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_ui.go
	}

	// --- Deployment ---
	deployCmd = &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the TodoList contract from its compiled artifact",
		Args:  cobra.NoArgs,
		RunE:  runDeploy, // Defined in cmd_deploy.go
	}

	// --- Storage ---
	storageCmd = &cobra.Command{
		Use:   "storage",
		Short: "Put and get content-addressed blobs",
	}
	storagePutCmd = &cobra.Command{
		Use:   "put [file]",
		Short: "Store a file and print its CID",
		Args:  cobra.ExactArgs(1),
		RunE:  runStoragePut, // Defined in cmd_storage.go
	}
	storageGetCmd = &cobra.Command{
		Use:   "get [cid]",
		Short: "Fetch a blob by CID",
		Args:  cobra.ExactArgs(1),
		RunE:  runStorageGet,
	}

	// --- Config ---
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit, // Defined in cmd_config.go
	}
	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config.yaml (default ~/.web3todo/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full, minimal or machine")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletConnectCmd)
	walletCmd.AddCommand(walletStatusCmd)
	walletCmd.AddCommand(walletSwitchCmd)
	walletCmd.AddCommand(walletDisconnectCmd)

	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCreateCmd.Flags().StringVarP(&taskDescription, "description", "d", "", "Task description")
	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskDelegateCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	taskCmd.AddCommand(taskMintCmd)
	rootCmd.AddCommand(statsCmd)

	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(serveCmd)

	rootCmd.AddCommand(deployCmd)
	deployCmd.Flags().StringVar(&artifactPath, "artifact", "", "Hardhat artifact (default from config)")
	deployCmd.Flags().BoolVar(&saveAddress, "save", true, "Write the deployed address to the config file")

	rootCmd.AddCommand(storageCmd)
	storageCmd.AddCommand(storagePutCmd)
	storagePutCmd.Flags().StringVar(&storageName, "name", "", "File name to store under (default: the file's base name)")
	storageCmd.AddCommand(storageGetCmd)
	storageGetCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to a file instead of stdout")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
}
