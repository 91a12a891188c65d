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
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/koustavx08/web3-todo-dapp/internal/app"
	"github.com/koustavx08/web3-todo-dapp/pkg/ux"
	"github.com/koustavx08/web3-todo-dapp/services/ledger"
	"github.com/koustavx08/web3-todo-dapp/services/tasks"
)

const dateLayout = "Jan 2, 2006"

// =============================================================================
// Reads
// =============================================================================

func runTaskList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app.App) error {
		if err := ensureTasksView(ctx, a); err != nil {
			return err
		}
		snap := a.Service.Snapshot()
		if jsonOutput {
			return ux.JSON(snap)
		}

		if snap.Stats != nil {
			printStats(*snap.Stats)
			fmt.Fprintln(cmd.OutOrStdout())
		}
		if len(snap.Tasks) == 0 {
			ux.Muted("No tasks yet. Create your first task with `todo task create`.")
			return nil
		}
		ux.Title(fmt.Sprintf("Your Tasks (%d)", len(snap.Tasks)))
		actor := a.Session.State().AccountAddress()
		for _, t := range snap.Tasks {
			fmt.Fprintln(cmd.OutOrStdout(), renderTask(t, actor, false))
		}
		return nil
	})
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app.App) error {
		if err := ensureTasksView(ctx, a); err != nil {
			return err
		}
		t, err := a.Service.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if jsonOutput {
			return ux.JSON(struct {
				ledger.Task
				tasks.Capabilities
			}{t, tasks.CapabilitiesFor(t, a.Session.State().AccountAddress())})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTask(t, a.Session.State().AccountAddress(), true))
		if t.IsNFT {
			if url := a.Session.Network().ExplorerTokenURL(a.Service.ContractAddress().Hex(), t.NFTTokenID); url != "" {
				ux.Muted("View on explorer: " + url)
			}
		}
		return nil
	})
}

func runStats(cmd *cobra.Command, args []string) error {
	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app.App) error {
		if err := ensureTasksView(ctx, a); err != nil {
			return err
		}
		stats, err := a.Service.FetchStats(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return ux.JSON(struct {
				ledger.UserStats
				CompletionRate int `json:"completionRate"`
			}{stats, stats.CompletionRate()})
		}
		printStats(stats)
		return nil
	})
}

func printStats(s ledger.UserStats) {
	ux.Title("Your Stats")
	ux.KeyValue([][2]string{
		{"Total Tasks", fmt.Sprint(s.TotalTasks)},
		{"Completed", fmt.Sprint(s.CompletedTasks)},
		{"Current Streak", fmt.Sprintf("%d days", s.CurrentStreak)},
		{"Best Streak", fmt.Sprintf("%d days", s.MaxStreak)},
		{"Completion Rate", fmt.Sprintf("%d%% %s", s.CompletionRate(), ux.ProgressBar(float64(s.CompletionRate())/100, 20))},
	})
}

// renderTask formats one task card. detail adds the IPFS pointer and the
// actions open to actor.
func renderTask(t ledger.Task, actor common.Address, detail bool) string {
	var b strings.Builder

	mark := ux.IconPending.Render()
	if t.Completed {
		mark = ux.IconSuccess.Render()
	}
	title := t.Title
	if t.Completed && ux.Level() != ux.PersonalityMachine {
		title = ux.Styles.Muted.Strikethrough(true).Render(title)
	}
	fmt.Fprintf(&b, "%s #%d %s", mark, t.ID, title)
	if t.IsNFT {
		b.WriteString(" " + ux.Styles.NFTBadge.Render(fmt.Sprintf("NFT #%d", t.NFTTokenID)))
	}
	if t.IsDelegated() {
		b.WriteString(" " + ux.Styles.Badge.Render("Delegated"))
	}
	b.WriteString("\n")

	if t.Description != "" {
		b.WriteString("    " + t.Description + "\n")
	}
	if t.IsDelegated() {
		b.WriteString("    " + ux.Styles.Muted.Render("Delegated to: "+shortAddress(t.DelegatedTo.Hex())) + "\n")
	}

	var dates []string
	if !t.CreatedAt.IsZero() {
		dates = append(dates, "Created: "+t.CreatedAt.Local().Format(dateLayout))
	}
	if t.Completed && !t.CompletedAt.IsZero() {
		dates = append(dates, "Completed: "+t.CompletedAt.Local().Format(dateLayout))
	}
	if len(dates) > 0 {
		b.WriteString("    " + ux.Styles.Muted.Render(strings.Join(dates, "  ")) + "\n")
	}

	if detail {
		if t.IPFSHash != "" {
			b.WriteString("    " + ux.Styles.Muted.Render("IPFS: "+t.IPFSHash) + "\n")
		}
		caps := tasks.CapabilitiesFor(t, actor)
		var actions []string
		if caps.Complete {
			actions = append(actions, "complete")
		}
		if caps.Delegate {
			actions = append(actions, "delegate")
		}
		if caps.Mint {
			actions = append(actions, "mint")
		}
		if caps.Delete {
			actions = append(actions, "delete")
		}
		if len(actions) > 0 {
			b.WriteString("    " + ux.Styles.Highlight.Render("Actions: "+strings.Join(actions, ", ")) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// =============================================================================
// Writes
// =============================================================================

func runTaskCreate(cmd *cobra.Command, args []string) error {
	title := ""
	if len(args) > 0 {
		title = args[0]
	}
	description := taskDescription

	if strings.TrimSpace(title) == "" {
		if !ux.IsInteractive() {
			return fmt.Errorf("%w: a title is required", tasks.ErrInvalidInput)
		}
		if err := promptNewTask(cmd.Context(), &title, &description); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				ux.Muted("Cancelled")
				return nil
			}
			return err
		}
	}

	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app.App) error {
		if err := ensureTasksView(ctx, a); err != nil {
			return err
		}
		if a.Service.NeedsUpload(strings.TrimSpace(description)) {
			ux.Muted("Long description will also be stored on IPFS")
		}
		receipt, err := a.Service.CreateTask(ctx, title, description)
		if err != nil {
			return reported(err)
		}
		return printReceipt(a, receipt)
	})
}

func promptNewTask(ctx context.Context, title, description *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("title is required")
					}
					return nil
				}),
			huh.NewText().
				Title("Description").
				Description("Long descriptions will be stored on IPFS").
				Value(description),
		),
	)
	return form.RunWithContext(ctx)
}

func runTaskComplete(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app.App) error {
		if err := ensureTasksView(ctx, a); err != nil {
			return err
		}
		receipt, err := a.Service.CompleteTask(ctx, id)
		if err != nil {
			return reported(err)
		}
		if ev, ok := receipt.Event(ledger.EventStreakUpdated); ok && !jsonOutput {
			ux.Info(fmt.Sprintf("Streak: %d days (best %d)", ev.CurrentStreak, ev.MaxStreak))
		}
		return printReceipt(a, receipt)
	})
}

func runTaskDelegate(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	to := strings.TrimSpace(args[1])
	if !common.IsHexAddress(to) {
		return fmt.Errorf("%w: %q is not an address", tasks.ErrInvalidInput, to)
	}
	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app.App) error {
		if err := ensureTasksView(ctx, a); err != nil {
			return err
		}
		receipt, err := a.Service.DelegateTask(ctx, id, to)
		if err != nil {
			return reported(err)
		}
		return printReceipt(a, receipt)
	})
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	if !assumeYes && ux.IsInteractive() {
		confirmed := false
		err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete task #%d?", id)).
				Description("This cannot be undone.").
				Affirmative("Delete").
				Negative("Cancel").
				Value(&confirmed),
		)).RunWithContext(cmd.Context())
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return err
		}
		if !confirmed {
			ux.Muted("Cancelled")
			return nil
		}
	}
	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app.App) error {
		if err := ensureTasksView(ctx, a); err != nil {
			return err
		}
		receipt, err := a.Service.DeleteTask(ctx, id)
		if err != nil {
			return reported(err)
		}
		return printReceipt(a, receipt)
	})
}

func runTaskMint(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app.App) error {
		if err := ensureTasksView(ctx, a); err != nil {
			return err
		}
		receipt, err := a.Service.MintTaskAsNFT(ctx, id)
		if err != nil {
			return reported(err)
		}
		return printReceipt(a, receipt)
	})
}

// txSummary is the machine-readable result of a write.
type txSummary struct {
	TxHash      string `json:"transactionHash"`
	BlockNumber uint64 `json:"blockNumber"`
	TokenID     uint64 `json:"tokenId,omitempty"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
	ConfirmedAt string `json:"confirmedAt"`
}

func printReceipt(a *app.App, receipt *ledger.Receipt) error {
	sum := txSummary{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if ev, ok := receipt.Event(ledger.EventTaskMintedAsNFT); ok {
		sum.TokenID = ev.TokenID
		sum.ExplorerURL = a.Session.Network().ExplorerTokenURL(a.Service.ContractAddress().Hex(), ev.TokenID)
	}
	if jsonOutput {
		return ux.JSON(sum)
	}
	rows := [][2]string{
		{"Transaction", sum.TxHash},
		{"Block", fmt.Sprint(sum.BlockNumber)},
	}
	if sum.TokenID != 0 {
		rows = append(rows, [2]string{"Token", fmt.Sprintf("#%d", sum.TokenID)})
	}
	if sum.ExplorerURL != "" {
		rows = append(rows, [2]string{"Explorer", sum.ExplorerURL})
	}
	ux.KeyValue(rows)
	return nil
}
