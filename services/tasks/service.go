// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tasks drives the TodoList contract on behalf of the connected
// wallet: it reads the account's tasks and stats, submits writes, waits for
// one confirmation and refetches. It owns no task state of its own beyond
// the last snapshot read from the chain.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"

	"github.com/koustavx08/web3-todo-dapp/pkg/logging"
	"github.com/koustavx08/web3-todo-dapp/services/ledger"
	"github.com/koustavx08/web3-todo-dapp/services/notify"
	"github.com/koustavx08/web3-todo-dapp/services/observability"
	"github.com/koustavx08/web3-todo-dapp/services/policy"
	"github.com/koustavx08/web3-todo-dapp/services/storage"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

// DefaultDescriptionThreshold is the description length, in characters,
// from which descriptions are also uploaded to content storage.
const DefaultDescriptionThreshold = 101

var (
	// ErrContractUnavailable means the wallet is disconnected, on the
	// wrong network, or no contract address is configured.
	ErrContractUnavailable = errors.New("contract not available")

	// ErrNotPermitted means the account may not perform the action.
	ErrNotPermitted = errors.New("action not permitted for this account")

	// ErrTaskNotFound means the task is not in the current snapshot.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidInput means a required argument is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSensitiveContent means a new task was refused because its text
	// looks like it contains a secret. It wraps ErrInvalidInput.
	ErrSensitiveContent = fmt.Errorf("%w: task text looks like it contains a secret", ErrInvalidInput)
)

// ContentPolicy decides what CreateTask does when task text matches a
// screening pattern.
type ContentPolicy string

const (
	PolicyOff   ContentPolicy = "off"
	PolicyWarn  ContentPolicy = "warn"
	PolicyBlock ContentPolicy = "block"
)

// Binder creates a contract handle at address acting as from.
type Binder func(address, from common.Address) ledger.Contract

// Config configures a Service.
type Config struct {
	// Session is the wallet session. Required.
	Session *wallet.Session

	// ContractAddress is the deployed TodoList. The zero address means not
	// deployed yet.
	ContractAddress common.Address

	// Bind overrides how contract handles are built. Default: a
	// ledger.Binding over the session's provider.
	Bind Binder

	// Uploader stores long descriptions and NFT metadata. May be nil.
	Uploader *storage.Uploader

	// DescriptionThreshold overrides DefaultDescriptionThreshold.
	DescriptionThreshold int

	// Screen checks new task text before it is published. May be nil.
	Screen *policy.Engine

	// ContentPolicy applies to Screen findings. Default: PolicyWarn.
	ContentPolicy ContentPolicy

	// PollInterval is passed to the default binder.
	PollInterval time.Duration

	Notifier notify.Notifier
	Logger   *logging.Logger
	Metrics  *observability.Metrics

	// Now stamps uploaded description payloads. Default: time.Now.
	Now func() time.Time
}

// Snapshot is the last read of the account's tasks and stats.
type Snapshot struct {
	Tasks   []ledger.Task     `json:"tasks"`
	Stats   *ledger.UserStats `json:"stats"`
	Loading bool              `json:"loading"`
}

// Task returns the task with id from the snapshot.
func (s Snapshot) Task(id uint64) (ledger.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return ledger.Task{}, false
}

// Service is the task data layer shared by every UI surface.
//
// # Description
//
// Reads: FetchTasks lists the account's task ids and loads each task one by
// one; a task that fails to load is logged and skipped. FetchStats loads
// the aggregates. Writes: each submits one transaction, waits for one
// confirmation, then re-runs both reads. There is no optimistic update and
// no retry; a failed write is reported and left for the user to resubmit.
//
// # Thread Safety
//
// Methods are safe for concurrent use. Concurrent writes are not serialized;
// whichever refetch finishes last defines the snapshot.
type Service struct {
	session   *wallet.Session
	bind      Binder
	uploader  *storage.Uploader
	threshold int
	screen    *policy.Engine
	policy    ContentPolicy
	notifier  notify.Notifier
	logger    *logging.Logger
	metrics   *observability.Metrics
	now       func() time.Time

	mu       sync.RWMutex
	contract common.Address
	snapshot Snapshot
	loading  int
	subs     map[chan Snapshot]struct{}
}

// NewService creates a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("%w: session is required", ErrInvalidInput)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.DescriptionThreshold <= 0 {
		cfg.DescriptionThreshold = DefaultDescriptionThreshold
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	switch cfg.ContentPolicy {
	case "":
		cfg.ContentPolicy = PolicyWarn
	case PolicyOff, PolicyWarn, PolicyBlock:
	default:
		return nil, fmt.Errorf("%w: unknown content policy %q", ErrInvalidInput, cfg.ContentPolicy)
	}
	logger := cfg.Logger.With("component", "tasks")
	if cfg.Bind == nil {
		session, poll := cfg.Session, cfg.PollInterval
		cfg.Bind = func(address, from common.Address) ledger.Contract {
			return ledger.NewBinding(ledger.BindingConfig{
				Provider:     session.Provider(),
				Address:      address,
				From:         from,
				PollInterval: poll,
				Logger:       cfg.Logger,
			})
		}
	}
	return &Service{
		session:   cfg.Session,
		bind:      cfg.Bind,
		uploader:  cfg.Uploader,
		threshold: cfg.DescriptionThreshold,
		screen:    cfg.Screen,
		policy:    cfg.ContentPolicy,
		notifier:  cfg.Notifier,
		logger:    logger,
		metrics:   cfg.Metrics,
		now:       cfg.Now,
		contract:  cfg.ContractAddress,
		subs:      make(map[chan Snapshot]struct{}),
	}, nil
}

// =============================================================================
// Contract availability
// =============================================================================

// ContractAddress returns the configured contract address.
func (s *Service) ContractAddress() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contract
}

// SetContractAddress switches to another deployment and clears the
// snapshot.
func (s *Service) SetContractAddress(addr common.Address) {
	s.mu.Lock()
	changed := s.contract != addr
	s.contract = addr
	if changed {
		s.snapshot.Tasks = nil
		s.snapshot.Stats = nil
	}
	snap := s.snapshotLocked()
	s.publishLocked(snap)
	s.mu.Unlock()
	if changed {
		s.logger.Info("contract address changed", "address", addr.Hex())
	}
}

// View returns the screen to render for the current wallet state.
func (s *Service) View() View {
	return Gate(s.session.State(), s.ContractAddress())
}

// Contract returns a handle for the connected account when the contract is
// available: wallet connected, on the expected network, address set.
func (s *Service) Contract() (ledger.Contract, bool) {
	state := s.session.State()
	addr := s.ContractAddress()
	if Gate(state, addr) != ViewTasks {
		return nil, false
	}
	return s.bind(addr, state.AccountAddress()), true
}

func (s *Service) requireContract(toastID string) (ledger.Contract, error) {
	c, ok := s.Contract()
	if !ok {
		notify.Error(s.notifier, toastID, "Contract not available")
		return nil, ErrContractUnavailable
	}
	return c, nil
}

// =============================================================================
// Reads
// =============================================================================

// Snapshot returns a copy of the last read.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// FetchTasks reloads the connected account's tasks.
//
// # Outputs
//
//   - []ledger.Task: tasks in the order the contract lists them, minus any
//     that failed to load.
//   - error: ErrContractUnavailable, or the id-list failure (already
//     reported as "Failed to fetch tasks").
func (s *Service) FetchTasks(ctx context.Context) (_ []ledger.Task, err error) {
	ctx, span := observability.StartSpan(ctx, "tasks.FetchTasks")
	defer func() { observability.EndSpan(span, err) }()

	contract, ok := s.Contract()
	if !ok {
		return nil, ErrContractUnavailable
	}
	account := s.session.State().AccountAddress()

	s.beginLoading()
	defer s.endLoading()

	ids, err := contract.GetUserTasks(ctx, account)
	s.metrics.ViewCall(ledger.MethodGetUserTasks, err)
	if err != nil {
		s.logger.Error("error fetching tasks", "account", account.Hex(), "error", err)
		notify.Error(s.notifier, notify.IDFetchTasks, "Failed to fetch tasks")
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	fetched := make([]ledger.Task, 0, len(ids))
	for _, id := range ids {
		task, err := contract.GetTask(ctx, id)
		s.metrics.ViewCall(ledger.MethodGetTask, err)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Error("error fetching task", "task_id", id, "error", err)
			continue
		}
		fetched = append(fetched, task)
	}
	span.SetAttributes(attribute.Int("tasks.count", len(fetched)))

	s.mu.Lock()
	s.snapshot.Tasks = fetched
	s.publishLocked(s.snapshotLocked())
	s.mu.Unlock()

	out := make([]ledger.Task, len(fetched))
	copy(out, fetched)
	return out, nil
}

// FetchStats reloads the connected account's stats. Failures are logged
// but not notified.
func (s *Service) FetchStats(ctx context.Context) (_ ledger.UserStats, err error) {
	ctx, span := observability.StartSpan(ctx, "tasks.FetchStats")
	defer func() { observability.EndSpan(span, err) }()

	contract, ok := s.Contract()
	if !ok {
		return ledger.UserStats{}, ErrContractUnavailable
	}
	account := s.session.State().AccountAddress()

	stats, err := contract.GetUserStats(ctx, account)
	s.metrics.ViewCall(ledger.MethodGetUserStats, err)
	if err != nil {
		s.logger.Error("error fetching user stats", "account", account.Hex(), "error", err)
		return ledger.UserStats{}, fmt.Errorf("user stats: %w", err)
	}

	s.mu.Lock()
	s.snapshot.Stats = &stats
	s.publishLocked(s.snapshotLocked())
	s.mu.Unlock()
	return stats, nil
}

// GetTask reads one task from the contract. A task the contract does not
// know is reported as ErrTaskNotFound.
func (s *Service) GetTask(ctx context.Context, id uint64) (_ ledger.Task, err error) {
	ctx, span := observability.StartSpan(ctx, "tasks.GetTask", attribute.Int64("task.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	contract, ok := s.Contract()
	if !ok {
		return ledger.Task{}, ErrContractUnavailable
	}
	task, err := contract.GetTask(ctx, id)
	s.metrics.ViewCall(ledger.MethodGetTask, err)
	if err != nil {
		if strings.Contains(ledger.Reason(err), "does not exist") {
			return ledger.Task{}, fmt.Errorf("task %d: %w", id, ErrTaskNotFound)
		}
		return ledger.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return task, nil
}

// Refresh runs FetchTasks then FetchStats. Stats are fetched even when the
// task list fails. Only the task list error is returned; a stats failure is
// logged by FetchStats.
func (s *Service) Refresh(ctx context.Context) error {
	_, err := s.FetchTasks(ctx)
	_, _ = s.FetchStats(ctx)
	return err
}

// Clear drops the snapshot, as on disconnect.
func (s *Service) Clear() {
	s.mu.Lock()
	s.snapshot.Tasks = nil
	s.snapshot.Stats = nil
	s.publishLocked(s.snapshotLocked())
	s.mu.Unlock()
}

// Run keeps the snapshot in step with the wallet: it refreshes whenever the
// tasks view becomes reachable or the account changes, and clears the
// snapshot when it stops being reachable. It returns when ctx ends.
func (s *Service) Run(ctx context.Context) error {
	updates := s.session.Subscribe()
	defer s.session.Unsubscribe(updates)

	var lastAccount common.Address
	lastView := ViewConnectPrompt
	check := func(state wallet.State) {
		view := Gate(state, s.ContractAddress())
		account := state.AccountAddress()
		switch {
		case view == ViewTasks && (lastView != ViewTasks || account != lastAccount):
			_ = s.Refresh(ctx)
		case view != ViewTasks && lastView == ViewTasks:
			s.Clear()
		}
		lastView, lastAccount = view, account
	}
	check(s.session.State())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state, ok := <-updates:
			if !ok {
				return nil
			}
			check(state)
		}
	}
}

// =============================================================================
// Writes
// =============================================================================

// write is the shared submit → confirm → refetch sequence.
type write struct {
	operation string
	toastID   string
	loading   string
	success   string
	failure   string
}

var (
	opCreate   = write{"create", notify.IDCreateTask, "Creating task...", "Task created successfully!", "Failed to create task"}
	opComplete = write{"complete", notify.IDCompleteTask, "Completing task...", "Task completed successfully!", "Failed to complete task"}
	opDelegate = write{"delegate", notify.IDDelegateTask, "Delegating task...", "Task delegated successfully!", "Failed to delegate task"}
	opDelete   = write{"delete", notify.IDDeleteTask, "Deleting task...", "Task deleted successfully!", "Failed to delete task"}
	opMint     = write{"mint", notify.IDMintNFT, "Minting NFT...", "Task minted as NFT successfully!", "Failed to mint NFT"}
)

func (s *Service) submit(ctx context.Context, op write, contract ledger.Contract,
	send func(ledger.Contract) (ledger.PendingTx, error)) (*ledger.Receipt, error) {

	s.beginLoading()
	defer s.endLoading()

	tx, err := send(contract)
	if err != nil {
		s.metrics.TxFailed(op.operation, txStatus(err))
		s.fail(op, err)
		return nil, err
	}
	notify.Loading(s.notifier, op.toastID, op.loading)

	done := s.metrics.TxSubmitted(op.operation)
	receipt, err := tx.Wait(ctx)
	if err != nil {
		done(txStatus(err))
		s.fail(op, err)
		return receipt, err
	}
	done(observability.StatusSuccess)
	s.logger.Info("transaction confirmed", "operation", op.operation,
		"hash", tx.Hash().Hex(), "block", receipt.BlockNumber)
	notify.Success(s.notifier, op.toastID, op.success)

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("refetch after write failed", "operation", op.operation, "error", err)
	}
	return receipt, nil
}

func (s *Service) fail(op write, err error) {
	s.logger.Error("transaction failed", "operation", op.operation, "error", err)
	msg := ledger.Reason(err)
	if msg == "" {
		msg = op.failure
	}
	notify.Error(s.notifier, op.toastID, msg)
}

func txStatus(err error) string {
	switch {
	case errors.Is(err, wallet.ErrUserRejected):
		return observability.StatusRejected
	case errors.Is(err, ledger.ErrTransactionReverted):
		return observability.StatusReverted
	default:
		return observability.StatusError
	}
}

// checkPermitted rejects the action when the task is in the snapshot and
// the account lacks the capability. Unknown tasks are left to the
// contract.
func (s *Service) checkPermitted(op write, id uint64, actor common.Address, allowed func(Capabilities) bool) error {
	task, ok := s.Snapshot().Task(id)
	if !ok {
		return nil
	}
	if !allowed(CapabilitiesFor(task, actor)) {
		notify.Error(s.notifier, op.toastID, op.failure+": not permitted for this account")
		return fmt.Errorf("%s task %d: %w", op.operation, id, ErrNotPermitted)
	}
	return nil
}

// CreateTask creates a task owned by the connected account.
//
// # Description
//
// Title and description are trimmed; an empty title is rejected. A
// description of at least the threshold length (in characters) is also
// uploaded as {description, createdAt} and the resulting CID stored with
// the task. A failed upload is logged and the task is created with an
// empty pointer.
func (s *Service) CreateTask(ctx context.Context, title, description string) (_ *ledger.Receipt, err error) {
	ctx, span := observability.StartSpan(ctx, "tasks.CreateTask")
	defer func() { observability.EndSpan(span, err) }()

	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if err := s.screenText(title, description); err != nil {
		return nil, err
	}

	contract, err := s.requireContract(opCreate.toastID)
	if err != nil {
		return nil, err
	}

	ipfsHash := ""
	if s.NeedsUpload(description) {
		ipfsHash, err = s.uploader.Upload(ctx, DescriptionPayload{
			Description: description,
			CreatedAt:   s.now().UnixMilli(),
		})
		if err != nil {
			s.logger.Warn("failed to upload description, using empty hash", "error", err)
			ipfsHash, err = "", nil
		}
	}
	span.SetAttributes(attribute.Bool("tasks.uploaded", ipfsHash != ""))

	return s.submit(ctx, opCreate, contract, func(c ledger.Contract) (ledger.PendingTx, error) {
		return c.CreateTask(ctx, title, description, ipfsHash)
	})
}

// screenText runs the content screen over a new task. Under PolicyBlock a
// high-confidence finding is refused; anything else only warns.
func (s *Service) screenText(title, description string) error {
	if s.screen == nil || s.policy == PolicyOff {
		return nil
	}
	findings := s.screen.Scan(title + "\n" + description)
	best, ok := policy.Strongest(findings)
	if !ok {
		return nil
	}
	ids := make([]string, len(findings))
	for i, f := range findings {
		ids[i] = f.PatternID
	}
	s.logger.Warn("task text matched screening patterns", "patterns", ids, "policy", string(s.policy))

	if s.policy == PolicyBlock && best.Confidence.AtLeast(policy.High) {
		notify.Error(s.notifier, opCreate.toastID, "Task not created: it looks like it contains a "+best.Description)
		return fmt.Errorf("%w (%s)", ErrSensitiveContent, best.PatternID)
	}
	notify.Info(s.notifier, notify.IDScreen, "Heads up: this task looks like it contains a "+best.Description+". Task data is public.")
	return nil
}

// NeedsUpload reports whether description is long enough to be uploaded.
func (s *Service) NeedsUpload(description string) bool {
	return utf8.RuneCountInString(description) >= s.threshold
}

// CompleteTask marks a task complete.
//
// Account access is re-requested first. When the contract is not
// available through the session (for example the wallet was never
// connected in this process) it is bound directly at the configured
// address with the returned account.
func (s *Service) CompleteTask(ctx context.Context, id uint64) (_ *ledger.Receipt, err error) {
	ctx, span := observability.StartSpan(ctx, "tasks.CompleteTask", attribute.Int64("task.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	if s.session.Provider() == nil {
		notify.Error(s.notifier, opComplete.toastID, "Wallet provider not found")
		return nil, wallet.ErrProviderUnavailable
	}
	account, err := s.session.RequestAccounts(ctx)
	if err != nil {
		s.fail(opComplete, err)
		return nil, err
	}

	contract, ok := s.Contract()
	if !ok {
		addr := s.ContractAddress()
		if addr == (common.Address{}) {
			notify.Error(s.notifier, opComplete.toastID, "Contract not available")
			return nil, ErrContractUnavailable
		}
		s.logger.Debug("binding contract directly", "address", addr.Hex(), "account", account.Hex())
		contract = s.bind(addr, account)
	}

	if err := s.checkPermitted(opComplete, id, account, func(c Capabilities) bool { return c.Complete }); err != nil {
		return nil, err
	}
	return s.submit(ctx, opComplete, contract, func(c ledger.Contract) (ledger.PendingTx, error) {
		return c.CompleteTask(ctx, id)
	})
}

// DelegateTask lets another account complete the task. to must be a hex
// address.
func (s *Service) DelegateTask(ctx context.Context, id uint64, to string) (_ *ledger.Receipt, err error) {
	ctx, span := observability.StartSpan(ctx, "tasks.DelegateTask", attribute.Int64("task.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	to = strings.TrimSpace(to)
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("%w: %q is not an address", ErrInvalidInput, to)
	}
	delegate := common.HexToAddress(to)
	if delegate == (common.Address{}) {
		return nil, fmt.Errorf("%w: cannot delegate to the zero address", ErrInvalidInput)
	}

	contract, err := s.requireContract(opDelegate.toastID)
	if err != nil {
		return nil, err
	}
	actor := s.session.State().AccountAddress()
	if err := s.checkPermitted(opDelegate, id, actor, func(c Capabilities) bool { return c.Delegate }); err != nil {
		return nil, err
	}
	return s.submit(ctx, opDelegate, contract, func(c ledger.Contract) (ledger.PendingTx, error) {
		return c.DelegateTask(ctx, id, delegate)
	})
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, id uint64) (_ *ledger.Receipt, err error) {
	ctx, span := observability.StartSpan(ctx, "tasks.DeleteTask", attribute.Int64("task.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	contract, err := s.requireContract(opDelete.toastID)
	if err != nil {
		return nil, err
	}
	actor := s.session.State().AccountAddress()
	if err := s.checkPermitted(opDelete, id, actor, func(c Capabilities) bool { return c.Delete }); err != nil {
		return nil, err
	}
	return s.submit(ctx, opDelete, contract, func(c ledger.Contract) (ledger.PendingTx, error) {
		return c.DeleteTask(ctx, id)
	})
}

// MintTaskAsNFT mints a completed task as an ERC-721 token.
//
// # Description
//
// The task must be in the current snapshot. Its metadata is uploaded and
// referenced as ipfs://<cid>; when the upload fails the inline metadata
// JSON becomes the token URI. The minted token id is in the receipt's
// TaskMintedAsNFT event.
func (s *Service) MintTaskAsNFT(ctx context.Context, id uint64) (_ *ledger.Receipt, err error) {
	ctx, span := observability.StartSpan(ctx, "tasks.MintTaskAsNFT", attribute.Int64("task.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	contract, err := s.requireContract(opMint.toastID)
	if err != nil {
		return nil, err
	}
	task, ok := s.Snapshot().Task(id)
	if !ok {
		notify.Error(s.notifier, opMint.toastID, "Task not found")
		return nil, fmt.Errorf("task %d: %w", id, ErrTaskNotFound)
	}
	actor := s.session.State().AccountAddress()
	if err := s.checkPermitted(opMint, id, actor, func(c Capabilities) bool { return c.Mint }); err != nil {
		return nil, err
	}

	metadata := BuildMetadata(task)
	tokenURI := ""
	cid, uploadErr := s.uploader.UploadNamed(ctx, "metadata.json", metadata)
	if uploadErr != nil {
		s.logger.Warn("failed to upload NFT metadata, inlining", "error", uploadErr)
		tokenURI = InlineTokenURI(metadata)
	} else {
		tokenURI = "ipfs://" + cid
	}

	receipt, err := s.submit(ctx, opMint, contract, func(c ledger.Contract) (ledger.PendingTx, error) {
		return c.MintTaskAsNFT(ctx, id, tokenURI)
	})
	if err != nil {
		return receipt, err
	}
	if ev, ok := receipt.Event(ledger.EventTaskMintedAsNFT); ok {
		span.SetAttributes(attribute.Int64("nft.token_id", int64(ev.TokenID)))
		s.logger.Info("task minted", "task_id", id, "token_id", ev.TokenID)
	}
	return receipt, nil
}

// =============================================================================
// Subscriptions
// =============================================================================

// Subscribe returns a channel receiving every snapshot change.
func (s *Service) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 16)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Service) Unsubscribe(ch chan Snapshot) {
	s.mu.Lock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
	s.mu.Unlock()
}

func (s *Service) beginLoading() {
	s.mu.Lock()
	s.loading++
	s.publishLocked(s.snapshotLocked())
	s.mu.Unlock()
}

func (s *Service) endLoading() {
	s.mu.Lock()
	s.loading--
	s.publishLocked(s.snapshotLocked())
	s.mu.Unlock()
}

func (s *Service) snapshotLocked() Snapshot {
	snap := Snapshot{Loading: s.loading > 0}
	if s.snapshot.Tasks != nil {
		snap.Tasks = append([]ledger.Task(nil), s.snapshot.Tasks...)
	}
	if s.snapshot.Stats != nil {
		stats := *s.snapshot.Stats
		snap.Stats = &stats
	}
	return snap
}

// publishLocked fans snap out without blocking. A full subscriber loses its
// oldest buffered snapshot, never the newest one.
func (s *Service) publishLocked(snap Snapshot) {
	for ch := range s.subs {
		for sent := false; !sent; {
			select {
			case ch <- snap:
				sent = true
			default:
				select {
				case <-ch:
				default:
				}
			}
		}
	}
}
