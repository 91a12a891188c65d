// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gateway serves the task list over HTTP for browser and script
// clients.
//
// # Description
//
// The gateway is a thin gin layer over the same wallet session and task
// service the terminal UI uses. Each write blocks until its transaction is
// mined and answers with the receipt. Notifications are streamed over a
// WebSocket at /v1/notifications/ws.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/koustavx08/web3-todo-dapp/pkg/logging"
	"github.com/koustavx08/web3-todo-dapp/services/ledger"
	"github.com/koustavx08/web3-todo-dapp/services/notify"
	"github.com/koustavx08/web3-todo-dapp/services/observability"
	"github.com/koustavx08/web3-todo-dapp/services/storage"
	"github.com/koustavx08/web3-todo-dapp/services/tasks"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

// ServiceVersion is the gateway API version.
const ServiceVersion = "0.1.0"

// HandlersConfig configures Handlers.
type HandlersConfig struct {
	Session *wallet.Session
	Service *tasks.Service

	// Bus feeds the notification endpoints. May be nil.
	Bus *notify.Bus

	// Uploader is only consulted for /health. May be nil.
	Uploader *storage.Uploader

	// Logs backs GET /v1/logs. May be nil.
	Logs *logging.Recent

	Logger  *logging.Logger
	Metrics *observability.Metrics
}

// Handlers contains the HTTP handlers for the gateway.
type Handlers struct {
	session  *wallet.Session
	svc      *tasks.Service
	bus      *notify.Bus
	uploader *storage.Uploader
	logs     *logging.Recent
	logger   *logging.Logger
	metrics  *observability.Metrics
}

// NewHandlers creates handlers for the given session and service.
func NewHandlers(cfg HandlersConfig) *Handlers {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Handlers{
		session:  cfg.Session,
		svc:      cfg.Service,
		bus:      cfg.Bus,
		uploader: cfg.Uploader,
		logs:     cfg.Logs,
		logger:   cfg.Logger.With("component", "gateway"),
		metrics:  cfg.Metrics,
	}
}

// =============================================================================
// Health
// =============================================================================

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	resp := HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
		Network: h.session.Network().Name,
		Storage: h.uploader.Backend(),
	}
	if addr := h.svc.ContractAddress(); addr != (common.Address{}) {
		resp.Contract = addr.Hex()
	}
	c.JSON(http.StatusOK, resp)
}

// =============================================================================
// Wallet
// =============================================================================

// HandleWallet handles GET /v1/wallet.
func (h *Handlers) HandleWallet(c *gin.Context) {
	c.JSON(http.StatusOK, h.walletResponse())
}

// HandleConnect handles POST /v1/wallet/connect.
//
// Description:
//
//	Prompts the wallet for account access. When the wallet is on another
//	chain the session reports it; the client then calls /switch.
//
// Response:
//
//	200 OK: WalletResponse
//	409 Conflict: The user rejected the request
//	503 Service Unavailable: No wallet provider
func (h *Handlers) HandleConnect(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleConnect")

	if err := h.session.Connect(c.Request.Context()); err != nil {
		logger.Warn("wallet connect failed", "error", err)
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.walletResponse())
}

// HandleSwitchNetwork handles POST /v1/wallet/switch.
func (h *Handlers) HandleSwitchNetwork(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleSwitchNetwork")

	if err := h.session.SwitchNetwork(c.Request.Context()); err != nil {
		logger.Warn("network switch failed", "error", err)
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.walletResponse())
}

// HandleDisconnect handles POST /v1/wallet/disconnect. Only local state
// is cleared.
func (h *Handlers) HandleDisconnect(c *gin.Context) {
	h.session.Disconnect()
	h.svc.Clear()
	c.JSON(http.StatusOK, h.walletResponse())
}

// HandleView handles GET /v1/view.
func (h *Handlers) HandleView(c *gin.Context) {
	resp := ViewResponse{View: h.svc.View()}
	if addr := h.svc.ContractAddress(); addr != (common.Address{}) {
		resp.Contract = addr.Hex()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) walletResponse() WalletResponse {
	state := h.session.State()
	return WalletResponse{
		State:        state,
		ShortAccount: state.ShortAccount(),
		Network:      h.session.Network(),
		View:         h.svc.View(),
	}
}

// =============================================================================
// Tasks
// =============================================================================

// HandleListTasks handles GET /v1/tasks.
//
// Description:
//
//	Re-reads the connected account's tasks and stats from the contract and
//	returns them with per-task capabilities.
//
// Response:
//
//	200 OK: TasksResponse
//	409 Conflict: Wallet disconnected, wrong network, or no contract
//	500 Internal Server Error: The task list could not be read
func (h *Handlers) HandleListTasks(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleListTasks")

	if err := h.requireTasksView(); err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.svc.Refresh(c.Request.Context()); err != nil {
		logger.Warn("task refresh failed", "error", err)
		h.writeError(c, err)
		return
	}

	snap := h.svc.Snapshot()
	resp := TasksResponse{
		Tasks:   make([]TaskResponse, 0, len(snap.Tasks)),
		Stats:   snap.Stats,
		Loading: snap.Loading,
	}
	for _, t := range snap.Tasks {
		resp.Tasks = append(resp.Tasks, h.taskResponse(t))
	}
	c.JSON(http.StatusOK, resp)
}

// HandleGetTask handles GET /v1/tasks/:id.
func (h *Handlers) HandleGetTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	if err := h.requireTasksView(); err != nil {
		h.writeError(c, err)
		return
	}
	task, err := h.svc.GetTask(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.taskResponse(task))
}

// HandleStats handles GET /v1/stats.
func (h *Handlers) HandleStats(c *gin.Context) {
	if err := h.requireTasksView(); err != nil {
		h.writeError(c, err)
		return
	}
	stats, err := h.svc.FetchStats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, StatsResponse{UserStats: stats, CompletionRate: stats.CompletionRate()})
}

// HandleCreateTask handles POST /v1/tasks.
//
// Request Body:
//
//	CreateTaskRequest
//
// Response:
//
//	200 OK: TxResponse
//	400 Bad Request: Missing title
//	409 Conflict: Contract unavailable or the user rejected the transaction
//	422 Unprocessable Entity: The transaction reverted
func (h *Handlers) HandleCreateTask(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleCreateTask")

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	logger.Info("creating task", "title_len", len(req.Title), "description_len", len(req.Description))
	receipt, err := h.svc.CreateTask(c.Request.Context(), req.Title, req.Description)
	h.writeTx(c, logger, receipt, err)
}

// HandleCompleteTask handles POST /v1/tasks/:id/complete.
func (h *Handlers) HandleCompleteTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	logger := h.logger.With("request_id", getOrCreateRequestID(c), "handler", "HandleCompleteTask", "task_id", id)
	receipt, err := h.svc.CompleteTask(c.Request.Context(), id)
	h.writeTx(c, logger, receipt, err)
}

// HandleDelegateTask handles POST /v1/tasks/:id/delegate.
func (h *Handlers) HandleDelegateTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	logger := h.logger.With("request_id", getOrCreateRequestID(c), "handler", "HandleDelegateTask", "task_id", id)

	var req DelegateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}
	receipt, err := h.svc.DelegateTask(c.Request.Context(), id, req.To)
	h.writeTx(c, logger, receipt, err)
}

// HandleDeleteTask handles DELETE /v1/tasks/:id.
func (h *Handlers) HandleDeleteTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	logger := h.logger.With("request_id", getOrCreateRequestID(c), "handler", "HandleDeleteTask", "task_id", id)
	receipt, err := h.svc.DeleteTask(c.Request.Context(), id)
	h.writeTx(c, logger, receipt, err)
}

// HandleMintTask handles POST /v1/tasks/:id/mint. The response carries
// the minted token id and its explorer link.
func (h *Handlers) HandleMintTask(c *gin.Context) {
	id, ok := h.taskID(c)
	if !ok {
		return
	}
	logger := h.logger.With("request_id", getOrCreateRequestID(c), "handler", "HandleMintTask", "task_id", id)
	receipt, err := h.svc.MintTaskAsNFT(c.Request.Context(), id)
	h.writeTx(c, logger, receipt, err)
}

func (h *Handlers) taskResponse(t ledger.Task) TaskResponse {
	resp := TaskResponse{
		Task:         t,
		Capabilities: tasks.CapabilitiesFor(t, h.session.State().AccountAddress()),
	}
	if t.IsNFT {
		resp.ExplorerURL = h.session.Network().ExplorerTokenURL(h.svc.ContractAddress().Hex(), t.NFTTokenID)
	}
	return resp
}

func (h *Handlers) taskID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Task id must be a non-negative integer",
			Code:  "INVALID_TASK_ID",
		})
		return 0, false
	}
	return id, true
}

func (h *Handlers) requireTasksView() error {
	if h.svc.View() != tasks.ViewTasks {
		return tasks.ErrContractUnavailable
	}
	return nil
}

func (h *Handlers) writeTx(c *gin.Context, logger *logging.Logger, receipt *ledger.Receipt, err error) {
	if err != nil {
		logger.Warn("transaction failed", "error", err)
		h.writeError(c, err)
		return
	}
	resp := TxResponse{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber,
		Events:      receipt.Events,
	}
	if ev, ok := receipt.Event(ledger.EventTaskMintedAsNFT); ok {
		tokenID := ev.TokenID
		resp.TokenID = &tokenID
		resp.ExplorerURL = h.session.Network().ExplorerTokenURL(h.svc.ContractAddress().Hex(), tokenID)
	}
	logger.Info("transaction confirmed", "tx", resp.TxHash, "block", resp.BlockNumber)
	c.JSON(http.StatusOK, resp)
}

// =============================================================================
// Notifications
// =============================================================================

// HandleNotifications handles GET /v1/notifications. It returns the
// latest notification of every id, whatever its level or age.
func (h *Handlers) HandleNotifications(c *gin.Context) {
	resp := NotificationsResponse{Notifications: []notify.Notification{}}
	if h.bus != nil {
		resp.Notifications = append(resp.Notifications, h.bus.Active()...)
	}
	c.JSON(http.StatusOK, resp)
}

// HandleLogs handles GET /v1/logs.
//
// Query parameters: level (debug|info|warn|error, default warn) and limit
// (default 100). Entries are oldest first.
func (h *Handlers) HandleLogs(c *gin.Context) {
	if h.logs == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "log buffer not configured",
			Code:  "LOGS_UNAVAILABLE",
		})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "limit must be a non-negative integer",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	level := logging.ParseLevel(c.DefaultQuery("level", "warn"))
	c.JSON(http.StatusOK, LogsResponse{Entries: h.logs.Entries(level, limit)})
}

// =============================================================================
// Errors
// =============================================================================

// writeError maps a service error to a status code and error code.
func (h *Handlers) writeError(c *gin.Context, err error) {
	status, code := classify(err)
	resp := ErrorResponse{Error: err.Error(), Code: code}
	if reason := ledger.Reason(err); reason != "" {
		resp.Details = reason
	}
	c.JSON(status, resp)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, tasks.ErrSensitiveContent):
		return http.StatusUnprocessableEntity, "SENSITIVE_CONTENT"
	case errors.Is(err, tasks.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, tasks.ErrTaskNotFound):
		return http.StatusNotFound, "TASK_NOT_FOUND"
	case errors.Is(err, tasks.ErrNotPermitted):
		return http.StatusForbidden, "NOT_PERMITTED"
	case errors.Is(err, tasks.ErrContractUnavailable):
		return http.StatusConflict, "CONTRACT_UNAVAILABLE"
	case errors.Is(err, wallet.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, "NO_WALLET"
	case errors.Is(err, wallet.ErrUserRejected):
		return http.StatusConflict, "USER_REJECTED"
	case errors.Is(err, wallet.ErrNotConnected):
		return http.StatusConflict, "NOT_CONNECTED"
	case errors.Is(err, wallet.ErrNetworkMismatch):
		return http.StatusConflict, "WRONG_NETWORK"
	case errors.Is(err, ledger.ErrTransactionReverted):
		return http.StatusUnprocessableEntity, "REVERTED"
	case isRejectedCall(err):
		return http.StatusUnprocessableEntity, "REVERTED"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, context.Canceled):
		return 499, "CANCELED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// isRejectedCall reports a write the wallet refused to submit because its
// gas estimation reverted.
func isRejectedCall(err error) bool {
	pe, ok := wallet.AsProviderError(err)
	return ok && pe.Code == wallet.CodeInternal
}

// getOrCreateRequestID returns the caller's X-Request-ID or a new one, and
// echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDKey, requestID)
	c.Header("X-Request-ID", requestID)
	return requestID
}
