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
	"github.com/gin-gonic/gin"

	"github.com/koustavx08/web3-todo-dapp/services/observability"
)

// RegisterRoutes registers all gateway routes with the router.
//
// Description:
//
//	Health and metrics live at the root; everything else is under /v1.
//
// Wallet Endpoints:
//
//	GET  /v1/wallet - Current connection state and view
//	POST /v1/wallet/connect - Prompt the wallet for account access
//	POST /v1/wallet/switch - Switch (or add) the expected network
//	POST /v1/wallet/disconnect - Forget the local session
//	GET  /v1/view - Which screen the client should show
//
// Task Endpoints:
//
//	GET    /v1/tasks - List the account's tasks
//	POST   /v1/tasks - Create a task
//	GET    /v1/tasks/:id - Read one task
//	DELETE /v1/tasks/:id - Delete a task
//	POST   /v1/tasks/:id/complete - Complete a task
//	POST   /v1/tasks/:id/delegate - Delegate a task
//	POST   /v1/tasks/:id/mint - Mint a completed task as an NFT
//	GET    /v1/stats - Productivity stats
//
// Notification Endpoints:
//
//	GET /v1/notifications - Active notifications
//	GET /v1/notifications/ws - Notification stream
//	GET /v1/logs - Recent log entries
func RegisterRoutes(router *gin.Engine, handlers *Handlers, metrics *observability.Metrics) {
	router.GET("/health", handlers.HandleHealth)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	v1 := router.Group("/v1")
	{
		v1.GET("/wallet", handlers.HandleWallet)
		v1.POST("/wallet/connect", handlers.HandleConnect)
		v1.POST("/wallet/switch", handlers.HandleSwitchNetwork)
		v1.POST("/wallet/disconnect", handlers.HandleDisconnect)
		v1.GET("/view", handlers.HandleView)

		v1.GET("/tasks", handlers.HandleListTasks)
		v1.POST("/tasks", handlers.HandleCreateTask)
		v1.GET("/tasks/:id", handlers.HandleGetTask)
		v1.DELETE("/tasks/:id", handlers.HandleDeleteTask)
		v1.POST("/tasks/:id/complete", handlers.HandleCompleteTask)
		v1.POST("/tasks/:id/delegate", handlers.HandleDelegateTask)
		v1.POST("/tasks/:id/mint", handlers.HandleMintTask)
		v1.GET("/stats", handlers.HandleStats)

		v1.GET("/notifications", handlers.HandleNotifications)
		v1.GET("/notifications/ws", handlers.HandleNotificationStream)
		v1.GET("/logs", handlers.HandleLogs)
	}
}
