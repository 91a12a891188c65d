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
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// HandleNotificationStream handles GET /v1/notifications/ws.
//
// Description:
//
//	Upgrades to a WebSocket, sends every active notification, then streams
//	each new notification as one JSON message. Client messages are read
//	and discarded; the stream ends when the client goes away.
func (h *Handlers) HandleNotificationStream(c *gin.Context) {
	if h.bus == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "Notifications are not enabled",
			Code:  "NO_NOTIFICATIONS",
		})
		return
	}
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleNotificationStream")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("failed to upgrade the websocket", "error", err)
		return
	}
	defer ws.Close()

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)
	logger.Info("notification stream opened")

	for _, n := range h.bus.Active() {
		ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := ws.WriteJSON(n); err != nil {
			return
		}
	}

	// Reader: answers pongs and notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		ws.SetReadLimit(512)
		ws.SetReadDeadline(time.Now().Add(wsPongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			logger.Info("notification stream closed")
			return
		case n, ok := <-sub:
			if !ok {
				return
			}
			ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteJSON(n); err != nil {
				logger.Warn("failed to write notification", "error", err)
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
