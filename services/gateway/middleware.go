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
	"time"

	"github.com/gin-gonic/gin"

	"github.com/koustavx08/web3-todo-dapp/pkg/logging"
	"github.com/koustavx08/web3-todo-dapp/services/observability"
)

const requestIDKey = "request_id"

// RequestLogger assigns every request an id, logs it once it completes, and
// records its latency by route template.
func RequestLogger(logger *logging.Logger, metrics *observability.Metrics) gin.HandlerFunc {
	if logger == nil {
		logger = logging.Discard()
	}
	return func(c *gin.Context) {
		start := time.Now()
		requestID := getOrCreateRequestID(c)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()
		metrics.HTTPRequest(c.Request.Method, route, status, elapsed)

		attrs := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		}
		switch {
		case status >= 500:
			logger.Error("request failed", attrs...)
		case status >= 400:
			logger.Warn("request rejected", attrs...)
		default:
			logger.Debug("request served", attrs...)
		}
	}
}
