// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package notify

import "github.com/koustavx08/web3-todo-dapp/pkg/logging"

// ToLogger mirrors notifications into a logger. Errors are logged at
// LevelError, loading notifications at LevelDebug, the rest at LevelInfo.
func ToLogger(logger *logging.Logger) Notifier {
	return NotifierFunc(func(n Notification) {
		if logger == nil {
			return
		}
		switch n.Level {
		case LevelError:
			logger.Error("notification", "id", n.ID, "message", n.Message)
		case LevelLoading:
			logger.Debug("notification", "id", n.ID, "message", n.Message)
		default:
			logger.Info("notification", "id", n.ID, "level", string(n.Level), "message", n.Message)
		}
	})
}
