// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tasks

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/koustavx08/web3-todo-dapp/services/ledger"
)

// Attribute is one ERC-721 metadata trait.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Metadata is the ERC-721 token metadata minted for a completed task.
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// DescriptionPayload is uploaded for descriptions at or over the threshold.
type DescriptionPayload struct {
	Description string `json:"description"`
	CreatedAt   int64  `json:"createdAt"`
}

// isoMillis matches the ISO-8601 form wallets and explorers display.
const isoMillis = "2006-01-02T15:04:05.000Z"

// BuildMetadata returns the NFT metadata for t.
func BuildMetadata(t ledger.Task) Metadata {
	completed := t.CompletedAt
	if completed.IsZero() {
		completed = time.Unix(0, 0)
	}
	return Metadata{
		Name:        "Completed Task: " + t.Title,
		Description: t.Description,
		Image:       "https://api.dicebear.com/7.x/shapes/svg?seed=" + url.QueryEscape(t.Title),
		Attributes: []Attribute{
			{TraitType: "Completion Date", Value: completed.UTC().Format(isoMillis)},
			{TraitType: "Task Type", Value: "Todo Completion"},
		},
	}
}

// InlineTokenURI is the fallback token URI when metadata cannot be
// uploaded: the metadata JSON itself.
func InlineTokenURI(m Metadata) string {
	raw, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(raw)
}
