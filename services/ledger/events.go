// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var errUnknownEvent = errors.New("unknown event")

// decodeLog turns a contract log into an Event. Logs from other contracts
// or with unknown signatures return errUnknownEvent.
func decodeLog(l rpcLog) (Event, error) {
	if len(l.Topics) == 0 {
		return Event{}, errUnknownEvent
	}
	spec, err := contractABI.EventByID(l.Topics[0])
	if err != nil {
		return Event{}, errUnknownEvent
	}

	fields := make(map[string]any)
	var indexed abi.Arguments
	for _, arg := range spec.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, l.Topics[1:]); err != nil {
		return Event{}, fmt.Errorf("%s topics: %w", spec.Name, err)
	}
	if len(l.Data) > 0 {
		if err := spec.Inputs.NonIndexed().UnpackIntoMap(fields, l.Data); err != nil {
			return Event{}, fmt.Errorf("%s data: %w", spec.Name, err)
		}
	}

	ev := Event{
		Name:          spec.Name,
		TaskID:        uintField(fields, "taskId"),
		TokenID:       uintField(fields, "tokenId"),
		CurrentStreak: uintField(fields, "currentStreak"),
		MaxStreak:     uintField(fields, "maxStreak"),
		To:            addressField(fields, "to"),
	}
	for _, key := range []string{"owner", "completer", "from", "user"} {
		if addr := addressField(fields, key); addr != (common.Address{}) {
			ev.Account = addr
			break
		}
	}
	if title, ok := fields["title"].(string); ok {
		ev.Title = title
	}
	return ev, nil
}

func uintField(fields map[string]any, key string) uint64 {
	v, ok := fields[key].(*big.Int)
	if !ok {
		return 0
	}
	return bigToUint64(v)
}

func addressField(fields map[string]any, key string) common.Address {
	v, _ := fields[key].(common.Address)
	return v
}
