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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

// ErrTransactionReverted matches every reverted transaction.
var ErrTransactionReverted = errors.New("transaction reverted")

// RevertError is returned by PendingTx.Wait when the receipt status is 0.
type RevertError struct {
	TxHash common.Hash
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("transaction %s reverted", e.TxHash.Hex())
	}
	return fmt.Sprintf("transaction %s reverted: %s", e.TxHash.Hex(), e.Reason)
}

// Is makes errors.Is(err, ErrTransactionReverted) work.
func (e *RevertError) Is(target error) bool {
	return target == ErrTransactionReverted
}

// Reason extracts the externally supplied failure message from err: the
// revert reason when one is known, then the wallet's data.message, then
// the wallet's message. It returns "" for errors that carry none.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason
	}
	pe, ok := wallet.AsProviderError(err)
	if !ok {
		return ""
	}
	if msg := pe.DataMessage(); msg != "" {
		return msg
	}
	if msg := revertFromData(pe.Data); msg != "" {
		return msg
	}
	return pe.Message
}

// revertFromData decodes an Error(string) payload carried as a hex string
// in the JSON-RPC error data.
func revertFromData(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return ""
	}
	raw, err := hexutil.Decode(encoded)
	if err != nil {
		return ""
	}
	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		return ""
	}
	return reason
}
