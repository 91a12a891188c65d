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
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// TodoABI is the JSON ABI of the deployed TodoList contract.
const TodoABI = `[
  {"type":"function","name":"createTask","stateMutability":"nonpayable",
   "inputs":[{"name":"_title","type":"string"},{"name":"_description","type":"string"},{"name":"_ipfsHash","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"completeTask","stateMutability":"nonpayable",
   "inputs":[{"name":"_taskId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"delegateTask","stateMutability":"nonpayable",
   "inputs":[{"name":"_taskId","type":"uint256"},{"name":"_to","type":"address"}],"outputs":[]},
  {"type":"function","name":"deleteTask","stateMutability":"nonpayable",
   "inputs":[{"name":"_taskId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"mintTaskAsNFT","stateMutability":"nonpayable",
   "inputs":[{"name":"_taskId","type":"uint256"},{"name":"_tokenURI","type":"string"}],"outputs":[]},
  {"type":"function","name":"getUserTasks","stateMutability":"view",
   "inputs":[{"name":"_user","type":"address"}],
   "outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"getTask","stateMutability":"view",
   "inputs":[{"name":"_taskId","type":"uint256"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"id","type":"uint256"},
     {"name":"title","type":"string"},
     {"name":"description","type":"string"},
     {"name":"ipfsHash","type":"string"},
     {"name":"completed","type":"bool"},
     {"name":"createdAt","type":"uint256"},
     {"name":"completedAt","type":"uint256"},
     {"name":"owner","type":"address"},
     {"name":"delegatedTo","type":"address"},
     {"name":"isNFT","type":"bool"},
     {"name":"nftTokenId","type":"uint256"}]}]},
  {"type":"function","name":"getUserStats","stateMutability":"view",
   "inputs":[{"name":"_user","type":"address"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"totalTasks","type":"uint256"},
     {"name":"completedTasks","type":"uint256"},
     {"name":"currentStreak","type":"uint256"},
     {"name":"lastCompletionDate","type":"uint256"},
     {"name":"maxStreak","type":"uint256"}]}]},
  {"type":"event","name":"TaskCreated","anonymous":false,"inputs":[
     {"name":"taskId","type":"uint256","indexed":true},
     {"name":"owner","type":"address","indexed":true},
     {"name":"title","type":"string","indexed":false}]},
  {"type":"event","name":"TaskCompleted","anonymous":false,"inputs":[
     {"name":"taskId","type":"uint256","indexed":true},
     {"name":"completer","type":"address","indexed":true}]},
  {"type":"event","name":"TaskDeleted","anonymous":false,"inputs":[
     {"name":"taskId","type":"uint256","indexed":true},
     {"name":"owner","type":"address","indexed":true}]},
  {"type":"event","name":"TaskDelegated","anonymous":false,"inputs":[
     {"name":"taskId","type":"uint256","indexed":true},
     {"name":"from","type":"address","indexed":true},
     {"name":"to","type":"address","indexed":true}]},
  {"type":"event","name":"TaskMintedAsNFT","anonymous":false,"inputs":[
     {"name":"taskId","type":"uint256","indexed":true},
     {"name":"tokenId","type":"uint256","indexed":true},
     {"name":"owner","type":"address","indexed":true}]},
  {"type":"event","name":"StreakUpdated","anonymous":false,"inputs":[
     {"name":"user","type":"address","indexed":true},
     {"name":"currentStreak","type":"uint256","indexed":false},
     {"name":"maxStreak","type":"uint256","indexed":false}]}
]`

// Contract method names.
const (
	MethodCreateTask    = "createTask"
	MethodCompleteTask  = "completeTask"
	MethodDelegateTask  = "delegateTask"
	MethodDeleteTask    = "deleteTask"
	MethodMintTaskAsNFT = "mintTaskAsNFT"
	MethodGetUserTasks  = "getUserTasks"
	MethodGetTask       = "getTask"
	MethodGetUserStats  = "getUserStats"
)

// Contract event names.
const (
	EventTaskCreated     = "TaskCreated"
	EventTaskCompleted   = "TaskCompleted"
	EventTaskDeleted     = "TaskDeleted"
	EventTaskDelegated   = "TaskDelegated"
	EventTaskMintedAsNFT = "TaskMintedAsNFT"
	EventStreakUpdated   = "StreakUpdated"
)

var contractABI = mustParseABI(TodoABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("ledger: invalid contract ABI: " + err.Error())
	}
	return parsed
}

// ABI returns the parsed contract ABI.
func ABI() abi.ABI {
	return contractABI
}
