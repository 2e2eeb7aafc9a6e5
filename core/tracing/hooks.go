// Copyright 2025 The go-evm Authors
// This file is part of the go-evm library.
//
// The go-evm library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-evm library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-evm library. If not, see <http://www.gnu.org/licenses/>.

// Package tracing defines the hooks an embedder can install to observe the
// virtual machine while it executes. Hooks are optional; a nil hook is never
// called. The engine's behavior is identical with and without hooks, they
// exist for debugging and testability only.
package tracing

import (
	"github.com/evmlabs/go-evm/common"
	"github.com/holiman/uint256"
)

// OpContext provides read-only access to the execution scope of the opcode
// being traced. It is implemented by vm.ScopeContext.
type OpContext interface {
	MemoryData() []byte
	StackData() []uint256.Int
	Caller() common.Address
	Address() common.Address
	CallValue() *uint256.Int
	CallInput() []byte
	ContractCode() []byte
}

type (
	// EnterHook is invoked when the processor is about to start executing a
	// frame (call or create). depth is zero for the top-level frame.
	EnterHook = func(depth int, typ byte, from common.Address, to common.Address, input []byte, gas uint64, value *uint256.Int)

	// ExitHook is invoked when the processor is done with a frame. reverted
	// reports whether the frame's state changes were rolled back.
	ExitHook = func(depth int, output []byte, gasUsed uint64, err error, reverted bool)

	// OpcodeHook is invoked just prior to the execution of an opcode.
	OpcodeHook = func(pc uint64, op byte, gas, cost uint64, scope OpContext, rData []byte, depth int, err error)

	// FaultHook is invoked when an error occurs during the execution of an
	// opcode which wasn't reported by the OpcodeHook.
	FaultHook = func(pc uint64, op byte, gas, cost uint64, scope OpContext, depth int, err error)

	// GasChangeHook is invoked whenever the gas of the current frame changes.
	GasChangeHook = func(old, new uint64, reason GasChangeReason)
)

// Hooks is the set of callbacks a tracer registers with the virtual machine.
// Any individual hook may be nil.
type Hooks struct {
	OnEnter     EnterHook
	OnExit      ExitHook
	OnOpcode    OpcodeHook
	OnFault     FaultHook
	OnGasChange GasChangeHook
}

// GasChangeReason is used to indicate the reason for a gas change, useful
// for tracers to handle the gas change.
type GasChangeReason byte

const (
	GasChangeUnspecified GasChangeReason = iota

	// GasChangeCallOpCode is the amount of gas that will be charged for an opcode executed by the EVM.
	GasChangeCallOpCode
	// GasChangeCallStorageColdAccess is the amount of gas that will be charged for a cold storage access.
	GasChangeCallStorageColdAccess
	// GasChangeCallContractCreation is the amount of gas that will be burned for a CREATE.
	GasChangeCallContractCreation
	// GasChangeCallContractCreation2 is the amount of gas that will be burned for a CREATE2.
	GasChangeCallContractCreation2
	// GasChangeCallCodeStorage is the amount of gas that will be charged for code storage.
	GasChangeCallCodeStorage
	// GasChangeCallPrecompiledContract is the amount of gas that will be charged for a precompiled contract execution.
	GasChangeCallPrecompiledContract
	// GasChangeCallFailedExecution is the burning of the remaining gas when the execution failed without a revert.
	GasChangeCallFailedExecution
	// GasChangeCallLeftOverRefunded is the amount of gas refunded to the caller after the execution of a sub-call.
	GasChangeCallLeftOverRefunded
	// GasChangeWitnessContractCollisionCheck flags the event of adding to the witness when checking for contract address collision.
	GasChangeWitnessContractCollisionCheck

	// GasChangeIgnored is a special value that can be used to indicate that the gas change should be ignored as
	// it will be "manually" tracked by a direct emit of the gas change event.
	GasChangeIgnored GasChangeReason = 0xFF
)
