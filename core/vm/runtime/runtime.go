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

package runtime

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/evmlabs/go-evm/common"
	"github.com/evmlabs/go-evm/core/state"
	"github.com/evmlabs/go-evm/core/types"
	"github.com/evmlabs/go-evm/core/vm"
	"github.com/evmlabs/go-evm/crypto"
	"github.com/evmlabs/go-evm/params"
	"github.com/holiman/uint256"
)

// Config is a basic type specifying certain configuration flags for running
// the EVM.
type Config struct {
	ChainConfig *params.ChainConfig
	Difficulty  *big.Int
	Origin      common.Address
	Coinbase    common.Address
	BlockNumber *big.Int
	Time        uint64
	GasLimit    uint64
	GasPrice    *big.Int
	Value       *big.Int
	EVMConfig   vm.Config
	BaseFee     *big.Int
	BlobBaseFee *big.Int
	BlobHashes  []common.Hash
	BlobFeeCap  *big.Int
	Random      *common.Hash

	State     *state.StateDB
	GetHashFn func(n uint64) common.Hash
}

// Status is the coarse outcome of an execution.
type Status int

const (
	// Success means the frame ran to completion and its state changes were kept.
	Success Status = iota
	// Revert means the frame executed REVERT: state changes were rolled back
	// and the remaining gas was returned.
	Revert
	// Halt means the frame failed with a non-revert error and consumed all gas.
	Halt
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Revert:
		return "revert"
	case Halt:
		return "halt"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ExecutionResult is the outcome of one top-level execution, with the engine's
// (ret, leftOverGas, err) triple classified and the refund counter settled.
type ExecutionResult struct {
	Status      Status
	HaltReason  error // the vm error when Status == Halt
	UsedGas     uint64
	RefundedGas uint64
	ReturnData  []byte
	Logs        []*types.Log
}

// Failed reports whether the execution ended in anything but Success.
func (r *ExecutionResult) Failed() bool { return r.Status != Success }

// sets defaults on the config
func setDefaults(cfg *Config) {
	if cfg.ChainConfig == nil {
		cfg.ChainConfig = params.AllProtocolChanges
	}
	if cfg.Difficulty == nil {
		cfg.Difficulty = new(big.Int)
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = math.MaxUint64
	}
	if cfg.GasPrice == nil {
		cfg.GasPrice = new(big.Int)
	}
	if cfg.Value == nil {
		cfg.Value = new(big.Int)
	}
	if cfg.BlockNumber == nil {
		cfg.BlockNumber = new(big.Int)
	}
	if cfg.GetHashFn == nil {
		cfg.GetHashFn = func(n uint64) common.Hash {
			return common.BytesToHash(crypto.Keccak256([]byte(new(big.Int).SetUint64(n).String())))
		}
	}
	if cfg.BaseFee == nil {
		cfg.BaseFee = big.NewInt(params.InitialBaseFee)
	}
	if cfg.BlobBaseFee == nil {
		cfg.BlobBaseFee = new(big.Int).SetUint64(params.BlobTxMinBlobGasprice)
	}
	if cfg.Random == nil {
		cfg.Random = &(common.Hash{})
	}
}

// Execute executes the code using the input as call data during the execution.
// It returns the classified result, the state database holding the resulting
// diff, and an error for malformed configurations.
//
// Execute sets up an in-memory, temporary, environment for the execution of
// the given code. It makes sure that it's restored to its original state afterwards.
func Execute(code, input []byte, cfg *Config) (*ExecutionResult, *state.StateDB, error) {
	if cfg == nil {
		cfg = new(Config)
	}
	setDefaults(cfg)

	if cfg.State == nil {
		cfg.State = state.New(state.NewMemoryReader())
	}
	var (
		address = common.BytesToAddress([]byte("contract"))
		vmenv   = NewEnv(cfg)
		rules   = cfg.ChainConfig.Rules(vmenv.Context.BlockNumber, vmenv.Context.Time)
	)
	// Execute the preparatory steps for state transition which includes:
	// - prepare accessList(post-berlin)
	// - reset transient storage(eip 1153)
	cfg.State.Prepare(rules, cfg.Origin, cfg.Coinbase, &address, vm.ActivePrecompiles(rules), nil)
	cfg.State.CreateAccount(address)
	// set the receiver's (the executing contract) code for execution.
	cfg.State.SetCode(address, code)
	// Call the code with the given configuration.
	ret, leftOverGas, err := vmenv.Call(
		cfg.Origin,
		address,
		input,
		cfg.GasLimit,
		uint256.MustFromBig(cfg.Value),
	)
	return finalize(cfg, rules, ret, leftOverGas, err), cfg.State, nil
}

// Create executes the code using the EVM create method
func Create(input []byte, cfg *Config) (*ExecutionResult, common.Address, error) {
	if cfg == nil {
		cfg = new(Config)
	}
	setDefaults(cfg)

	if cfg.State == nil {
		cfg.State = state.New(state.NewMemoryReader())
	}
	var (
		vmenv = NewEnv(cfg)
		rules = cfg.ChainConfig.Rules(vmenv.Context.BlockNumber, vmenv.Context.Time)
	)
	// Initcode over the limit is a malformed transaction, not a halting
	// execution, so it is rejected up front.
	if rules.IsShanghai && len(input) > params.MaxInitCodeSize {
		return nil, common.Address{}, fmt.Errorf("%w: code size %v, limit %v", vm.ErrMaxInitCodeSizeExceeded, len(input), params.MaxInitCodeSize)
	}
	// Execute the preparatory steps for state transition which includes:
	// - prepare accessList(post-berlin)
	// - reset transient storage(eip 1153)
	cfg.State.Prepare(rules, cfg.Origin, cfg.Coinbase, nil, vm.ActivePrecompiles(rules), nil)

	// Call the code with the given configuration.
	code, address, leftOverGas, err := vmenv.Create(
		cfg.Origin,
		input,
		cfg.GasLimit,
		uint256.MustFromBig(cfg.Value),
	)
	return finalize(cfg, rules, code, leftOverGas, err), address, nil
}

// Call executes the code given by the contract's address. It will return the
// classified result of the execution.
//
// Call, unlike Execute, requires a config and also requires the State field to
// be set.
func Call(address common.Address, input []byte, cfg *Config) (*ExecutionResult, error) {
	setDefaults(cfg)

	if cfg.State == nil {
		return nil, errors.New("call requires a state database")
	}
	var (
		vmenv   = NewEnv(cfg)
		statedb = cfg.State
		rules   = cfg.ChainConfig.Rules(vmenv.Context.BlockNumber, vmenv.Context.Time)
	)
	// Execute the preparatory steps for state transition which includes:
	// - prepare accessList(post-berlin)
	// - reset transient storage(eip 1153)
	statedb.Prepare(rules, cfg.Origin, cfg.Coinbase, &address, vm.ActivePrecompiles(rules), nil)

	// Call the code with the given configuration.
	ret, leftOverGas, err := vmenv.Call(
		cfg.Origin,
		address,
		input,
		cfg.GasLimit,
		uint256.MustFromBig(cfg.Value),
	)
	return finalize(cfg, rules, ret, leftOverGas, err), nil
}

// finalize settles the refund counter against the gas actually used and folds
// the engine's return triple into a tagged result.
func finalize(cfg *Config, rules params.Rules, ret []byte, leftOverGas uint64, err error) *ExecutionResult {
	usedGas := cfg.GasLimit - leftOverGas

	// Refunds only apply to executions that ran to completion. The refund is
	// capped to a quotient of the gas used: 1/2 before London, 1/5 after
	// (EIP-3529).
	var refund uint64
	if err == nil {
		quotient := params.RefundQuotient
		if rules.IsLondon {
			quotient = params.RefundQuotientEIP3529
		}
		refund = usedGas / quotient
		if got := cfg.State.GetRefund(); refund > got {
			refund = got
		}
		usedGas -= refund
	}

	result := &ExecutionResult{
		UsedGas:     usedGas,
		RefundedGas: refund,
		ReturnData:  ret,
	}
	switch {
	case err == nil:
		result.Status = Success
		result.Logs = cfg.State.Logs()
	case errors.Is(err, vm.ErrExecutionReverted):
		result.Status = Revert
	default:
		result.Status = Halt
		result.HaltReason = err
	}
	return result
}
