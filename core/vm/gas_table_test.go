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

package vm

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/evmlabs/go-evm/common"
	"github.com/evmlabs/go-evm/core/state"
	"github.com/evmlabs/go-evm/params"
	"github.com/holiman/uint256"
)

func TestMemoryGasCost(t *testing.T) {
	tests := []struct {
		size     uint64
		cost     uint64
		overflow bool
	}{
		{0x1fffffffe0, 36028809887088637, false},
		{0x1fffffffe1, 0, true},
	}
	for i, tt := range tests {
		v, err := memoryGasCost(&Memory{}, tt.size)
		if (err == ErrGasUintOverflow) != tt.overflow {
			t.Errorf("test %d: overflow mismatch: have %v, want %v", i, err == ErrGasUintOverflow, tt.overflow)
		}
		if v != tt.cost {
			t.Errorf("test %d: gas cost mismatch: have %v, want %v", i, v, tt.cost)
		}
	}
}

func TestMemoryGasHighWater(t *testing.T) {
	// Expanding to a size already paid for must cost nothing.
	mem := NewMemory()
	fee, err := memoryGasCost(mem, 64)
	if err != nil {
		t.Fatal(err)
	}
	if want := uint64(2*params.MemoryGas + (2*2)/params.QuadCoeffDiv); fee != want {
		t.Errorf("first expansion: have %d, want %d", fee, want)
	}
	mem.Resize(64)
	mem.lastGasCost = fee
	fee, err = memoryGasCost(mem, 32)
	if err != nil {
		t.Fatal(err)
	}
	if fee != 0 {
		t.Errorf("shrinking expansion charged %d, want 0", fee)
	}
}

// eip2200Tests come from the EIP-2200 gas accounting examples, run against
// an Istanbul chain where the net gas metering is live but the Berlin
// cold/warm surcharges are not.
var eip2200Tests = []struct {
	original byte
	gaspool  uint64
	input    string
	used     uint64
	refund   uint64
	failure  error
}{
	{0, math.MaxUint64, "0x60006000556000600055", 1612, 0, nil},    // 0x00 -> 0x00 -> 0x00
	{0, math.MaxUint64, "0x60006000556001600055", 20812, 0, nil},   // 0x00 -> 0x00 -> 0x01
	{0, math.MaxUint64, "0x60016000556000600055", 20812, 19200, nil}, // 0x00 -> 0x01 -> 0x00
	{0, math.MaxUint64, "0x60016000556002600055", 20812, 0, nil},   // 0x00 -> 0x01 -> 0x02
	{0, math.MaxUint64, "0x60016000556001600055", 20812, 0, nil},   // 0x00 -> 0x01 -> 0x01
	{1, math.MaxUint64, "0x60006000556000600055", 5812, 15000, nil}, // 0x01 -> 0x00 -> 0x00
	{1, math.MaxUint64, "0x60006000556001600055", 5812, 4200, nil},  // 0x01 -> 0x00 -> 0x01
	{1, math.MaxUint64, "0x60006000556002600055", 5812, 0, nil},     // 0x01 -> 0x00 -> 0x02
	{1, math.MaxUint64, "0x60026000556000600055", 5812, 15000, nil}, // 0x01 -> 0x02 -> 0x00
	{1, math.MaxUint64, "0x60026000556003600055", 5812, 0, nil},     // 0x01 -> 0x02 -> 0x03
	{1, math.MaxUint64, "0x60026000556001600055", 5812, 4200, nil},  // 0x01 -> 0x02 -> 0x01
	{1, math.MaxUint64, "0x60026000556002600055", 5812, 0, nil},     // 0x01 -> 0x02 -> 0x02
	{1, math.MaxUint64, "0x60016000556000600055", 5812, 15000, nil}, // 0x01 -> 0x01 -> 0x00
	{1, math.MaxUint64, "0x60016000556002600055", 5812, 0, nil},     // 0x01 -> 0x01 -> 0x02
	{1, math.MaxUint64, "0x60016000556001600055", 1612, 0, nil},     // 0x01 -> 0x01 -> 0x01
	{0, math.MaxUint64, "0x600160005560006000556001600055", 40818, 19200, nil}, // 0x00 -> 0x01 -> 0x00 -> 0x01
	{1, math.MaxUint64, "0x600060005560016000556000600055", 10818, 19200, nil}, // 0x01 -> 0x00 -> 0x01 -> 0x00
	{1, 2306, "0x6001600055", 2306, 0, ErrOutOfGas}, // gas pool at the sentry level
	{1, 2307, "0x6001600055", 806, 0, nil},          // one above the sentry
}

func istanbulChainConfig() *params.ChainConfig {
	return &params.ChainConfig{
		ChainID:             big.NewInt(1),
		HomesteadBlock:      big.NewInt(0),
		EIP150Block:         big.NewInt(0),
		EIP155Block:         big.NewInt(0),
		EIP158Block:         big.NewInt(0),
		ByzantiumBlock:      big.NewInt(0),
		ConstantinopleBlock: big.NewInt(0),
		PetersburgBlock:     big.NewInt(0),
		IstanbulBlock:       big.NewInt(0),
	}
}

func TestEIP2200(t *testing.T) {
	for i, tt := range eip2200Tests {
		address := common.BytesToAddress([]byte("contract"))
		reader := state.NewMemoryReader()
		reader.SetCode(address, common.FromHex(tt.input))
		reader.SetStorage(address, map[common.Hash]common.Hash{
			{}: common.BytesToHash([]byte{tt.original}),
		})
		statedb := state.New(reader)

		vmctx := BlockContext{
			BlockNumber: big.NewInt(0),
			CanTransfer: func(StateDB, common.Address, *uint256.Int) bool { return true },
			Transfer:    func(StateDB, common.Address, common.Address, *uint256.Int) {},
		}
		vmenv := NewEVM(vmctx, statedb, istanbulChainConfig(), Config{})

		_, gas, err := vmenv.Call(common.Address{}, address, nil, tt.gaspool, new(uint256.Int))
		if !errors.Is(err, tt.failure) {
			t.Errorf("test %d: failure mismatch: have %v, want %v", i, err, tt.failure)
		}
		if used := tt.gaspool - gas; used != tt.used {
			t.Errorf("test %d: gas used mismatch: have %v, want %v", i, used, tt.used)
		}
		if refund := vmenv.StateDB.GetRefund(); refund != tt.refund {
			t.Errorf("test %d: gas refund mismatch: have %v, want %v", i, refund, tt.refund)
		}
	}
}

var createGasTests = []struct {
	code    string
	eip3860 bool
	gasUsed uint64
}{
	// legacy create(0, 0, 0xc000) _without_ 3860
	{"0x61C00060006000f0" + "600052" + "60206000F3", false, 41237},
	// create(0, 0, 0xc000) _with_ 3860: two extra InitCodeWordGas per word
	{"0x61C00060006000f0" + "600052" + "60206000F3", true, 44309},
	// create2(0, 0, 0xc001, 0) without 3860
	{"0x600061C00160006000f5" + "600052" + "60206000F3", false, 50471},
}

func newCreateGasEVM(code string, eip3860 bool) *EVM {
	address := common.BytesToAddress([]byte("contract"))
	reader := state.NewMemoryReader()
	reader.SetCode(address, common.FromHex(code))
	statedb := state.New(reader)

	vmctx := BlockContext{
		BlockNumber: big.NewInt(0),
		CanTransfer: func(StateDB, common.Address, *uint256.Int) bool { return true },
		Transfer:    func(StateDB, common.Address, common.Address, *uint256.Int) {},
	}
	config := Config{}
	if eip3860 {
		config.ExtraEips = []int{3860}
	}
	chainConfig := istanbulChainConfig()
	chainConfig.BerlinBlock = big.NewInt(0)
	return NewEVM(vmctx, statedb, chainConfig, config)
}

func TestCreateGas(t *testing.T) {
	address := common.BytesToAddress([]byte("contract"))
	for i, tt := range createGasTests {
		vmenv := newCreateGasEVM(tt.code, tt.eip3860)

		startGas := uint64(testGas)
		ret, gas, err := vmenv.Call(common.Address{}, address, nil, startGas, new(uint256.Int))
		if err != nil {
			t.Errorf("test %d: execution failed: %v", i, err)
			continue
		}
		if len(ret) != 32 {
			t.Errorf("test %d: expected 32 bytes returned, have %d", i, len(ret))
		}
		if gasUsed := startGas - gas; gasUsed != tt.gasUsed {
			t.Errorf("test %d: gas used mismatch: have %v, want %v", i, gasUsed, tt.gasUsed)
		}
	}
}

func TestCreateGasInitCodeTooLarge(t *testing.T) {
	// create2(0, 0, 0xc001, 0) with 3860: one byte over the initcode limit.
	// The size check fires in the dynamic gas calculation, so the frame
	// aborts out-of-gas and the remaining gas is consumed.
	address := common.BytesToAddress([]byte("contract"))
	vmenv := newCreateGasEVM("0x600061C00160006000f5"+"600052"+"60206000F3", true)

	_, gas, err := vmenv.Call(common.Address{}, address, nil, testGas, new(uint256.Int))
	if !errors.Is(err, ErrOutOfGas) {
		t.Fatalf("expected out of gas, have %v", err)
	}
	if gas != 0 {
		t.Fatalf("expected all gas consumed, have %d left", gas)
	}
}

const testGas = 10_000_000
