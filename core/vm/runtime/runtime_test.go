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
	"math/big"
	"testing"

	"github.com/evmlabs/go-evm/common"
	"github.com/evmlabs/go-evm/core/state"
	"github.com/evmlabs/go-evm/core/tracing"
	"github.com/evmlabs/go-evm/core/vm"
	"github.com/evmlabs/go-evm/crypto"
	"github.com/evmlabs/go-evm/params"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := new(Config)
	setDefaults(cfg)

	if cfg.Difficulty == nil {
		t.Error("expected difficulty to be non nil")
	}
	if cfg.GasLimit == 0 {
		t.Error("didn't expect gaslimit to be zero")
	}
	if cfg.GasPrice == nil {
		t.Error("expected time to be non nil")
	}
	if cfg.Value == nil {
		t.Error("expected value to be non nil")
	}
	if cfg.GetHashFn == nil {
		t.Error("expected time to be non nil")
	}
	if cfg.BlockNumber == nil {
		t.Error("expected block number to be non nil")
	}
}

func TestEVM(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("crashed with: %v", r)
		}
	}()

	Execute([]byte{
		byte(vm.DIFFICULTY),
		byte(vm.TIMESTAMP),
		byte(vm.GASLIMIT),
		byte(vm.PUSH1),
		byte(vm.ORIGIN),
		byte(vm.BLOCKHASH),
		byte(vm.COINBASE),
	}, nil, nil)
}

func TestExecute(t *testing.T) {
	result, _, err := Execute([]byte{
		byte(vm.PUSH1), 10,
		byte(vm.PUSH1), 0,
		byte(vm.MSTORE),
		byte(vm.PUSH1), 32,
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	}, nil, nil)
	if err != nil {
		t.Fatal("didn't expect error", err)
	}
	if result.Status != Success {
		t.Fatalf("expected success, got %v (%v)", result.Status, result.HaltReason)
	}
	num := new(big.Int).SetBytes(result.ReturnData)
	if num.Cmp(big.NewInt(10)) != 0 {
		t.Error("Expected 10, got", num)
	}
}

func TestCall(t *testing.T) {
	reader := state.NewMemoryReader()
	address := common.HexToAddress("0xaa")
	reader.SetCode(address, []byte{
		byte(vm.PUSH1), 10,
		byte(vm.PUSH1), 0,
		byte(vm.MSTORE),
		byte(vm.PUSH1), 32,
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	})
	result, err := Call(address, nil, &Config{State: state.New(reader)})
	if err != nil {
		t.Fatal("didn't expect error", err)
	}
	num := new(big.Int).SetBytes(result.ReturnData)
	if num.Cmp(big.NewInt(10)) != 0 {
		t.Error("Expected 10, got", num)
	}
}

// TestSimpleProgramGas pins the gas accounting of a minimal store-and-return
// program: four PUSH1 (3 each), MSTORE (3 + 3 memory expansion), RETURN (0).
func TestSimpleProgramGas(t *testing.T) {
	result, _, err := Execute([]byte{
		byte(vm.PUSH1), 10,
		byte(vm.PUSH1), 0,
		byte(vm.MSTORE),
		byte(vm.PUSH1), 32,
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, Success, result.Status)
	require.Equal(t, uint64(18), result.UsedGas)
	require.Equal(t, uint64(0), result.RefundedGas)
}

// TestColdSstoreGas pins the Berlin cost of a first-touch SSTORE of a fresh
// slot: 20000 for the set plus the 2100 cold-slot surcharge.
func TestColdSstoreGas(t *testing.T) {
	result, statedb, err := Execute([]byte{
		byte(vm.PUSH1), 1,
		byte(vm.PUSH1), 0,
		byte(vm.SSTORE),
	}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, Success, result.Status)
	require.Equal(t, uint64(3+3+20000+2100), result.UsedGas)

	address := common.BytesToAddress([]byte("contract"))
	require.Equal(t, common.HexToHash("0x01"), statedb.GetState(address, common.Hash{}))
}

// TestSstoreClearRefund checks that clearing a committed slot accrues the
// EIP-3529 refund and that the refund is settled into the result.
func TestSstoreClearRefund(t *testing.T) {
	var (
		reader  = state.NewMemoryReader()
		address = common.HexToAddress("0xaa")
	)
	// PUSH1 0, PUSH1 0, SSTORE: clears the slot.
	reader.SetCode(address, []byte{byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.SSTORE)})
	reader.SetStorage(address, map[common.Hash]common.Hash{{}: common.HexToHash("0x01")})

	cfg := &Config{State: state.New(reader), GasLimit: 1_000_000}
	result, err := Call(address, nil, cfg)
	require.NoError(t, err)
	require.Equal(t, Success, result.Status)
	// 6 for the pushes, 2100 cold sload surcharge, 2900 for the reset.
	// The 4800 clearing refund is capped at usedGas/5.
	gross := uint64(3 + 3 + 2100 + 2900)
	require.Equal(t, gross/params.RefundQuotientEIP3529, result.RefundedGas)
	require.Equal(t, gross-gross/params.RefundQuotientEIP3529, result.UsedGas)
}

// TestCallInsufficientBalance runs a contract whose value-bearing sub-call
// must fail: the CALL pushes zero and the parent frame carries on.
func TestCallInsufficientBalance(t *testing.T) {
	var (
		reader = state.NewMemoryReader()
		parent = common.HexToAddress("0xaa")
		child  = common.HexToAddress("0xbb")
	)
	code := []byte{
		byte(vm.PUSH1), 0, // retSize
		byte(vm.PUSH1), 0, // retOffset
		byte(vm.PUSH1), 0, // argsSize
		byte(vm.PUSH1), 0, // argsOffset
		byte(vm.PUSH1), 1, // value: parent has no balance
	}
	code = append(code, byte(vm.PUSH20))
	code = append(code, child.Bytes()...)
	code = append(code,
		byte(vm.PUSH2), 0xff, 0xff, // gas
		byte(vm.CALL),
		byte(vm.PUSH1), 0,
		byte(vm.SSTORE), // record the CALL's status word
	)
	reader.SetCode(parent, code)

	cfg := &Config{State: state.New(reader), GasLimit: 1_000_000}
	result, err := Call(parent, nil, cfg)
	require.NoError(t, err)
	require.Equal(t, Success, result.Status, "parent must survive the failed sub-call")
	require.Equal(t, common.Hash{}, cfg.State.GetState(parent, common.Hash{}), "CALL must push 0")
	require.False(t, cfg.State.Exist(child))
}

// TestCreate2Address runs CREATE2 with an empty initcode and checks the
// deployment address against the keccak256(0xff ++ sender ++ salt ++
// codehash) formula.
func TestCreate2Address(t *testing.T) {
	result, statedb, err := Execute([]byte{
		byte(vm.PUSH1), 0, // salt
		byte(vm.PUSH1), 0, // size
		byte(vm.PUSH1), 0, // offset
		byte(vm.PUSH1), 0, // value
		byte(vm.CREATE2),
		byte(vm.PUSH1), 0,
		byte(vm.SSTORE),
	}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, Success, result.Status, "halt: %v", result.HaltReason)

	creator := common.BytesToAddress([]byte("contract"))
	want := crypto.CreateAddress2(creator, common.Hash{}, crypto.Keccak256(nil))
	have := common.BytesToAddress(statedb.GetState(creator, common.Hash{}).Bytes())
	require.Equal(t, want, have)
	require.True(t, statedb.Exist(want))
}

// TestStaticCallWriteProtection drives a STATICCALL into a contract that
// attempts SSTORE. The child must fail without touching state while the
// parent completes.
func TestStaticCallWriteProtection(t *testing.T) {
	var (
		reader = state.NewMemoryReader()
		parent = common.HexToAddress("0xaa")
		child  = common.HexToAddress("0xbb")
	)
	reader.SetCode(child, []byte{byte(vm.PUSH1), 1, byte(vm.PUSH1), 0, byte(vm.SSTORE)})

	code := []byte{
		byte(vm.PUSH1), 0, // retSize
		byte(vm.PUSH1), 0, // retOffset
		byte(vm.PUSH1), 0, // argsSize
		byte(vm.PUSH1), 0, // argsOffset
	}
	code = append(code, byte(vm.PUSH20))
	code = append(code, child.Bytes()...)
	code = append(code,
		byte(vm.PUSH2), 0xff, 0xff, // gas
		byte(vm.STATICCALL),
		byte(vm.PUSH1), 0,
		byte(vm.SSTORE),
	)
	reader.SetCode(parent, code)

	cfg := &Config{State: state.New(reader), GasLimit: 1_000_000}
	result, err := Call(parent, nil, cfg)
	require.NoError(t, err)
	require.Equal(t, Success, result.Status)
	require.Equal(t, common.Hash{}, cfg.State.GetState(parent, common.Hash{}), "STATICCALL must push 0")
	require.Equal(t, common.Hash{}, cfg.State.GetState(child, common.Hash{}), "child write must not survive")
}

// TestSelfdestructSweep checks the Cancun behavior for a pre-existing
// contract: the balance moves to the beneficiary but the account survives.
func TestSelfdestructSweep(t *testing.T) {
	var (
		reader      = state.NewMemoryReader()
		address     = common.HexToAddress("0xaa")
		beneficiary = common.HexToAddress("0xbb")
	)
	code := append([]byte{byte(vm.PUSH20)}, beneficiary.Bytes()...)
	code = append(code, byte(vm.SELFDESTRUCT))
	reader.SetCode(address, code)

	cfg := &Config{State: state.New(reader), GasLimit: 1_000_000}
	cfg.State.SetBalance(address, uint256.NewInt(42))

	result, err := Call(address, nil, cfg)
	require.NoError(t, err)
	require.Equal(t, Success, result.Status)
	require.Equal(t, uint256.NewInt(42), cfg.State.GetBalance(beneficiary))
	require.Equal(t, uint256.NewInt(0), cfg.State.GetBalance(address))
	require.True(t, cfg.State.Exist(address), "pre-existing account survives EIP-6780 selfdestruct")
}

func TestRevertKeepsRemainingGas(t *testing.T) {
	result, _, err := Execute([]byte{
		byte(vm.PUSH1), 0,
		byte(vm.PUSH1), 0,
		byte(vm.REVERT),
	}, nil, &Config{GasLimit: 100_000})
	require.NoError(t, err)
	require.Equal(t, Revert, result.Status)
	require.Equal(t, uint64(6), result.UsedGas)
}

func TestInvalidOpcodeConsumesAllGas(t *testing.T) {
	programs := [][]byte{
		{byte(vm.INVALID)},
		// An unassigned opcode reached with a non-empty stack must still
		// report an invalid opcode, not a stack violation.
		{byte(vm.PUSH1), 0, 0x0c},
	}
	for _, code := range programs {
		result, _, err := Execute(code, nil, &Config{GasLimit: 100_000})
		require.NoError(t, err)
		require.Equal(t, Halt, result.Status)
		require.ErrorContains(t, result.HaltReason, "invalid opcode")
		require.Equal(t, uint64(100_000), result.UsedGas)
	}
}

func TestGasprice(t *testing.T) {
	result, _, err := Execute([]byte{
		byte(vm.GASPRICE),
		byte(vm.PUSH1), 0,
		byte(vm.MSTORE),
		byte(vm.PUSH1), 32,
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	}, nil, &Config{GasLimit: 100_000, GasPrice: big.NewInt(0xbeef)})
	require.NoError(t, err)
	require.Equal(t, Success, result.Status)
	require.Equal(t, common.BigToHash(big.NewInt(0xbeef)).Bytes(), result.ReturnData)
}

func TestCreateInitCodeLimit(t *testing.T) {
	_, _, err := Create(make([]byte, params.MaxInitCodeSize+1), &Config{GasLimit: 10_000_000})
	require.ErrorIs(t, err, vm.ErrMaxInitCodeSizeExceeded)
}

func TestCreate(t *testing.T) {
	// Initcode returning a two-byte runtime code.
	initcode := []byte{
		byte(vm.PUSH2), byte(vm.PUSH1), byte(vm.STOP), // the runtime code, left-packed
		byte(vm.PUSH1), 0,
		byte(vm.MSTORE),
		byte(vm.PUSH1), 2,
		byte(vm.PUSH1), 30,
		byte(vm.RETURN),
	}
	cfg := &Config{GasLimit: 1_000_000}
	result, address, err := Create(initcode, cfg)
	require.NoError(t, err)
	require.Equal(t, Success, result.Status, "halt: %v", result.HaltReason)
	require.Equal(t, []byte{byte(vm.PUSH1), byte(vm.STOP)}, result.ReturnData)
	require.Equal(t, result.ReturnData, cfg.State.GetCode(address))
	require.Equal(t, crypto.CreateAddress(cfg.Origin, 0), address)
}

// TestTracerHooks drives a small program with an opcode-counting tracer
// attached and checks the enter/exit pairing.
func TestTracerHooks(t *testing.T) {
	var (
		opcodes []vm.OpCode
		enters  int
		exits   int
	)
	hooks := &tracing.Hooks{
		OnOpcode: func(pc uint64, op byte, gas, cost uint64, scope tracing.OpContext, rData []byte, depth int, err error) {
			opcodes = append(opcodes, vm.OpCode(op))
		},
		OnEnter: func(depth int, typ byte, from, to common.Address, input []byte, gas uint64, value *uint256.Int) {
			enters++
		},
		OnExit: func(depth int, output []byte, gasUsed uint64, err error, reverted bool) {
			exits++
		},
	}
	result, _, err := Execute([]byte{
		byte(vm.PUSH1), 1,
		byte(vm.PUSH1), 2,
		byte(vm.ADD),
		byte(vm.STOP),
	}, nil, &Config{GasLimit: 100_000, EVMConfig: vm.Config{Tracer: hooks}})
	require.NoError(t, err)
	require.Equal(t, Success, result.Status)
	require.Equal(t, []vm.OpCode{vm.PUSH1, vm.PUSH1, vm.ADD, vm.STOP}, opcodes)
	require.Equal(t, enters, exits)
}

func BenchmarkExecuteLoop(b *testing.B) {
	// JUMPDEST PUSH1 1 POP PUSH1 0 JUMP: spin until out of gas.
	code := []byte{
		byte(vm.JUMPDEST),
		byte(vm.PUSH1), 1,
		byte(vm.POP),
		byte(vm.PUSH1), 0,
		byte(vm.JUMP),
	}
	cfg := &Config{GasLimit: 10_000_000}
	setDefaults(cfg)
	cfg.State = state.New(state.NewMemoryReader())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Execute(code, nil, cfg)
	}
}
