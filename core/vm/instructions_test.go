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
	"bytes"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/evmlabs/go-evm/common"
	"github.com/evmlabs/go-evm/core/state"
	"github.com/evmlabs/go-evm/params"
	"github.com/holiman/uint256"
)

// TwoOperandTestcase holds the operands in the order they are pushed: X first,
// then Y, so Y is the first value popped by the operation.
type TwoOperandTestcase struct {
	X        string
	Y        string
	Expected string
}

func testTwoOperandOp(t *testing.T, tests []TwoOperandTestcase, opFn executionFunc, name string) {
	var (
		evm   = NewEVM(BlockContext{BlockNumber: big.NewInt(0)}, nil, params.TestChainConfig, Config{})
		stack = newstack()
		pc    = uint64(0)
	)
	for i, test := range tests {
		x := new(uint256.Int).SetBytes(common.Hex2Bytes(test.X))
		y := new(uint256.Int).SetBytes(common.Hex2Bytes(test.Y))
		expected := new(uint256.Int).SetBytes(common.Hex2Bytes(test.Expected))
		stack.push(x)
		stack.push(y)
		opFn(&pc, evm.interpreter, &ScopeContext{nil, stack, nil})
		if len(stack.data) != 1 {
			t.Errorf("Expected one item on stack after %v, got %d: ", name, len(stack.data))
		}
		actual := stack.pop()

		if actual.Cmp(expected) != 0 {
			t.Errorf("Testcase %v %d, %v(%x, %x): expected  %x, got %x", name, i, name, x, y, expected, actual)
		}
	}
}

func TestByteOp(t *testing.T) {
	tests := []TwoOperandTestcase{
		{"ABCDEF0908070605040302010000000000000000000000000000000000000000", "00", "AB"},
		{"ABCDEF0908070605040302010000000000000000000000000000000000000000", "01", "CD"},
		{"00CDEF090807060504030201ffffffffffffffffffffffffffffffffffffffff", "00", "00"},
		{"00CDEF090807060504030201ffffffffffffffffffffffffffffffffffffffff", "01", "CD"},
		{"0000000000000000000000000000000000000000000000000000000000102030", "1F", "30"},
		{"0000000000000000000000000000000000000000000000000000000000102030", "1E", "20"},
		{"0000000000000000000000000000000000000000000000000000000000020406", "20", "00"},
		{"0000000000000000000000000000000000000000000000000000000000020406", "FFFFFFFFFFFFFFFF", "00"},
	}
	testTwoOperandOp(t, tests, opByte, "byte")
}

func TestSHL(t *testing.T) {
	// Testcases from https://github.com/ethereum/EIPs/blob/master/EIPS/eip-145.md#shl-shift-left
	tests := []TwoOperandTestcase{
		{"0000000000000000000000000000000000000000000000000000000000000001", "01", "0000000000000000000000000000000000000000000000000000000000000002"},
		{"0000000000000000000000000000000000000000000000000000000000000001", "ff", "8000000000000000000000000000000000000000000000000000000000000000"},
		{"0000000000000000000000000000000000000000000000000000000000000001", "0100", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"0000000000000000000000000000000000000000000000000000000000000001", "0101", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "00", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "01", "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "ff", "8000000000000000000000000000000000000000000000000000000000000000"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "0100", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"0000000000000000000000000000000000000000000000000000000000000000", "01", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "01", "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe"},
	}
	testTwoOperandOp(t, tests, opSHL, "shl")
}

func TestSHR(t *testing.T) {
	// Testcases from https://github.com/ethereum/EIPs/blob/master/EIPS/eip-145.md#shr-logical-shift-right
	tests := []TwoOperandTestcase{
		{"0000000000000000000000000000000000000000000000000000000000000001", "00", "0000000000000000000000000000000000000000000000000000000000000001"},
		{"0000000000000000000000000000000000000000000000000000000000000001", "01", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "01", "4000000000000000000000000000000000000000000000000000000000000000"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "ff", "0000000000000000000000000000000000000000000000000000000000000001"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "0100", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "0101", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "00", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "01", "7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "ff", "0000000000000000000000000000000000000000000000000000000000000001"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "0100", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"0000000000000000000000000000000000000000000000000000000000000000", "01", "0000000000000000000000000000000000000000000000000000000000000000"},
	}
	testTwoOperandOp(t, tests, opSHR, "shr")
}

func TestSAR(t *testing.T) {
	// Testcases from https://github.com/ethereum/EIPs/blob/master/EIPS/eip-145.md#sar-arithmetic-shift-right
	tests := []TwoOperandTestcase{
		{"0000000000000000000000000000000000000000000000000000000000000001", "00", "0000000000000000000000000000000000000000000000000000000000000001"},
		{"0000000000000000000000000000000000000000000000000000000000000001", "01", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "01", "c000000000000000000000000000000000000000000000000000000000000000"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "ff", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "0100", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "0101", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "00", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "01", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "ff", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "0100", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"0000000000000000000000000000000000000000000000000000000000000000", "01", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"4000000000000000000000000000000000000000000000000000000000000000", "fe", "0000000000000000000000000000000000000000000000000000000000000001"},
		{"7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "f8", "000000000000000000000000000000000000000000000000000000000000007f"},
		{"7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "fe", "0000000000000000000000000000000000000000000000000000000000000001"},
		{"7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "ff", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "0100", "0000000000000000000000000000000000000000000000000000000000000000"},
	}
	testTwoOperandOp(t, tests, opSAR, "sar")
}

func TestSignExtend(t *testing.T) {
	tests := []TwoOperandTestcase{
		{"00000000000000000000000000000000000000000000000000000000000000ff", "00", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"000000000000000000000000000000000000000000000000000000000000007f", "00", "000000000000000000000000000000000000000000000000000000000000007f"},
		{"0000000000000000000000000000000000000000000000000000000000007f00", "00", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"0000000000000000000000000000000000000000000000000000000000008000", "01", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff8000"},
		{"0000000000000000000000000000000000000000000000000000000000007fff", "01", "0000000000000000000000000000000000000000000000000000000000007fff"},
		{"00000000000000000000000000000000000000000000000000000000000000ff", "20", "00000000000000000000000000000000000000000000000000000000000000ff"},
	}
	testTwoOperandOp(t, tests, opSignExtend, "signextend")
}

func TestAddMod(t *testing.T) {
	var (
		evm   = NewEVM(BlockContext{BlockNumber: big.NewInt(0)}, nil, params.TestChainConfig, Config{})
		stack = newstack()
		pc    = uint64(0)
	)
	tests := []struct {
		x        string
		y        string
		z        string
		expected string
	}{
		{
			"FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF",
			"fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe",
			"fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe",
			"fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffd",
		},
	}
	// x + y = 0x1fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffd
	// in 256 bit repr, fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffd
	for i, test := range tests {
		x := new(uint256.Int).SetBytes(common.Hex2Bytes(test.x))
		y := new(uint256.Int).SetBytes(common.Hex2Bytes(test.y))
		z := new(uint256.Int).SetBytes(common.Hex2Bytes(test.z))
		expected := new(uint256.Int).SetBytes(common.Hex2Bytes(test.expected))
		stack.push(z)
		stack.push(y)
		stack.push(x)
		opAddmod(&pc, evm.interpreter, &ScopeContext{nil, stack, nil})
		actual := stack.pop()
		if actual.Cmp(expected) != 0 {
			t.Errorf("Testcase %d, expected  %x, got %x", i, expected, actual)
		}
	}
}

func TestOpMstore(t *testing.T) {
	var (
		evm   = NewEVM(BlockContext{BlockNumber: big.NewInt(0)}, nil, params.TestChainConfig, Config{})
		stack = newstack()
		mem   = NewMemory()
	)
	mem.Resize(64)
	pc := uint64(0)
	v := "abcdef00000000000000abba000000000deaf000000c0de00100000000133700"
	stack.push(new(uint256.Int).SetBytes(common.Hex2Bytes(v)))
	stack.push(new(uint256.Int))
	opMstore(&pc, evm.interpreter, &ScopeContext{mem, stack, nil})
	if got := fmt.Sprintf("%x", mem.GetCopy(0, 32)); got != v {
		t.Fatalf("Mstore fail, got %v, expected %v", got, v)
	}
	stack.push(new(uint256.Int).SetUint64(0x1))
	stack.push(new(uint256.Int))
	opMstore(&pc, evm.interpreter, &ScopeContext{mem, stack, nil})
	if fmt.Sprintf("%x", mem.GetCopy(0, 32)) != "0000000000000000000000000000000000000000000000000000000000000001" {
		t.Fatalf("Mstore failed to overwrite previous value")
	}
}

func TestOpMCopy(t *testing.T) {
	// Test vectors from https://eips.ethereum.org/EIPS/eip-5656#test-cases
	for i, tc := range []struct {
		dst, src, len string
		pre           string
		want          string
	}{
		{ // copy 32 bytes from offset 32 to offset 0
			dst: "0x0", src: "0x20", len: "0x20",
			pre:  "0000000000000000000000000000000000000000000000000000000000000000 000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
			want: "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f 000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
		},
		{ // copy 32 bytes from offset 0 to offset 0
			dst: "0x0", src: "0x0", len: "0x20",
			pre:  "0101010101010101010101010101010101010101010101010101010101010101",
			want: "0101010101010101010101010101010101010101010101010101010101010101",
		},
		{ // overlapping copy, dst < src
			dst: "0x0", src: "0x1", len: "0x8",
			pre:  "000102030405060708 000000000000000000000000000000000000000000000000",
			want: "010203040506070808 000000000000000000000000000000000000000000000000",
		},
		{ // overlapping copy, src < dst
			dst: "0x1", src: "0x0", len: "0x8",
			pre:  "000102030405060708 000000000000000000000000000000000000000000000000",
			want: "000001020304050607 000000000000000000000000000000000000000000000000",
		},
	} {
		var (
			evm   = NewEVM(BlockContext{BlockNumber: big.NewInt(0)}, nil, params.TestChainConfig, Config{})
			stack = newstack()
			pc    = uint64(0)
		)
		data := common.FromHex(strings.ReplaceAll(tc.pre, " ", ""))
		// Set pre
		mem := NewMemory()
		mem.Resize(uint64(len(data)))
		mem.Set(0, uint64(len(data)), data)
		// Push stack args
		len, _ := uint256.FromHex(tc.len)
		src, _ := uint256.FromHex(tc.src)
		dst, _ := uint256.FromHex(tc.dst)

		stack.push(len)
		stack.push(src)
		stack.push(dst)
		opMcopy(&pc, evm.interpreter, &ScopeContext{mem, stack, nil})
		want := common.FromHex(strings.ReplaceAll(tc.want, " ", ""))
		if have := mem.store[:len.Uint64()+dst.Uint64()]; !bytes.Equal(want, have) {
			t.Errorf("case %d: \nwant: %#x\nhave: %#x\n", i, want, have)
		}
	}
}

func TestOpTstore(t *testing.T) {
	var (
		statedb  = state.New(state.NewMemoryReader())
		evm      = NewEVM(BlockContext{BlockNumber: big.NewInt(0)}, statedb, params.TestChainConfig, Config{})
		stack    = newstack()
		mem      = NewMemory()
		caller   = common.Address{}
		to       = common.Address{1}
		contract = NewContract(caller, to, new(uint256.Int), 0, nil)
		scope    = &ScopeContext{mem, stack, contract}
		value    = common.Hex2Bytes("abcdef00000000000000abba000000000deaf000000c0de00100000000133700")
	)
	// Add a value to the transient store
	pc := uint64(0)
	stack.push(new(uint256.Int).SetBytes(value))
	stack.push(new(uint256.Int))
	if _, err := opTstore(&pc, evm.interpreter, scope); err != nil {
		t.Fatal(err)
	}
	// Load the value from the transient store
	stack.push(new(uint256.Int))
	if _, err := opTload(&pc, evm.interpreter, scope); err != nil {
		t.Fatal(err)
	}
	res := stack.pop()
	if !bytes.Equal(res.Bytes(), value) {
		t.Errorf("transient storage mismatch: have %x, want %x", res.Bytes(), value)
	}
	// Attempt to store in read-only mode
	evm.interpreter.readOnly = true
	stack.push(new(uint256.Int).SetBytes(value))
	stack.push(new(uint256.Int))
	if _, err := opTstore(&pc, evm.interpreter, scope); err != ErrWriteProtection {
		t.Errorf("expected write protection error, got %v", err)
	}
}

func TestOpMsize(t *testing.T) {
	var (
		evm   = NewEVM(BlockContext{BlockNumber: big.NewInt(0)}, nil, params.TestChainConfig, Config{})
		stack = newstack()
		mem   = NewMemory()
		pc    = uint64(0)
	)
	mem.Resize(96)
	opMsize(&pc, evm.interpreter, &ScopeContext{mem, stack, nil})
	if have := stack.pop(); have.Uint64() != 96 {
		t.Errorf("msize: have %d, want 96", have.Uint64())
	}
}

func TestPushSizes(t *testing.T) {
	// PUSH2 at the end of the code must zero-pad the missing immediate bytes.
	var (
		evm      = NewEVM(BlockContext{BlockNumber: big.NewInt(0)}, nil, params.TestChainConfig, Config{})
		stack    = newstack()
		contract = NewContract(common.Address{}, common.Address{1}, new(uint256.Int), 0, nil)
	)
	contract.Code = []byte{byte(PUSH2), 0xab}
	pc := uint64(0)
	op := makePush(2, 2)
	op(&pc, evm.interpreter, &ScopeContext{nil, stack, contract})
	if have, want := stack.pop(), uint256.NewInt(0xab00); have.Cmp(want) != 0 {
		t.Errorf("truncated push: have %x, want %x", &have, want)
	}
	if pc != 2 {
		t.Errorf("pc: have %d, want 2", pc)
	}
}
