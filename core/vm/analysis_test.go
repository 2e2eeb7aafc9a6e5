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
	"testing"

	"github.com/evmlabs/go-evm/common"
	"github.com/holiman/uint256"
)

func TestJumpDestAnalysis(t *testing.T) {
	tests := []struct {
		code  []byte
		exp   byte
		which int
	}{
		{[]byte{byte(PUSH1), 0x01, 0x01, 0x01}, 0b0000_0010, 0},
		{[]byte{byte(PUSH1), byte(PUSH1), byte(PUSH1), byte(PUSH1)}, 0b0000_1010, 0},
		{[]byte{0x00, byte(PUSH1), 0x00, byte(PUSH1), 0x00, byte(PUSH1), 0x00, byte(PUSH1)}, 0b0101_0100, 0},
		{[]byte{byte(PUSH8), 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01}, 0b1111_1110, 0},
		{[]byte{byte(PUSH8), 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01}, 0b0000_0001, 1},
		{[]byte{0x01, 0x01, 0x01, 0x01, 0x01, byte(PUSH2), byte(PUSH2), byte(PUSH2), 0x01, 0x01}, 0b1100_0000, 0},
		{[]byte{0x01, 0x01, 0x01, 0x01, 0x01, byte(PUSH2), 0x01, 0x01, 0x01, 0x01, 0x01}, 0b0000_0000, 1},
		{[]byte{byte(PUSH3), 0x01, 0x01, 0x01, byte(PUSH1), 0x01, 0x01, 0x01, 0x01, 0x01, 0x01}, 0b0010_1110, 0},
		{[]byte{byte(PUSH3), 0x01, 0x01, 0x01, byte(PUSH1), 0x01, 0x01, 0x01, 0x01, 0x01, 0x01}, 0b0000_0000, 1},
		{[]byte{0x01, byte(PUSH8), 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01}, 0b1111_1100, 0},
		{[]byte{0x01, byte(PUSH8), 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01}, 0b0000_0011, 1},
		{[]byte{byte(PUSH32)}, 0b1111_1110, 0},
		{[]byte{byte(PUSH32)}, 0b1111_1111, 1},
		{[]byte{byte(PUSH32)}, 0b1111_1111, 2},
		{[]byte{byte(PUSH32)}, 0b1111_1111, 3},
		{[]byte{byte(PUSH32)}, 0b0000_0001, 4},
	}
	for i, test := range tests {
		ret := codeBitmap(test.code)
		if ret[test.which] != test.exp {
			t.Fatalf("test %d: expected %x, got %02x", i, test.exp, ret[test.which])
		}
	}
}

func TestValidJumpdest(t *testing.T) {
	// JUMPDEST hidden inside PUSH data must not be a valid jump target.
	code := []byte{
		byte(PUSH1), 0x05,
		byte(JUMP),
		byte(PUSH2), byte(JUMPDEST), byte(JUMPDEST), // positions 4, 5 are data
		byte(JUMPDEST), // position 6
	}
	contract := NewContract(common.Address{}, common.Address{1}, new(uint256.Int), 0, nil)
	contract.Code = code

	for _, tc := range []struct {
		dest  uint64
		valid bool
	}{
		{4, false}, // data of PUSH2
		{5, false}, // data of PUSH2
		{6, true},  // real JUMPDEST
		{2, false}, // JUMP opcode, not a JUMPDEST
		{100, false},
	} {
		if have := contract.validJumpdest(uint256.NewInt(tc.dest)); have != tc.valid {
			t.Errorf("dest %d: have %v, want %v", tc.dest, have, tc.valid)
		}
	}
}

func TestJumpDestCacheSharing(t *testing.T) {
	// Two contracts with the same code hash share one analysis through the
	// per-EVM cache.
	cache := make(map[common.Hash]bitvec)
	code := []byte{byte(PUSH1), 0x03, byte(JUMP), byte(JUMPDEST)}
	hash := common.BytesToHash([]byte{0xc0, 0xde})

	c1 := NewContract(common.Address{}, common.Address{1}, new(uint256.Int), 0, cache)
	c1.SetCallCode(hash, code)
	if !c1.validJumpdest(uint256.NewInt(3)) {
		t.Fatal("expected valid jumpdest")
	}
	if _, ok := cache[hash]; !ok {
		t.Fatal("analysis was not cached")
	}
	c2 := NewContract(common.Address{}, common.Address{2}, new(uint256.Int), 0, cache)
	c2.SetCallCode(hash, code)
	if !c2.validJumpdest(uint256.NewInt(3)) {
		t.Fatal("expected valid jumpdest from cached analysis")
	}
}
