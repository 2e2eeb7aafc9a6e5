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

	"github.com/stretchr/testify/require"
)

// TestJumpTableCopy tests that deep copy is necessary to prevent modify shared jump table
func TestJumpTableCopy(t *testing.T) {
	tbl := newMergeInstructionSet()
	require.Equal(t, uint64(0), tbl[SLOAD].constantGas)

	// a deep copy won't modify the shared jump table
	deepCopy := copyJumpTable(&tbl)
	deepCopy[SLOAD].constantGas = 100
	require.Equal(t, uint64(100), deepCopy[SLOAD].constantGas)
	require.Equal(t, uint64(0), tbl[SLOAD].constantGas)
}

func TestJumpTableDefinedness(t *testing.T) {
	// Every slot of every instruction set must carry an operation, with the
	// unassigned ones marked undefined.
	sets := map[string]JumpTable{
		"frontier":         newFrontierInstructionSet(),
		"homestead":        newHomesteadInstructionSet(),
		"tangerineWhistle": newTangerineWhistleInstructionSet(),
		"spuriousDragon":   newSpuriousDragonInstructionSet(),
		"byzantium":        newByzantiumInstructionSet(),
		"constantinople":   newConstantinopleInstructionSet(),
		"istanbul":         newIstanbulInstructionSet(),
		"berlin":           newBerlinInstructionSet(),
		"london":           newLondonInstructionSet(),
		"merge":            newMergeInstructionSet(),
		"shanghai":         newShanghaiInstructionSet(),
		"cancun":           newCancunInstructionSet(),
	}
	for name, jt := range sets {
		for i, op := range jt {
			require.NotNilf(t, op, "%s: opcode %#x has no operation", name, i)
			require.NotNilf(t, op.execute, "%s: opcode %#x has no execute function", name, i)
			if op.undefined {
				// Undefined opcodes must pass the stack pre-check so they
				// halt with an invalid-opcode error, never a stack error.
				require.Equalf(t, maxStack(0, 0), op.maxStack, "%s: opcode %#x rejects valid stacks", name, i)
			}
		}
	}
}

func TestForkOpcodeAvailability(t *testing.T) {
	for _, tc := range []struct {
		op      OpCode
		table   JumpTable
		defined bool
	}{
		{DELEGATECALL, newFrontierInstructionSet(), false},
		{DELEGATECALL, newHomesteadInstructionSet(), true},
		{REVERT, newSpuriousDragonInstructionSet(), false},
		{REVERT, newByzantiumInstructionSet(), true},
		{SHL, newByzantiumInstructionSet(), false},
		{SHL, newConstantinopleInstructionSet(), true},
		{CHAINID, newConstantinopleInstructionSet(), false},
		{CHAINID, newIstanbulInstructionSet(), true},
		{BASEFEE, newBerlinInstructionSet(), false},
		{BASEFEE, newLondonInstructionSet(), true},
		{PUSH0, newMergeInstructionSet(), false},
		{PUSH0, newShanghaiInstructionSet(), true},
		{TLOAD, newShanghaiInstructionSet(), false},
		{TLOAD, newCancunInstructionSet(), true},
		{MCOPY, newShanghaiInstructionSet(), false},
		{MCOPY, newCancunInstructionSet(), true},
	} {
		if have := !tc.table[tc.op].undefined; have != tc.defined {
			t.Errorf("opcode %v: defined = %v, want %v", tc.op, have, tc.defined)
		}
	}
}
