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
	"testing"

	"github.com/evmlabs/go-evm/common"
	"github.com/evmlabs/go-evm/params"
)

// precompiledTest defines the input/output pairs for precompiled contract tests.
type precompiledTest struct {
	Input, Expected string
	Gas             uint64
	Name            string
}

func testPrecompiled(t *testing.T, addr string, test precompiledTest) {
	p := PrecompiledContractsBerlin[common.HexToAddress(addr)]
	in := common.Hex2Bytes(test.Input)
	gas := p.RequiredGas(in)
	t.Run(fmt.Sprintf("%s-Gas=%d", test.Name, gas), func(t *testing.T) {
		if test.Gas != 0 && gas != test.Gas {
			t.Errorf("gas mismatch: have %d, want %d", gas, test.Gas)
		}
		res, _, err := RunPrecompiledContract(p, in, gas, nil)
		if err != nil {
			t.Error(err)
		} else if !bytes.Equal(res, common.Hex2Bytes(test.Expected)) {
			t.Errorf("result mismatch: have %x, want %v", res, test.Expected)
		}
	})
}

func TestPrecompiledEcrecover(t *testing.T) {
	testPrecompiled(t, "0x01", precompiledTest{
		Input:    "38d18acb67d25c8bb9942764b62f18e17054f66a817bd4295423adf9ed98873e000000000000000000000000000000000000000000000000000000000000001b38d18acb67d25c8bb9942764b62f18e17054f66a817bd4295423adf9ed98873e789d1dd423d25f0772d2748d60f7e4b81bb14d086eba8e8e8efb6dcff8a4ae02",
		Expected: "000000000000000000000000ceaccac640adf55b2028469bd36ba501f28b699d",
		Gas:      3000,
		Name:     "",
	})
}

func TestPrecompiledEcrecoverInvalid(t *testing.T) {
	// Malformed v: precompile succeeds with empty output.
	p := PrecompiledContractsBerlin[common.BytesToAddress([]byte{0x1})]
	input := common.Hex2Bytes("38d18acb67d25c8bb9942764b62f18e17054f66a817bd4295423adf9ed98873e000000000000000000000000000000000000000000000000000000000000001d38d18acb67d25c8bb9942764b62f18e17054f66a817bd4295423adf9ed98873e789d1dd423d25f0772d2748d60f7e4b81bb14d086eba8e8e8efb6dcff8a4ae02")
	res, _, err := RunPrecompiledContract(p, input, p.RequiredGas(input), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 0 {
		t.Errorf("expected empty output for invalid recovery id, have %x", res)
	}
}

func TestPrecompiledSha256(t *testing.T) {
	testPrecompiled(t, "0x02", precompiledTest{
		Input:    "68656c6c6f20776f726c64",
		Expected: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		Gas:      72, // 60 + 1 word * 12
		Name:     "",
	})
}

func TestPrecompiledRipemd160(t *testing.T) {
	testPrecompiled(t, "0x03", precompiledTest{
		Input:    "68656c6c6f20776f726c64",
		Expected: "00000000000000000000000098c615784ccb5fe5936fbc0cbe9dfdb408d92f0f",
		Gas:      720, // 600 + 1 word * 120
		Name:     "",
	})
}

func TestPrecompiledIdentity(t *testing.T) {
	testPrecompiled(t, "0x04", precompiledTest{
		Input:    "0102030405060708090a",
		Expected: "0102030405060708090a",
		Gas:      18, // 15 + 1 word * 3
		Name:     "",
	})
}

func TestPrecompiledModExp(t *testing.T) {
	// 3^(p-1) mod p == 1 for the secp256k1 field prime, from the EIP-198
	// examples.
	testPrecompiled(t, "0x05", precompiledTest{
		Input: "0000000000000000000000000000000000000000000000000000000000000001" +
			"0000000000000000000000000000000000000000000000000000000000000020" +
			"0000000000000000000000000000000000000000000000000000000000000020" +
			"03" +
			"fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2e" +
			"fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f",
		Expected: "0000000000000000000000000000000000000000000000000000000000000001",
		Gas:      1360, // EIP-2565 pricing
		Name:     "",
	})
}

func TestPrecompiledModExpZeroModulus(t *testing.T) {
	p := PrecompiledContractsBerlin[common.BytesToAddress([]byte{0x5})]
	input := common.Hex2Bytes(
		"0000000000000000000000000000000000000000000000000000000000000001" +
			"0000000000000000000000000000000000000000000000000000000000000001" +
			"0000000000000000000000000000000000000000000000000000000000000002" +
			"03" + "05" + "0000")
	res, _, err := RunPrecompiledContract(p, input, p.RequiredGas(input), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(res, []byte{0, 0}) {
		t.Errorf("modulo zero: have %x, want 0000", res)
	}
}

func TestRunPrecompiledOutOfGas(t *testing.T) {
	p := PrecompiledContractsBerlin[common.BytesToAddress([]byte{0x4})]
	if _, _, err := RunPrecompiledContract(p, []byte{1}, 1, nil); err != ErrOutOfGas {
		t.Errorf("expected %v, have %v", ErrOutOfGas, err)
	}
}

func TestActivePrecompiles(t *testing.T) {
	// The active set is a copy: registering a contract on it must not leak
	// into the global registry.
	rules := params.Rules{IsByzantium: true, IsBerlin: true}
	active := ActivePrecompiledContracts(rules)
	active[common.BytesToAddress([]byte{0xff})] = &dataCopy{}
	if _, ok := PrecompiledContractsBerlin[common.BytesToAddress([]byte{0xff})]; ok {
		t.Fatal("modifying the active set mutated the registry")
	}
	if len(ActivePrecompiles(rules)) != len(PrecompiledContractsBerlin) {
		t.Fatal("address list does not match the Berlin registry")
	}
}
