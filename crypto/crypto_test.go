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

package crypto

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/evmlabs/go-evm/common"
)

func TestKeccak256Hash(t *testing.T) {
	msg := []byte("abc")
	exp := common.HexToHash("4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45")
	if h := Keccak256Hash(msg); h != exp {
		t.Errorf("keccak256: have %x, want %x", h, exp)
	}
	// The empty-input hash is a constant the engine compares code hashes
	// against, so pin it down.
	empty := common.HexToHash("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	if h := Keccak256Hash(nil); h != empty {
		t.Errorf("empty keccak256: have %x, want %x", h, empty)
	}
}

func TestHashData(t *testing.T) {
	kh := NewKeccakState()
	// The state must be reusable across calls.
	for i := 0; i < 2; i++ {
		if h := HashData(kh, []byte("abc")); h != Keccak256Hash([]byte("abc")) {
			t.Fatalf("round %d: HashData disagrees with Keccak256Hash", i)
		}
	}
}

func TestNewContractAddress(t *testing.T) {
	addr := common.HexToAddress("970e8128ab834e8eac17ab8e3812f010678cf791")
	for nonce, want := range map[uint64]common.Address{
		0: common.HexToAddress("333c3310824b7c685133f2bedb2ca4b8b4df633d"),
		1: common.HexToAddress("8bda78331c916a08481428e4b07c96d3e916d165"),
		2: common.HexToAddress("c9ddedf451bc62ce88bf9292afb13df35b670699"),
	} {
		if have := CreateAddress(addr, nonce); have != want {
			t.Errorf("nonce %d: have %x, want %x", nonce, have, want)
		}
	}
}

func TestCreateAddress2(t *testing.T) {
	// Examples from https://eips.ethereum.org/EIPS/eip-1014
	type testcase struct {
		origin   string
		salt     string
		code     string
		expected string
	}

	for i, tt := range []testcase{
		{
			origin:   "0x0000000000000000000000000000000000000000",
			salt:     "0x0000000000000000000000000000000000000000000000000000000000000000",
			code:     "0x00",
			expected: "0x4D1A2e2bB4F88F0250f26Ffff098B0b30B26BF38",
		},
		{
			origin:   "0xdeadbeef00000000000000000000000000000000",
			salt:     "0x0000000000000000000000000000000000000000000000000000000000000000",
			code:     "0x00",
			expected: "0xB928f69Bb1D91Cd65274e3c79d8986362984fDA3",
		},
		{
			origin:   "0xdeadbeef00000000000000000000000000000000",
			salt:     "0x000000000000000000000000feed000000000000000000000000000000000000",
			code:     "0x00",
			expected: "0xD04116cDd17beBE565EB2422F2497E06cC1C9833",
		},
		{
			origin:   "0x0000000000000000000000000000000000000000",
			salt:     "0x0000000000000000000000000000000000000000000000000000000000000000",
			code:     "0xdeadbeef",
			expected: "0x70f2b2914A2a4b783FaEFb75f459A580616Fcb5e",
		},
		{
			origin:   "0x00000000000000000000000000000000deadbeef",
			salt:     "0x00000000000000000000000000000000000000000000000000000000cafebabe",
			code:     "0xdeadbeef",
			expected: "0x60f3f640a8508fC6a86d45DF051962668E1e8AC7",
		},
		{
			origin:   "0x0000000000000000000000000000000000000000",
			salt:     "0x0000000000000000000000000000000000000000000000000000000000000000",
			code:     "0x",
			expected: "0xE33C0C7F7df4809055C3ebA6c09CFe4BaF1BD9e0",
		},
	} {
		origin := common.HexToAddress(tt.origin)
		salt := common.HexToHash(tt.salt)
		code := common.FromHex(tt.code)
		codeHash := Keccak256(code)
		address := CreateAddress2(origin, salt, codeHash)

		expected := common.HexToAddress(tt.expected)
		if address != expected {
			t.Errorf("test %d: have %s, want %s", i, address.Hex(), expected.Hex())
		}
	}
}

var (
	testmsg    = common.FromHex("0xce0677bb30baa8cf067c88db9811f4333d131bf8bcf12fe7065d211dce971008")
	testsig    = common.FromHex("0x90f27b8b488db00b00606796d2987f6a5f59ae62ea05effe84fef5b8b0e549984a691139ad57a3f0b906637673aa2f63d1f55cb1a69199d4009eea23ceaddc9301")
	testpubkey = common.FromHex("0x04e32df42865e97135acfb65f3bae71bdc86f4d49150ad6a440b6f15878109880a0a2b2667f7e725ceea70c673093bf67663e0312623c8e091b13cf2c0f11ef652")
)

func TestEcrecover(t *testing.T) {
	pubkey, err := Ecrecover(testmsg, testsig)
	if err != nil {
		t.Fatalf("recover error: %s", err)
	}
	if !bytes.Equal(pubkey, testpubkey) {
		t.Errorf("pubkey mismatch: have %x, want %x", pubkey, testpubkey)
	}
}

func TestEcrecoverShortSig(t *testing.T) {
	if _, err := Ecrecover(testmsg, testsig[:64]); err == nil {
		t.Error("expected error for 64-byte signature")
	}
}

func TestValidateSignatureValues(t *testing.T) {
	var (
		one   = big.NewInt(1)
		zero  = big.NewInt(0)
		minusOne = big.NewInt(-1)
		secp256k1nMinus1 = new(big.Int).Sub(secp256k1N, big.NewInt(1))
	)
	check := func(expected bool, v byte, r, s *big.Int) {
		if ValidateSignatureValues(v, r, s, false) != expected {
			t.Errorf("mismatch for v: %d r: %d s: %d want: %v", v, r, s, expected)
		}
	}
	checkHomestead := func(expected bool, v byte, r, s *big.Int) {
		if ValidateSignatureValues(v, r, s, true) != expected {
			t.Errorf("homestead mismatch for v: %d r: %d s: %d want: %v", v, r, s, expected)
		}
	}
	// correct v,r,s
	check(true, 0, one, one)
	check(true, 1, one, one)
	// incorrect v, correct r,s
	check(false, 2, one, one)
	check(false, 3, one, one)
	// incorrect v, incorrect r,s
	check(false, 2, zero, zero)
	check(false, 2, zero, one)
	// incorrect v, correct r,s
	check(false, 4, one, one)
	// zero values
	check(false, 0, zero, zero)
	check(false, 0, zero, one)
	check(false, 0, one, zero)
	// r,s at the group order boundary
	check(false, 0, secp256k1N, one)
	check(false, 0, one, secp256k1N)
	check(true, 0, secp256k1nMinus1, secp256k1nMinus1)
	// negative values
	check(false, 0, minusOne, one)
	check(false, 0, one, minusOne)
	// homestead rejects s > N/2
	checkHomestead(false, 0, one, secp256k1nMinus1)
	checkHomestead(true, 0, one, one)
}
