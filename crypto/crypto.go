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

// Package crypto implements the Keccak256 hashing primitives and the
// deterministic contract-address derivation rules used by the virtual
// machine.
package crypto

import (
	"encoding/binary"
	"hash"

	"github.com/evmlabs/go-evm/common"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// KeccakState wraps sha3.state. In addition to the usual hash methods, it
// also supports Read to get a variable amount of data from the hash state.
// Read is faster than Sum because it doesn't copy the internal state, but
// also modifies the internal state.
type KeccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

// NewKeccakState creates a new KeccakState.
func NewKeccakState() KeccakState {
	return sha3.NewLegacyKeccak256().(KeccakState)
}

// HashData hashes the provided data using the KeccakState and returns a
// 32 byte hash.
func HashData(kh KeccakState, data []byte) (h common.Hash) {
	kh.Reset()
	kh.Write(data)
	kh.Read(h[:])
	return h
}

// Keccak256 calculates and returns the Keccak256 hash of the input data.
func Keccak256(data ...[]byte) []byte {
	b := make([]byte, 32)
	d := NewKeccakState()
	for _, b := range data {
		d.Write(b)
	}
	d.Read(b)
	return b
}

// Keccak256Hash calculates and returns the Keccak256 hash of the input data,
// converting it to an internal Hash data structure.
func Keccak256Hash(data ...[]byte) (h common.Hash) {
	d := NewKeccakState()
	for _, b := range data {
		d.Write(b)
	}
	d.Read(h[:])
	return h
}

// CreateAddress creates an ethereum address given the bytes and the nonce.
// The address is the low 20 bytes of keccak256(rlp([sender, nonce])).
func CreateAddress(b common.Address, nonce uint64) common.Address {
	data := encodeCreatePreimage(b, nonce)
	return common.BytesToAddress(Keccak256(data)[12:])
}

// CreateAddress2 creates an ethereum address given the address bytes, initial
// contract code hash and a salt, per EIP-1014:
// keccak256(0xff ++ sender ++ salt ++ keccak256(init_code))[12:].
func CreateAddress2(b common.Address, salt [32]byte, inithash []byte) common.Address {
	return common.BytesToAddress(Keccak256([]byte{0xff}, b.Bytes(), salt[:], inithash)[12:])
}

// encodeCreatePreimage RLP-encodes the two-element list [sender, nonce].
// Generic RLP serialization is outside this library; the create-address
// preimage is the single fixed shape the VM ever encodes, so it is spelled
// out here. The payload is at most 30 bytes, keeping the list header to a
// single byte.
func encodeCreatePreimage(addr common.Address, nonce uint64) []byte {
	var body []byte
	body = append(body, 0x80+common.AddressLength)
	body = append(body, addr.Bytes()...)
	switch {
	case nonce == 0:
		body = append(body, 0x80)
	case nonce < 0x80:
		body = append(body, byte(nonce))
	default:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], nonce)
		n := 0
		for buf[n] == 0 {
			n++
		}
		body = append(body, 0x80+byte(8-n))
		body = append(body, buf[n:]...)
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, 0xc0+byte(len(body)))
	return append(out, body...)
}

// HashToWord interprets a hash as a 256-bit big-endian word.
func HashToWord(h common.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes32(h[:])
}
