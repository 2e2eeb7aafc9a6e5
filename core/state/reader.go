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

package state

import (
	"maps"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/evmlabs/go-evm/common"
	"github.com/evmlabs/go-evm/core/types"
	"github.com/holiman/uint256"
)

// Account is the backing-store view of an Ethereum account. Balance, nonce
// and code hash are the committed values at transaction start; storage is
// read slot by slot through Storage.
type Account struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash common.Hash
}

// Reader is the read-only interface the state journal layers over. All
// writes stay inside the journal; a Reader is never mutated during
// execution and may be shared by concurrent transactions.
type Reader interface {
	// Account retrieves the committed account identified by the address.
	// A nil account with nil error means the account does not exist.
	Account(addr common.Address) (*Account, error)

	// Storage retrieves the committed value of the given storage slot.
	Storage(addr common.Address, slot common.Hash) (common.Hash, error)

	// Code retrieves the contract code for the given code hash.
	Code(addr common.Address, codeHash common.Hash) ([]byte, error)
}

// cachingReader wraps a Reader with a contract-code cache. Code lookups are
// the dominant backing-store read during execution (every CALL resolves the
// callee's code) and codes are immutable by hash, making them ideal cache
// entries.
type cachingReader struct {
	inner Reader
	codes *fastcache.Cache
}

// codeCacheSize is the fastcache budget for contract codes, enough for a few
// thousand max-size contracts.
const codeCacheSize = 64 * 1024 * 1024

// NewCachingReader wraps the given reader with an in-memory contract-code
// cache keyed by code hash.
func NewCachingReader(inner Reader) Reader {
	return &cachingReader{
		inner: inner,
		codes: fastcache.New(codeCacheSize),
	}
}

func (r *cachingReader) Account(addr common.Address) (*Account, error) {
	return r.inner.Account(addr)
}

func (r *cachingReader) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	return r.inner.Storage(addr, slot)
}

func (r *cachingReader) Code(addr common.Address, codeHash common.Hash) ([]byte, error) {
	if !types.HasCode(codeHash) {
		return nil, nil
	}
	if code, ok := r.codes.HasGet(nil, codeHash.Bytes()); ok {
		return code, nil
	}
	code, err := r.inner.Code(addr, codeHash)
	if err != nil {
		return nil, err
	}
	if len(code) > 0 {
		r.codes.Set(codeHash.Bytes(), code)
	}
	return code, nil
}

// memoryReader is a Reader over plain maps, used for tests and for driving
// single transactions against synthetic prestate.
type memoryReader struct {
	accounts map[common.Address]*Account
	storage  map[common.Address]map[common.Hash]common.Hash
	codes    map[common.Hash][]byte
}

// NewMemoryReader constructs an empty in-memory backing store.
func NewMemoryReader() *memoryReader {
	return &memoryReader{
		accounts: make(map[common.Address]*Account),
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
		codes:    make(map[common.Hash][]byte),
	}
}

func (r *memoryReader) Account(addr common.Address) (*Account, error) {
	acct, ok := r.accounts[addr]
	if !ok {
		return nil, nil
	}
	return &Account{Nonce: acct.Nonce, Balance: new(uint256.Int).Set(acct.Balance), CodeHash: acct.CodeHash}, nil
}

func (r *memoryReader) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	return r.storage[addr][slot], nil
}

func (r *memoryReader) Code(addr common.Address, codeHash common.Hash) ([]byte, error) {
	return r.codes[codeHash], nil
}

// SetAccount installs an account into the backing store.
func (r *memoryReader) SetAccount(addr common.Address, acct *Account) {
	r.accounts[addr] = acct
}

// SetCode installs code for an account, updating its code hash.
func (r *memoryReader) SetCode(addr common.Address, code []byte) {
	hash := types.EmptyCodeHash
	if len(code) > 0 {
		hash = codeHash(code)
		r.codes[hash] = common.CopyBytes(code)
	}
	acct, ok := r.accounts[addr]
	if !ok {
		acct = &Account{Balance: new(uint256.Int), CodeHash: hash}
		r.accounts[addr] = acct
	}
	acct.CodeHash = hash
}

// SetStorage installs the storage of an account wholesale.
func (r *memoryReader) SetStorage(addr common.Address, storage map[common.Hash]common.Hash) {
	r.storage[addr] = maps.Clone(storage)
}
