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

	"github.com/evmlabs/go-evm/common"
	"github.com/evmlabs/go-evm/core/types"
	"github.com/evmlabs/go-evm/crypto"
	"github.com/holiman/uint256"
)

// Storage is an in-memory view over an account's storage slots.
type Storage map[common.Hash]common.Hash

// Copy returns an independent copy of the storage map.
func (s Storage) Copy() Storage {
	return maps.Clone(s)
}

// stateObject represents an Ethereum account which is being modified.
//
// The usage pattern is as follows:
//   - First you need to obtain a state object.
//   - Account values as well as storages can be accessed and modified
//     through the object.
//   - Finally, call the journal's entries to revert, or IntoDiff on the
//     StateDB to extract the changes for commit.
type stateObject struct {
	db      *StateDB
	address common.Address

	nonce    uint64
	balance  uint256.Int
	codeHash common.Hash
	code     []byte // contract bytecode, which gets set when code is loaded

	// originStorage caches the committed (transaction-start) slot values.
	// GetCommittedState and the SSTORE metering read through this cache so
	// a slot's original value stays observable after any number of writes.
	originStorage Storage
	// dirtyStorage holds slot values modified in the current transaction.
	dirtyStorage Storage

	// Flag whether the account was marked as self-destructed. The journal
	// can flip this back on revert.
	selfDestructed bool

	// newContract reports whether the account was created in the current
	// transaction, which makes its pre-existing storage unobservable
	// (always zero) and arms the EIP-6780 same-transaction deletion rule.
	newContract bool
}

// newObject instantiates a state object for the given account. acct may be
// nil, in which case the object starts out as a fresh, empty account.
func newObject(db *StateDB, address common.Address, acct *Account) *stateObject {
	obj := &stateObject{
		db:            db,
		address:       address,
		codeHash:      types.EmptyCodeHash,
		originStorage: make(Storage),
		dirtyStorage:  make(Storage),
	}
	if acct != nil {
		obj.nonce = acct.Nonce
		if acct.Balance != nil {
			obj.balance.Set(acct.Balance)
		}
		if acct.CodeHash != (common.Hash{}) {
			obj.codeHash = acct.CodeHash
		}
	}
	return obj
}

// empty returns whether the account is considered empty per EIP-161:
// zero nonce, zero balance and no code.
func (s *stateObject) empty() bool {
	return s.nonce == 0 && s.balance.IsZero() && s.codeHash == types.EmptyCodeHash
}

// Address returns the address of the contract/account.
func (s *stateObject) Address() common.Address {
	return s.address
}

// Balance returns the balance of the account.
func (s *stateObject) Balance() *uint256.Int {
	return &s.balance
}

// Nonce returns the nonce of the account.
func (s *stateObject) Nonce() uint64 {
	return s.nonce
}

// CodeHash returns the hash of the account's contract code.
func (s *stateObject) CodeHash() common.Hash {
	return s.codeHash
}

// Code returns the contract code associated with this object, loading it
// from the backing reader on first use.
func (s *stateObject) Code() []byte {
	if s.code != nil {
		return s.code
	}
	if !types.HasCode(s.codeHash) {
		return nil
	}
	code, err := s.db.reader.Code(s.address, s.codeHash)
	if err != nil {
		s.db.setError(err)
		return nil
	}
	s.code = code
	return code
}

// CodeSize returns the size of the contract code associated with this object.
func (s *stateObject) CodeSize() int {
	return len(s.Code())
}

// AddBalance adds amount to s's balance. It is used to add funds to the
// destination account of a transfer.
func (s *stateObject) AddBalance(amount *uint256.Int) {
	// EIP161: We must check emptiness for the objects such that the account
	// clearing (0,0,0 objects) can take effect. A zero-value addition still
	// counts as a touch.
	if amount.IsZero() {
		if s.empty() {
			s.touch()
		}
		return
	}
	s.SetBalance(new(uint256.Int).Add(s.Balance(), amount))
}

// SubBalance removes amount from s's balance. It is used to remove funds
// from the origin account of a transfer.
func (s *stateObject) SubBalance(amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	s.SetBalance(new(uint256.Int).Sub(s.Balance(), amount))
}

// SetBalance sets the balance, journaling the previous value.
func (s *stateObject) SetBalance(amount *uint256.Int) {
	s.db.journal.append(balanceChange{
		account: s.address,
		prev:    *new(uint256.Int).Set(s.Balance()),
	})
	s.setBalance(amount)
}

func (s *stateObject) setBalance(amount *uint256.Int) {
	s.balance.Set(amount)
}

// SetNonce sets the nonce, journaling the previous value.
func (s *stateObject) SetNonce(nonce uint64) {
	s.db.journal.append(nonceChange{
		account: s.address,
		prev:    s.nonce,
	})
	s.setNonce(nonce)
}

func (s *stateObject) setNonce(nonce uint64) {
	s.nonce = nonce
}

// SetCode deploys code to the account, journaling the previous code.
func (s *stateObject) SetCode(codeHash common.Hash, code []byte) {
	s.db.journal.append(codeChange{
		account:  s.address,
		prevCode: s.code,
		prevHash: s.codeHash,
	})
	s.setCode(codeHash, code)
}

func (s *stateObject) setCode(codeHash common.Hash, code []byte) {
	s.code = code
	s.codeHash = codeHash
}

// GetState retrieves a value from the account storage, preferring pending
// writes over the committed value.
func (s *stateObject) GetState(key common.Hash) common.Hash {
	if value, dirty := s.dirtyStorage[key]; dirty {
		return value
	}
	return s.GetCommittedState(key)
}

// GetCommittedState retrieves the value of the slot as it was at the start
// of the transaction, ignoring any pending writes.
func (s *stateObject) GetCommittedState(key common.Hash) common.Hash {
	if value, cached := s.originStorage[key]; cached {
		return value
	}
	// Accounts created in this transaction have no observable committed
	// storage, regardless of what the backing store holds.
	if s.newContract {
		s.originStorage[key] = common.Hash{}
		return common.Hash{}
	}
	value, err := s.db.reader.Storage(s.address, key)
	if err != nil {
		s.db.setError(err)
		return common.Hash{}
	}
	s.originStorage[key] = value
	return value
}

// SetState updates a value in account storage, journaling the previous
// pending value.
func (s *stateObject) SetState(key, value common.Hash) {
	prev := s.GetState(key)
	if prev == value {
		return
	}
	s.db.journal.append(storageChange{
		account:  s.address,
		key:      key,
		prevalue: prev,
	})
	s.setState(key, value)
}

func (s *stateObject) setState(key, value common.Hash) {
	s.dirtyStorage[key] = value
}

func (s *stateObject) markSelfdestructed() {
	s.selfDestructed = true
}

func (s *stateObject) touch() {
	s.db.journal.append(touchChange{account: s.address})
}

func codeHash(code []byte) common.Hash {
	return crypto.Keccak256Hash(code)
}
