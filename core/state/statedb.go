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

// Package state provides the transactional overlay the virtual machine
// executes against: a journaled view over a read-only backing store,
// supporting snapshot/rollback for nested call frames, EIP-2929 access
// lists, EIP-1153 transient storage and the gas refund counter.
package state

import (
	"fmt"
	"maps"
	"sort"

	"github.com/evmlabs/go-evm/common"
	"github.com/evmlabs/go-evm/core/types"
	"github.com/evmlabs/go-evm/params"
	"github.com/holiman/uint256"
)

// StateDB structs within the ethereum protocol are used to store anything
// within the merkle trie. StateDBs take care of caching and storing nested
// states. It's the general query interface to retrieve accounts and
// contracts.
//
// A StateDB belongs to exactly one transaction execution. All mutations are
// journaled; Snapshot/RevertToSnapshot implement the per-frame commit or
// discard protocol, and IntoDiff extracts the surviving changes for the
// embedder to commit.
type StateDB struct {
	reader Reader

	// This map holds 'live' objects, which will get modified while
	// processing a state transition.
	stateObjects map[common.Address]*stateObject

	// The refund counter, also used by state transitioning.
	refund uint64

	logs    []*types.Log
	logSize uint

	// Per-transaction access list
	accessList *accessList

	// Transient storage
	transientStorage transientStorage

	// Journal of state modifications. This is the backbone of
	// Snapshot and RevertToSnapshot.
	journal *journal

	// DB error.
	// State objects are used by the consensus core which are unable to deal
	// with database-level errors. Any error that occurs during a database
	// read is memoized here and will eventually be returned by Error().
	dbErr error
}

// New creates a new StateDB layered over the given backing reader.
func New(reader Reader) *StateDB {
	return &StateDB{
		reader:           reader,
		stateObjects:     make(map[common.Address]*stateObject),
		accessList:       newAccessList(),
		transientStorage: newTransientStorage(),
		journal:          newJournal(),
	}
}

// setError remembers the first non-nil error it is called with.
func (s *StateDB) setError(err error) {
	if s.dbErr == nil {
		s.dbErr = err
	}
}

// Error returns the memorized database failure occurred earlier.
func (s *StateDB) Error() error {
	return s.dbErr
}

// AddLog appends a log emitted by the currently executing contract to the
// transaction's log collection. The append is journaled, so logs emitted
// inside a scope that reverts are discarded with it.
func (s *StateDB) AddLog(log *types.Log) {
	s.journal.append(addLogChange{})

	log.Index = s.logSize
	s.logs = append(s.logs, log)
	s.logSize++
}

// Logs returns the logs accumulated so far by the transaction.
func (s *StateDB) Logs() []*types.Log {
	return s.logs
}

// AddRefund adds gas to the refund counter.
func (s *StateDB) AddRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	s.refund += gas
}

// SubRefund removes gas from the refund counter.
// This method will panic if the refund counter goes below zero.
func (s *StateDB) SubRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	if gas > s.refund {
		panic(fmt.Sprintf("Refund counter below zero (gas: %d > refund: %d)", gas, s.refund))
	}
	s.refund -= gas
}

// GetRefund returns the current value of the refund counter.
func (s *StateDB) GetRefund() uint64 {
	return s.refund
}

// Exist reports whether the given account address exists in the state.
// Notably this also returns true for self-destructed accounts.
func (s *StateDB) Exist(addr common.Address) bool {
	return s.getStateObject(addr) != nil
}

// Empty returns whether the state object is either non-existent
// or empty according to the EIP161 specification (balance = nonce = code = 0).
func (s *StateDB) Empty(addr common.Address) bool {
	so := s.getStateObject(addr)
	return so == nil || so.empty()
}

// GetBalance retrieves the balance from the given address or 0 if object not found.
func (s *StateDB) GetBalance(addr common.Address) *uint256.Int {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return stateObject.Balance()
	}
	return new(uint256.Int)
}

// GetNonce retrieves the nonce from the given address or 0 if object not found.
func (s *StateDB) GetNonce(addr common.Address) uint64 {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return stateObject.Nonce()
	}
	return 0
}

// GetCode retrieves a particular contract's code.
func (s *StateDB) GetCode(addr common.Address) []byte {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return stateObject.Code()
	}
	return nil
}

// GetCodeSize retrieves a particular contracts code's size.
func (s *StateDB) GetCodeSize(addr common.Address) int {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return stateObject.CodeSize()
	}
	return 0
}

// GetCodeHash returns the code hash for the given account, or the zero hash
// for accounts that do not exist.
func (s *StateDB) GetCodeHash(addr common.Address) common.Hash {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return stateObject.CodeHash()
	}
	return common.Hash{}
}

// GetState retrieves the value associated with the specific key, reflecting
// the most recent write in the current frame's lineage.
func (s *StateDB) GetState(addr common.Address, hash common.Hash) common.Hash {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return stateObject.GetState(hash)
	}
	return common.Hash{}
}

// GetCommittedState retrieves the value associated with the specific key as
// it was at the start of the transaction, regardless of pending writes.
func (s *StateDB) GetCommittedState(addr common.Address, hash common.Hash) common.Hash {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return stateObject.GetCommittedState(hash)
	}
	return common.Hash{}
}

// HasSelfDestructed reports whether the account was marked self-destructed
// in the current transaction.
func (s *StateDB) HasSelfDestructed(addr common.Address) bool {
	stateObject := s.getStateObject(addr)
	if stateObject != nil {
		return stateObject.selfDestructed
	}
	return false
}

/*
 * SETTERS
 */

// AddBalance adds amount to the account associated with addr.
func (s *StateDB) AddBalance(addr common.Address, amount *uint256.Int) {
	stateObject := s.getOrNewStateObject(addr)
	if stateObject != nil {
		stateObject.AddBalance(amount)
	}
}

// SubBalance subtracts amount from the account associated with addr.
func (s *StateDB) SubBalance(addr common.Address, amount *uint256.Int) {
	stateObject := s.getOrNewStateObject(addr)
	if stateObject != nil {
		stateObject.SubBalance(amount)
	}
}

// SetBalance sets the balance of the account associated with addr.
func (s *StateDB) SetBalance(addr common.Address, amount *uint256.Int) {
	stateObject := s.getOrNewStateObject(addr)
	if stateObject != nil {
		stateObject.SetBalance(amount)
	}
}

// SetNonce sets the nonce of the account associated with addr.
func (s *StateDB) SetNonce(addr common.Address, nonce uint64) {
	stateObject := s.getOrNewStateObject(addr)
	if stateObject != nil {
		stateObject.SetNonce(nonce)
	}
}

// SetCode deploys code to the account associated with addr.
func (s *StateDB) SetCode(addr common.Address, code []byte) {
	stateObject := s.getOrNewStateObject(addr)
	if stateObject != nil {
		stateObject.SetCode(codeHash(code), code)
	}
}

// SetState updates the value associated with the specific key.
func (s *StateDB) SetState(addr common.Address, key, value common.Hash) {
	stateObject := s.getOrNewStateObject(addr)
	if stateObject != nil {
		stateObject.SetState(key, value)
	}
}

// SetStorage replaces the entire storage for the specified account with the
// given one, wiping whatever the backing store held. Used by test harnesses
// to install synthetic prestate.
func (s *StateDB) SetStorage(addr common.Address, storage map[common.Hash]common.Hash) {
	stateObject := s.getOrNewStateObject(addr)
	stateObject.newContract = true // hide the backing store's storage
	for key, value := range storage {
		stateObject.SetState(key, value)
	}
}

// SelfDestruct marks the given account as self-destructed.
// This clears the account balance.
//
// The account's state object is still available until the state is committed,
// getStateObject will return a non-nil account after SelfDestruct.
func (s *StateDB) SelfDestruct(addr common.Address) {
	stateObject := s.getStateObject(addr)
	if stateObject == nil {
		return
	}
	s.journal.append(selfDestructChange{
		account: addr,
		prev:    stateObject.selfDestructed,
	})
	stateObject.markSelfdestructed()
	stateObject.SetBalance(new(uint256.Int))
}

// SelfDestruct6780 implements the post-Cancun rule (EIP-6780): the account
// is only deleted if it was created in the same transaction. The balance
// sweep to the beneficiary is performed by the opcode regardless.
func (s *StateDB) SelfDestruct6780(addr common.Address) {
	stateObject := s.getStateObject(addr)
	if stateObject == nil {
		return
	}
	if stateObject.newContract {
		s.SelfDestruct(addr)
	}
}

// SetTransientState sets transient storage for a given account. It adds the
// change to the journal so that it can be rolled back to its previous value
// if there is a revert.
func (s *StateDB) SetTransientState(addr common.Address, key, value common.Hash) {
	prev := s.GetTransientState(addr, key)
	if prev == value {
		return
	}
	s.journal.append(transientStorageChange{
		account:  addr,
		key:      key,
		prevalue: prev,
	})
	s.setTransientState(addr, key, value)
}

// setTransientState is a lower level setter for transient storage. It
// is called during a revert to prevent modifications to the journal.
func (s *StateDB) setTransientState(addr common.Address, key, value common.Hash) {
	s.transientStorage.Set(addr, key, value)
}

// GetTransientState gets transient storage for a given account.
func (s *StateDB) GetTransientState(addr common.Address, key common.Hash) common.Hash {
	return s.transientStorage.Get(addr, key)
}

//
// Setting, updating & deleting state object methods.
//

// getStateObject retrieves a state object given by the address, returning
// nil if the object is not found in this execution's view nor in the
// backing store.
func (s *StateDB) getStateObject(addr common.Address) *stateObject {
	if obj, ok := s.stateObjects[addr]; ok {
		return obj
	}
	acct, err := s.reader.Account(addr)
	if err != nil {
		s.setError(fmt.Errorf("getStateObject (%x) error: %w", addr.Bytes(), err))
		return nil
	}
	if acct == nil {
		return nil
	}
	obj := newObject(s, addr, acct)
	s.stateObjects[addr] = obj
	return obj
}

// getOrNewStateObject retrieves a state object or creates a new state object
// if nil.
func (s *StateDB) getOrNewStateObject(addr common.Address) *stateObject {
	obj := s.getStateObject(addr)
	if obj == nil {
		obj = s.createObject(addr)
	}
	return obj
}

// createObject creates a new state object. The assumption is held that there
// is no existing account with the given address.
func (s *StateDB) createObject(addr common.Address) *stateObject {
	obj := newObject(s, addr, nil)
	s.journal.append(createObjectChange{account: addr})
	s.stateObjects[addr] = obj
	return obj
}

// CreateAccount explicitly creates a new state object, assuming that the
// account did not previously exist in the state. If the account already
// exists, this function is called inappropriately and its behavior is
// undefined; callers gate on Exist.
func (s *StateDB) CreateAccount(addr common.Address) {
	s.createObject(addr)
}

// CreateContract is used whenever a contract is created. This may be
// preceded by CreateAccount, but that is only the case for an account
// without existing storage. The difference is that contract creation arms
// the storage-isolation and EIP-6780 rules, account creation does not.
func (s *StateDB) CreateContract(addr common.Address) {
	obj := s.getStateObject(addr)
	if !obj.newContract {
		obj.newContract = true
		s.journal.append(createContractChange{account: addr})
	}
}

// Snapshot returns an identifier for the current revision of the state.
func (s *StateDB) Snapshot() int {
	return s.journal.snapshot()
}

// RevertToSnapshot reverts all state changes made since the given revision.
func (s *StateDB) RevertToSnapshot(revid int) {
	s.journal.revertToSnapshot(revid, s)
}

// Prepare handles the preparatory steps for executing a state transition:
//
//   - Reset access list (Berlin)
//   - Add coinbase to access list (Shanghai)
//   - Reset transient storage (Cancun)
//
// The prestate warming is deliberately not journaled: addresses and slots
// the transaction declares (or that are warm by rule) can never revert to
// cold.
func (s *StateDB) Prepare(rules params.Rules, sender, coinbase common.Address, dst *common.Address, precompiles []common.Address, list types.AccessList) {
	if rules.IsBerlin {
		// Clear out any leftover from previous executions
		al := newAccessList()
		s.accessList = al

		al.AddAddress(sender)
		if dst != nil {
			al.AddAddress(*dst)
			// If it's a create-tx, the destination will be added inside evm.create
		}
		for _, addr := range precompiles {
			al.AddAddress(addr)
		}
		for _, el := range list {
			al.AddAddress(el.Address)
			for _, key := range el.StorageKeys {
				al.AddSlot(el.Address, key)
			}
		}
		if rules.IsShanghai { // EIP-3651: warm coinbase
			al.AddAddress(coinbase)
		}
	}
	// Reset transient storage at the beginning of transaction execution
	s.transientStorage = newTransientStorage()
}

// AddAddressToAccessList adds the given address to the access list.
func (s *StateDB) AddAddressToAccessList(addr common.Address) {
	if s.accessList.AddAddress(addr) {
		s.journal.append(accessListAddAccountChange{address: addr})
	}
}

// AddSlotToAccessList adds the given (address, slot)-tuple to the access list.
func (s *StateDB) AddSlotToAccessList(addr common.Address, slot common.Hash) {
	addrMod, slotMod := s.accessList.AddSlot(addr, slot)
	if addrMod {
		// In practice, this should not happen, since there is no way to enter the
		// scope of 'address' without having the 'address' become already added
		// to the access list (via call-variant, create, etc).
		// Better safe than sorry, though
		s.journal.append(accessListAddAccountChange{address: addr})
	}
	if slotMod {
		s.journal.append(accessListAddSlotChange{
			address: addr,
			slot:    slot,
		})
	}
}

// AddressInAccessList returns true if the given address is in the access list.
func (s *StateDB) AddressInAccessList(addr common.Address) bool {
	return s.accessList.ContainsAddress(addr)
}

// SlotInAccessList returns true if the given (address, slot)-tuple is in the access list.
func (s *StateDB) SlotInAccessList(addr common.Address, slot common.Hash) (addressPresent bool, slotPresent bool) {
	return s.accessList.Contains(addr, slot)
}

// AccountDiff is the net change of one account over a transaction.
type AccountDiff struct {
	Balance *uint256.Int
	Nonce   uint64
	Code    []byte
	Storage Storage
	Deleted bool // self-destructed, or empty and touched (EIP-161)
}

// Diff is the full state change of a transaction, keyed by account.
type Diff map[common.Address]*AccountDiff

// IntoDiff finalises the state by removing self-destructed and (per EIP-158)
// empty-touched objects and returns the surviving modifications for the
// embedder to apply to its persistent store. The StateDB must not be used
// afterwards.
func (s *StateDB) IntoDiff(deleteEmptyObjects bool) Diff {
	diff := make(Diff)
	for addr := range s.journal.dirties {
		obj, exist := s.stateObjects[addr]
		if !exist {
			// Journal entries can outlive their object: a revert that undid a
			// createObjectChange leaves a dangling dirty marker behind.
			continue
		}
		if obj.selfDestructed || (deleteEmptyObjects && obj.empty()) {
			diff[addr] = &AccountDiff{Deleted: true}
			continue
		}
		d := &AccountDiff{
			Balance: new(uint256.Int).Set(obj.Balance()),
			Nonce:   obj.Nonce(),
			Code:    obj.code,
			Storage: make(Storage),
		}
		maps.Copy(d.Storage, obj.dirtyStorage)
		diff[addr] = d
	}
	return diff
}

// DirtyAddresses returns the sorted addresses touched by the transaction,
// useful for deterministic inspection in tests and tracing.
func (s *StateDB) DirtyAddresses() []common.Address {
	addrs := make([]common.Address, 0, len(s.journal.dirties))
	for addr := range s.journal.dirties {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Cmp(addrs[j]) < 0 })
	return addrs
}
