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
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/evmlabs/go-evm/common"
	"github.com/evmlabs/go-evm/core/types"
	"github.com/evmlabs/go-evm/params"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRevertBalanceAndStorage(t *testing.T) {
	var (
		s    = New(NewMemoryReader())
		addr = common.HexToAddress("0x01")
		slot = common.HexToHash("0xaa")
	)
	s.AddBalance(addr, uint256.NewInt(100))
	s.SetState(addr, slot, common.HexToHash("0x01"))

	id := s.Snapshot()
	s.AddBalance(addr, uint256.NewInt(1))
	s.SetState(addr, slot, common.HexToHash("0x02"))
	s.SetNonce(addr, 7)
	require.Equal(t, uint256.NewInt(101), s.GetBalance(addr))

	s.RevertToSnapshot(id)
	require.Equal(t, uint256.NewInt(100), s.GetBalance(addr))
	require.Equal(t, common.HexToHash("0x01"), s.GetState(addr, slot))
	require.Equal(t, uint64(0), s.GetNonce(addr))
}

func TestSnapshotRevertAccountCreation(t *testing.T) {
	s := New(NewMemoryReader())
	addr := common.HexToAddress("0x02")

	id := s.Snapshot()
	s.CreateAccount(addr)
	s.SetNonce(addr, 1)
	require.True(t, s.Exist(addr))

	s.RevertToSnapshot(id)
	require.False(t, s.Exist(addr))
}

func TestNestedSnapshots(t *testing.T) {
	var (
		s    = New(NewMemoryReader())
		addr = common.HexToAddress("0x03")
		slot = common.Hash{}
	)
	outer := s.Snapshot()
	s.SetState(addr, slot, common.HexToHash("0x01"))
	inner := s.Snapshot()
	s.SetState(addr, slot, common.HexToHash("0x02"))

	// Discarding the inner frame keeps the outer frame's write.
	s.RevertToSnapshot(inner)
	require.Equal(t, common.HexToHash("0x01"), s.GetState(addr, slot))
	s.RevertToSnapshot(outer)
	require.Equal(t, common.Hash{}, s.GetState(addr, slot))
}

func TestRevertOutOfOrderPanics(t *testing.T) {
	s := New(NewMemoryReader())
	id := s.Snapshot()
	s.RevertToSnapshot(id)
	require.Panics(t, func() { s.RevertToSnapshot(id + 10) })
}

func TestCommittedStateUnaffectedByWrites(t *testing.T) {
	var (
		reader = NewMemoryReader()
		addr   = common.HexToAddress("0x04")
		slot   = common.HexToHash("0x01")
	)
	reader.SetAccount(addr, &Account{Balance: uint256.NewInt(1), CodeHash: types.EmptyCodeHash})
	reader.SetStorage(addr, map[common.Hash]common.Hash{slot: common.HexToHash("0xbeef")})
	s := New(reader)

	require.Equal(t, common.HexToHash("0xbeef"), s.GetCommittedState(addr, slot))
	s.SetState(addr, slot, common.HexToHash("0xdead"))
	require.Equal(t, common.HexToHash("0xdead"), s.GetState(addr, slot))
	require.Equal(t, common.HexToHash("0xbeef"), s.GetCommittedState(addr, slot))
}

func TestLogsRevertWithScope(t *testing.T) {
	s := New(NewMemoryReader())
	s.AddLog(&types.Log{Address: common.HexToAddress("0x01")})

	id := s.Snapshot()
	s.AddLog(&types.Log{Address: common.HexToAddress("0x02")})
	s.AddLog(&types.Log{Address: common.HexToAddress("0x03")})
	require.Len(t, s.Logs(), 3)

	s.RevertToSnapshot(id)
	logs := s.Logs()
	require.Len(t, logs, 1)
	require.Equal(t, common.HexToAddress("0x01"), logs[0].Address)
}

func TestRefundCounter(t *testing.T) {
	s := New(NewMemoryReader())
	s.AddRefund(1000)
	id := s.Snapshot()
	s.AddRefund(500)
	s.SubRefund(200)
	require.Equal(t, uint64(1300), s.GetRefund())

	s.RevertToSnapshot(id)
	require.Equal(t, uint64(1000), s.GetRefund())

	// Going below zero is a programming error.
	require.Panics(t, func() { s.SubRefund(5000) })
}

func TestAccessListRevert(t *testing.T) {
	var (
		s    = New(NewMemoryReader())
		addr = common.HexToAddress("0xaa")
		slot = common.HexToHash("0x01")
	)
	s.AddAddressToAccessList(addr)
	id := s.Snapshot()
	s.AddSlotToAccessList(addr, slot)

	addrIn, slotIn := s.SlotInAccessList(addr, slot)
	require.True(t, addrIn)
	require.True(t, slotIn)

	// Warmth acquired inside a reverted scope is unwound; warmth from the
	// outer scope survives.
	s.RevertToSnapshot(id)
	addrIn, slotIn = s.SlotInAccessList(addr, slot)
	require.True(t, addrIn)
	require.False(t, slotIn)
}

func TestPrepareAccessList(t *testing.T) {
	var (
		s        = New(NewMemoryReader())
		sender   = common.HexToAddress("0x01")
		coinbase = common.HexToAddress("0x02")
		dest     = common.HexToAddress("0x03")
		precomp  = common.HexToAddress("0x04")
		listAddr = common.HexToAddress("0x05")
		listSlot = common.HexToHash("0x06")
	)
	rules := params.Rules{IsBerlin: true, IsLondon: true, IsShanghai: true}
	s.Prepare(rules, sender, coinbase, &dest, []common.Address{precomp}, types.AccessList{
		{Address: listAddr, StorageKeys: []common.Hash{listSlot}},
	})

	require.True(t, s.AddressInAccessList(sender))
	require.True(t, s.AddressInAccessList(dest))
	require.True(t, s.AddressInAccessList(precomp))
	require.True(t, s.AddressInAccessList(listAddr))
	// EIP-3651: coinbase is warm from Shanghai on.
	require.True(t, s.AddressInAccessList(coinbase))
	_, slotIn := s.SlotInAccessList(listAddr, listSlot)
	require.True(t, slotIn)
}

func TestTransientStorageRevert(t *testing.T) {
	var (
		s    = New(NewMemoryReader())
		addr = common.HexToAddress("0x01")
		key  = common.HexToHash("0x02")
	)
	s.SetTransientState(addr, key, common.HexToHash("0xff"))
	id := s.Snapshot()
	s.SetTransientState(addr, key, common.HexToHash("0xee"))
	require.Equal(t, common.HexToHash("0xee"), s.GetTransientState(addr, key))

	s.RevertToSnapshot(id)
	require.Equal(t, common.HexToHash("0xff"), s.GetTransientState(addr, key))

	// A fresh transaction starts with cleared transient storage.
	s.Prepare(params.Rules{}, common.Address{}, common.Address{}, nil, nil, nil)
	require.Equal(t, common.Hash{}, s.GetTransientState(addr, key))
}

func TestSelfDestructRevert(t *testing.T) {
	var (
		reader = NewMemoryReader()
		addr   = common.HexToAddress("0x01")
	)
	reader.SetAccount(addr, &Account{Balance: uint256.NewInt(42), CodeHash: types.EmptyCodeHash})
	s := New(reader)

	id := s.Snapshot()
	s.SelfDestruct(addr)
	require.True(t, s.HasSelfDestructed(addr))
	require.Equal(t, uint256.NewInt(0), s.GetBalance(addr))

	s.RevertToSnapshot(id)
	require.False(t, s.HasSelfDestructed(addr))
	require.Equal(t, uint256.NewInt(42), s.GetBalance(addr))
}

func TestSelfDestruct6780OnlyNewContracts(t *testing.T) {
	var (
		reader = NewMemoryReader()
		old    = common.HexToAddress("0x01")
	)
	reader.SetAccount(old, &Account{Balance: uint256.NewInt(1), CodeHash: types.EmptyCodeHash})
	s := New(reader)

	// Pre-existing contract: only the balance is burned.
	s.SelfDestruct6780(old)
	require.False(t, s.HasSelfDestructed(old))

	// Contract created in this transaction: full selfdestruct.
	fresh := common.HexToAddress("0x02")
	s.CreateAccount(fresh)
	s.CreateContract(fresh)
	s.SelfDestruct6780(fresh)
	require.True(t, s.HasSelfDestructed(fresh))
}

func TestEmpty(t *testing.T) {
	s := New(NewMemoryReader())
	addr := common.HexToAddress("0x01")
	require.False(t, s.Exist(addr))
	require.True(t, s.Empty(addr))

	s.CreateAccount(addr)
	require.True(t, s.Exist(addr))
	require.True(t, s.Empty(addr))

	s.AddBalance(addr, uint256.NewInt(1))
	require.False(t, s.Empty(addr))
	s.SubBalance(addr, uint256.NewInt(1))
	require.True(t, s.Empty(addr))
}

func TestCodeHandling(t *testing.T) {
	s := New(NewMemoryReader())
	addr := common.HexToAddress("0x01")
	code := []byte{0x60, 0x00}

	s.CreateAccount(addr)
	require.Equal(t, 0, s.GetCodeSize(addr))
	require.Equal(t, types.EmptyCodeHash, s.GetCodeHash(addr))

	id := s.Snapshot()
	s.SetCode(addr, code)
	require.Equal(t, code, s.GetCode(addr))
	require.Equal(t, 2, s.GetCodeSize(addr))

	s.RevertToSnapshot(id)
	require.Equal(t, 0, s.GetCodeSize(addr))
}

func TestIntoDiff(t *testing.T) {
	var (
		reader = NewMemoryReader()
		alive  = common.HexToAddress("0x01")
		doomed = common.HexToAddress("0x02")
		ghost  = common.HexToAddress("0x03") // touched but empty
		slot   = common.HexToHash("0xaa")
	)
	reader.SetAccount(doomed, &Account{Balance: uint256.NewInt(5), Nonce: 1})
	s := New(reader)

	s.SetNonce(alive, 3)
	s.AddBalance(alive, uint256.NewInt(100))
	s.SetCode(alive, []byte{0x60, 0x00})
	s.SetState(alive, slot, common.HexToHash("0x01"))

	s.SelfDestruct(doomed)

	s.AddBalance(ghost, uint256.NewInt(0))

	diff := s.IntoDiff(true)
	want := Diff{
		alive: {
			Balance: uint256.NewInt(100),
			Nonce:   3,
			Code:    []byte{0x60, 0x00},
			Storage: Storage{slot: common.HexToHash("0x01")},
		},
		doomed: {Deleted: true},
		ghost:  {Deleted: true},
	}
	if !reflect.DeepEqual(want, diff) {
		t.Fatalf("diff mismatch: have %v want %v", spew.Sdump(diff), spew.Sdump(want))
	}
}
