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

package core

import (
	"math/big"

	"github.com/evmlabs/go-evm/common"
	"github.com/evmlabs/go-evm/core/vm"
	"github.com/holiman/uint256"
)

// NewEVMBlockContext creates a new block context for use in the EVM. The hash
// getter resolves BLOCKHASH lookups; passing nil installs a getter that
// returns the zero hash for every height.
func NewEVMBlockContext(coinbase common.Address, number *big.Int, time uint64, getHash vm.GetHashFunc) vm.BlockContext {
	if getHash == nil {
		getHash = func(n uint64) common.Hash { return common.Hash{} }
	}
	return vm.BlockContext{
		CanTransfer: CanTransfer,
		Transfer:    Transfer,
		GetHash:     getHash,
		Coinbase:    coinbase,
		BlockNumber: new(big.Int).Set(number),
		Time:        time,
		Difficulty:  new(big.Int),
		GasLimit:    ^uint64(0),
	}
}

// CanTransfer checks whether there are enough funds in the address' account to make a transfer.
// This does not take the necessary gas in to account to make the transfer valid.
func CanTransfer(db vm.StateDB, addr common.Address, amount *uint256.Int) bool {
	return db.GetBalance(addr).Cmp(amount) >= 0
}

// Transfer subtracts amount from sender and adds amount to recipient using the given Db
func Transfer(db vm.StateDB, sender, recipient common.Address, amount *uint256.Int) {
	db.SubBalance(sender, amount)
	db.AddBalance(recipient, amount)
}
