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

package types

import (
	"github.com/evmlabs/go-evm/common"
	"github.com/evmlabs/go-evm/crypto"
)

// EmptyCodeHash is the known hash of the empty EVM bytecode. An account
// carrying this code hash is code-less; the all-zero hash is reserved for
// accounts that do not exist at all.
var EmptyCodeHash = crypto.Keccak256Hash(nil) // c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470

// HasCode reports whether the given code hash belongs to an account with
// actual bytecode deployed.
func HasCode(codeHash common.Hash) bool {
	return codeHash != (common.Hash{}) && codeHash != EmptyCodeHash
}
