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

// Package types holds the execution-layer data types shared between the
// state journal and the virtual machine.
package types

import "github.com/evmlabs/go-evm/common"

// Log represents a contract log event. These events are generated by the
// LOG opcodes and stored/indexed by the node. Only the consensus fields are
// present; derived block/tx metadata is the embedder's concern.
type Log struct {
	// address of the contract that generated the event
	Address common.Address `json:"address"`
	// list of topics provided by the contract (at most four)
	Topics []common.Hash `json:"topics"`
	// supplied by the contract, usually ABI-encoded
	Data []byte `json:"data"`

	// Index of the log in the transaction. Set by the journal when the log
	// is appended, unwound when the log is reverted.
	Index uint `json:"logIndex"`
}

// Copy returns a deep copy of the log.
func (l *Log) Copy() *Log {
	cpy := &Log{
		Address: l.Address,
		Topics:  make([]common.Hash, len(l.Topics)),
		Data:    common.CopyBytes(l.Data),
		Index:   l.Index,
	}
	copy(cpy.Topics, l.Topics)
	return cpy
}
