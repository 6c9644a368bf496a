// Copyright 2025 The go-nexus Authors
// This file is part of the go-nexus library.
//
// The go-nexus library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-nexus library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-nexus library. If not, see <http://www.gnu.org/licenses/>.

// Package state provides the journaled in-memory world state the relay
// contracts execute against.
package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type stateObject struct {
	nonce   uint64
	code    []byte
	storage map[common.Hash]common.Hash
}

// StateDB holds accounts, their code and storage, and the logs emitted by
// the transaction currently being processed. It is not safe for concurrent
// use; the chain serializes access.
type StateDB struct {
	objects map[common.Address]*stateObject
	journal journal

	logs    []*types.Log
	thash   common.Hash
	txIndex int
}

// New creates an empty world state.
func New() *StateDB {
	return &StateDB{
		objects: make(map[common.Address]*stateObject),
	}
}

func (s *StateDB) getOrNewObject(addr common.Address) *stateObject {
	if obj, ok := s.objects[addr]; ok {
		return obj
	}
	obj := &stateObject{storage: make(map[common.Hash]common.Hash)}
	s.objects[addr] = obj
	s.journal.append(createObjectChange{account: addr})
	return obj
}

// Exist reports whether the account has ever been touched.
func (s *StateDB) Exist(addr common.Address) bool {
	_, ok := s.objects[addr]
	return ok
}

// GetNonce returns the account nonce, zero for unknown accounts.
func (s *StateDB) GetNonce(addr common.Address) uint64 {
	if obj, ok := s.objects[addr]; ok {
		return obj.nonce
	}
	return 0
}

// SetNonce overwrites the account nonce.
func (s *StateDB) SetNonce(addr common.Address, nonce uint64) {
	obj := s.getOrNewObject(addr)
	s.journal.append(nonceChange{account: addr, prev: obj.nonce})
	obj.nonce = nonce
}

// GetCode returns the code stored at addr.
func (s *StateDB) GetCode(addr common.Address) []byte {
	if obj, ok := s.objects[addr]; ok {
		return obj.code
	}
	return nil
}

// GetCodeSize returns the length of the code stored at addr.
func (s *StateDB) GetCodeSize(addr common.Address) int {
	return len(s.GetCode(addr))
}

// GetCodeHash returns the keccak256 hash of the code at addr, or the zero
// hash for accounts without code.
func (s *StateDB) GetCodeHash(addr common.Address) common.Hash {
	code := s.GetCode(addr)
	if len(code) == 0 {
		return common.Hash{}
	}
	return crypto.Keccak256Hash(code)
}

// SetCode installs code at addr.
func (s *StateDB) SetCode(addr common.Address, code []byte) {
	obj := s.getOrNewObject(addr)
	s.journal.append(codeChange{account: addr, prevCode: obj.code})
	obj.code = common.CopyBytes(code)
}

// GetState reads a storage slot.
func (s *StateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if obj, ok := s.objects[addr]; ok {
		return obj.storage[key]
	}
	return common.Hash{}
}

// SetState writes a storage slot and returns the previous value.
func (s *StateDB) SetState(addr common.Address, key, value common.Hash) common.Hash {
	obj := s.getOrNewObject(addr)
	prev := obj.storage[key]
	if prev == value {
		return prev
	}
	s.journal.append(storageChange{account: addr, key: key, prevalue: prev})
	if value == (common.Hash{}) {
		delete(obj.storage, key)
	} else {
		obj.storage[key] = value
	}
	return prev
}

// SetTxContext sets the current transaction hash and index, and drops the
// logs and journal of the previous transaction.
func (s *StateDB) SetTxContext(thash common.Hash, ti int) {
	s.thash = thash
	s.txIndex = ti
	s.logs = nil
	s.journal.reset()
}

// AddLog records a log for the current transaction.
func (s *StateDB) AddLog(log *types.Log) {
	s.journal.append(addLogChange{})
	log.TxHash = s.thash
	log.TxIndex = uint(s.txIndex)
	log.Index = uint(len(s.logs))
	s.logs = append(s.logs, log)
}

// Logs returns the logs emitted by the current transaction.
func (s *StateDB) Logs() []*types.Log {
	return s.logs
}

// Snapshot returns an identifier for the current revision of the state.
func (s *StateDB) Snapshot() int {
	return s.journal.length()
}

// RevertToSnapshot reverts all state changes made since the given revision.
func (s *StateDB) RevertToSnapshot(revid int) {
	if revid < 0 || revid > s.journal.length() {
		panic("state: revision id cannot be reverted")
	}
	s.journal.revertTo(s, revid)
}
