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

package state

import (
	"github.com/ethereum/go-ethereum/common"
)

// journalEntry is a modification entry in the state change journal that can
// be reverted on demand.
type journalEntry interface {
	revert(*StateDB)
}

// journal contains the list of state modifications applied since the last
// commit. These are tracked to be able to be reverted in the case of an
// execution exception or request for reversal.
type journal struct {
	entries []journalEntry
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
}

// revertTo undoes every entry recorded after the given length.
func (j *journal) revertTo(s *StateDB, length int) {
	for i := len(j.entries) - 1; i >= length; i-- {
		j.entries[i].revert(s)
	}
	j.entries = j.entries[:length]
}

func (j *journal) length() int {
	return len(j.entries)
}

func (j *journal) reset() {
	j.entries = j.entries[:0]
}

type (
	createObjectChange struct {
		account common.Address
	}
	nonceChange struct {
		account common.Address
		prev    uint64
	}
	codeChange struct {
		account  common.Address
		prevCode []byte
	}
	storageChange struct {
		account  common.Address
		key      common.Hash
		prevalue common.Hash
	}
	addLogChange struct{}
)

func (ch createObjectChange) revert(s *StateDB) {
	delete(s.objects, ch.account)
}

func (ch nonceChange) revert(s *StateDB) {
	s.objects[ch.account].nonce = ch.prev
}

func (ch codeChange) revert(s *StateDB) {
	s.objects[ch.account].code = ch.prevCode
}

func (ch storageChange) revert(s *StateDB) {
	obj := s.objects[ch.account]
	if ch.prevalue == (common.Hash{}) {
		delete(obj.storage, ch.key)
		return
	}
	obj.storage[ch.key] = ch.prevalue
}

func (ch addLogChange) revert(s *StateDB) {
	s.logs = s.logs[:len(s.logs)-1]
}
