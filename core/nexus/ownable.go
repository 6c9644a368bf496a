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

package nexus

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/grindery-io/grindery-nexus-contracts/core/vm"
)

// ownable2Step is a two-step ownership transfer over two storage slots.
// Ownership only changes when the proposed owner accepts.
type ownable2Step struct {
	contractABI *abi.ABI
	ownerSlot   common.Hash
	pendingSlot common.Hash
}

func (o *ownable2Step) owner(scope *vm.Scope) common.Address {
	return getAddress(scope, o.ownerSlot)
}

func (o *ownable2Step) pendingOwner(scope *vm.Scope) common.Address {
	return getAddress(scope, o.pendingSlot)
}

func (o *ownable2Step) onlyOwner(scope *vm.Scope) error {
	if scope.Caller() != o.owner(scope) {
		return raise("NotOwner")
	}
	return nil
}

// setOwner assigns ownership directly and clears any pending transfer.
func (o *ownable2Step) setOwner(scope *vm.Scope, newOwner common.Address) error {
	prev := o.owner(scope)
	if err := setAddress(scope, o.pendingSlot, common.Address{}); err != nil {
		return err
	}
	if err := setAddress(scope, o.ownerSlot, newOwner); err != nil {
		return err
	}
	return emit(scope, o.contractABI, "OwnershipTransferred", []common.Hash{addressTopic(prev), addressTopic(newOwner)})
}

func (o *ownable2Step) transferOwnership(scope *vm.Scope, candidate common.Address) error {
	if err := o.onlyOwner(scope); err != nil {
		return err
	}
	if err := setAddress(scope, o.pendingSlot, candidate); err != nil {
		return err
	}
	return emit(scope, o.contractABI, "OwnershipTransferStarted", []common.Hash{addressTopic(o.owner(scope)), addressTopic(candidate)})
}

func (o *ownable2Step) acceptOwnership(scope *vm.Scope) error {
	pending := o.pendingOwner(scope)
	if pending == (common.Address{}) || scope.Caller() != pending {
		return raise("InvalidPendingOwner")
	}
	return o.setOwner(scope, pending)
}

// handlers returns the ABI methods of the ownership interface.
func (o *ownable2Step) handlers() map[string]handler {
	return map[string]handler{
		"owner": func(scope *vm.Scope, _ []interface{}) ([]interface{}, error) {
			return []interface{}{o.owner(scope)}, nil
		},
		"pendingOwner": func(scope *vm.Scope, _ []interface{}) ([]interface{}, error) {
			return []interface{}{o.pendingOwner(scope)}, nil
		},
		"transferOwnership": func(scope *vm.Scope, args []interface{}) ([]interface{}, error) {
			return nil, o.transferOwnership(scope, args[0].(common.Address))
		},
		"acceptOwnership": func(scope *vm.Scope, _ []interface{}) ([]interface{}, error) {
			return nil, o.acceptOwnership(scope)
		},
	}
}
