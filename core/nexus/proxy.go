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
	"github.com/grindery-io/grindery-nexus-contracts/params"
)

var proxiableUUIDSelector = ERC1967StubABI.Methods["proxiableUUID"].ID

// implementationOf reads the ERC-1967 implementation slot of the frame.
func implementationOf(scope *vm.Scope) common.Address {
	return getAddress(scope, params.ImplementationSlot)
}

// upgradeToAndCall points the frame's implementation slot at newImpl and
// optionally runs data against it in the frame's storage.
func upgradeToAndCall(scope *vm.Scope, contractABI *abi.ABI, newImpl common.Address, data []byte) error {
	if scope.CodeSize(newImpl) == 0 {
		return raise("InvalidImplementation")
	}
	if err := setAddress(scope, params.ImplementationSlot, newImpl); err != nil {
		return err
	}
	if err := emit(scope, contractABI, "Upgraded", []common.Hash{addressTopic(newImpl)}); err != nil {
		return err
	}
	if len(data) > 0 {
		ret, err := scope.DelegateCall(newImpl, data, scope.Gas())
		if err != nil {
			return bubble(ret, err)
		}
	}
	return nil
}

// upgradeToAndCallUUPS only accepts implementations reporting the ERC-1967
// slot from proxiableUUID. Proxies refuse to answer it, so a proxy can never
// become an implementation.
func upgradeToAndCallUUPS(scope *vm.Scope, contractABI *abi.ABI, newImpl common.Address, data []byte) error {
	ret, err := scope.StaticCall(newImpl, proxiableUUIDSelector, scope.Gas())
	if err != nil || len(ret) != common.HashLength || common.BytesToHash(ret) != params.ImplementationSlot {
		return raise("IncompatibleImplementation")
	}
	return upgradeToAndCall(scope, contractABI, newImpl, data)
}

// onlyProxy requires the code to run through a proxy whose current
// implementation is this code.
func onlyProxy(scope *vm.Scope) error {
	if !scope.Delegated() || implementationOf(scope) != scope.CodeAddress() {
		return raise("UnauthorizedCallContext")
	}
	return nil
}

// notDelegated requires the code to be called directly.
func notDelegated(scope *vm.Scope) error {
	if scope.Delegated() {
		return raise("UnauthorizedCallContext")
	}
	return nil
}

// uupsHandlers returns the upgrade interface guarded by authorize.
func uupsHandlers(contractABI *abi.ABI, authorize func(*vm.Scope) error) map[string]handler {
	upgrade := func(scope *vm.Scope, impl common.Address, data []byte) error {
		if err := onlyProxy(scope); err != nil {
			return err
		}
		if err := authorize(scope); err != nil {
			return err
		}
		return upgradeToAndCallUUPS(scope, contractABI, impl, data)
	}
	return map[string]handler{
		"proxiableUUID": func(scope *vm.Scope, _ []interface{}) ([]interface{}, error) {
			if err := notDelegated(scope); err != nil {
				return nil, err
			}
			return []interface{}{[32]byte(params.ImplementationSlot)}, nil
		},
		"upgradeTo": func(scope *vm.Scope, args []interface{}) ([]interface{}, error) {
			return nil, upgrade(scope, args[0].(common.Address), nil)
		},
		"upgradeToAndCall": func(scope *vm.Scope, args []interface{}) ([]interface{}, error) {
			return nil, upgrade(scope, args[0].(common.Address), args[1].([]byte))
		},
	}
}

// ERC1967Proxy keeps its implementation in the ERC-1967 slot and delegates
// every call to it.
type ERC1967Proxy struct {
	implementation common.Address
	data           []byte
}

func newERC1967Proxy(args []byte) (vm.Contract, error) {
	values, err := unpackArgs(args, ERC1967ProxyABI.Constructor.Inputs)
	if err != nil {
		return nil, err
	}
	return &ERC1967Proxy{
		implementation: values[0].(common.Address),
		data:           values[1].([]byte),
	}, nil
}

// ERC1967ProxyCode returns the creation code of a proxy for impl, running
// data against it at construction.
func ERC1967ProxyCode(impl common.Address, data []byte) []byte {
	return newCode(KindERC1967Proxy, ERC1967ProxyABI, impl, data)
}

func (p *ERC1967Proxy) Construct(scope *vm.Scope) error {
	_, err := finish(nil, upgradeToAndCall(scope, ERC1967ProxyABI, p.implementation, p.data))
	return err
}

func (p *ERC1967Proxy) Run(scope *vm.Scope, input []byte) ([]byte, error) {
	return scope.DelegateCall(implementationOf(scope), input, scope.Gas())
}

// ERC1967Stub is a placeholder UUPS implementation without access control.
// It lets a proxy be deployed at an address independent of the final
// implementation, which is installed right after.
type ERC1967Stub struct {
	handlers map[string]handler
}

func newERC1967Stub([]byte) (vm.Contract, error) {
	return &ERC1967Stub{
		handlers: uupsHandlers(ERC1967StubABI, func(*vm.Scope) error { return nil }),
	}, nil
}

// ERC1967StubCode returns the creation code of the stub.
func ERC1967StubCode() []byte {
	return vm.NewCode(KindERC1967Stub, nil)
}

func (s *ERC1967Stub) Run(scope *vm.Scope, input []byte) ([]byte, error) {
	return dispatch(scope, input, ERC1967StubABI, s.handlers)
}
