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
	"github.com/ethereum/go-ethereum/common"

	"github.com/grindery-io/grindery-nexus-contracts/core/vm"
)

var (
	beaconOwnerSlot          = slot(0)
	beaconPendingOwnerSlot   = slot(1)
	beaconImplementationSlot = slot(2)
)

// UpgradeableBeacon holds the implementation shared by every agent.
type UpgradeableBeacon struct {
	implementation common.Address // initial implementation
	owner          common.Address // initial owner

	ownable  *ownable2Step
	handlers map[string]handler
}

func newBeacon(args []byte) (vm.Contract, error) {
	values, err := unpackArgs(args, BeaconABI.Constructor.Inputs)
	if err != nil {
		return nil, err
	}
	b := &UpgradeableBeacon{
		implementation: values[0].(common.Address),
		owner:          values[1].(common.Address),
		ownable: &ownable2Step{
			contractABI: BeaconABI,
			ownerSlot:   beaconOwnerSlot,
			pendingSlot: beaconPendingOwnerSlot,
		},
	}
	b.handlers = b.ownable.handlers()
	b.handlers["implementation"] = func(scope *vm.Scope, _ []interface{}) ([]interface{}, error) {
		return []interface{}{getAddress(scope, beaconImplementationSlot)}, nil
	}
	b.handlers["upgradeTo"] = func(scope *vm.Scope, args []interface{}) ([]interface{}, error) {
		if err := b.ownable.onlyOwner(scope); err != nil {
			return nil, err
		}
		return nil, b.setImplementation(scope, args[0].(common.Address))
	}
	return b, nil
}

// BeaconCode returns the creation code of a beacon.
func BeaconCode(implementation, owner common.Address) []byte {
	return newCode(KindBeacon, BeaconABI, implementation, owner)
}

func (b *UpgradeableBeacon) Construct(scope *vm.Scope) error {
	if err := b.setImplementation(scope, b.implementation); err != nil {
		return err
	}
	return b.ownable.setOwner(scope, b.owner)
}

func (b *UpgradeableBeacon) Run(scope *vm.Scope, input []byte) ([]byte, error) {
	return dispatch(scope, input, BeaconABI, b.handlers)
}

func (b *UpgradeableBeacon) setImplementation(scope *vm.Scope, impl common.Address) error {
	if scope.CodeSize(impl) == 0 {
		return raise("InvalidImplementation")
	}
	if err := setAddress(scope, beaconImplementationSlot, impl); err != nil {
		return err
	}
	return emit(scope, BeaconABI, "Upgraded", []common.Hash{addressTopic(impl)})
}

// StaticBeaconProxy looks up its implementation from an immutable beacon
// on every call.
type StaticBeaconProxy struct {
	beacon common.Address
}

func newStaticBeaconProxy(args []byte) (vm.Contract, error) {
	values, err := unpackArgs(args, StaticBeaconProxyABI.Constructor.Inputs)
	if err != nil {
		return nil, err
	}
	return &StaticBeaconProxy{beacon: values[0].(common.Address)}, nil
}

// StaticBeaconProxyCode returns the creation code of a proxy bound to
// beacon.
func StaticBeaconProxyCode(beacon common.Address) []byte {
	return newCode(KindStaticBeaconProxy, StaticBeaconProxyABI, beacon)
}

func (p *StaticBeaconProxy) Run(scope *vm.Scope, input []byte) ([]byte, error) {
	out, err := callMethod(scope, true, p.beacon, BeaconABI, "implementation")
	if err != nil {
		return finish(nil, err)
	}
	return scope.DelegateCall(out[0].(common.Address), input, scope.Gas())
}
