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

	"github.com/grindery-io/grindery-nexus-contracts/core/vm"
)

// Code kinds of the relay contracts.
const (
	KindHub                   = "GrinderyNexusHub"
	KindDrone                 = "GrinderyNexusDrone"
	KindBeacon                = "UpgradeableBeacon"
	KindStaticBeaconProxy     = "StaticBeaconProxy"
	KindERC1967Proxy          = "ERC1967Proxy"
	KindERC1967Stub           = "ERC1967Stub"
	KindDeterministicDeployer = "DeterministicDeploymentProxy"
)

// Register binds the relay contracts to their code kinds.
func Register(linker *vm.Linker) {
	linker.Register(KindHub, newHub)
	linker.Register(KindDrone, newDrone)
	linker.Register(KindBeacon, newBeacon)
	linker.Register(KindStaticBeaconProxy, newStaticBeaconProxy)
	linker.Register(KindERC1967Proxy, newERC1967Proxy)
	linker.Register(KindERC1967Stub, newERC1967Stub)
	linker.Register(KindDeterministicDeployer, newDeterministicDeployer)
}

// NewLinker returns a linker with the relay contracts registered.
func NewLinker() *vm.Linker {
	linker := vm.NewLinker()
	Register(linker)
	return linker
}

// newCode builds a code blob whose arguments are the ABI encoded
// constructor inputs.
func newCode(kind string, contractABI *abi.ABI, args ...interface{}) []byte {
	enc, err := contractABI.Pack("", args...)
	if err != nil {
		panic("nexus: invalid constructor arguments for " + kind + ": " + err.Error())
	}
	return vm.NewCode(kind, enc)
}
