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

// DeterministicDeployer is the keyless CREATE2 factory. Calldata is
// salt (32 bytes) followed by the init code; it returns the 20-byte address
// of the created contract.
type DeterministicDeployer struct{}

func newDeterministicDeployer([]byte) (vm.Contract, error) {
	return DeterministicDeployer{}, nil
}

// DeterministicDeployerCode returns the creation code of the factory.
func DeterministicDeployerCode() []byte {
	return vm.NewCode(KindDeterministicDeployer, nil)
}

// DeployerInput builds the factory calldata for initCode under salt.
func DeployerInput(salt [32]byte, initCode []byte) []byte {
	return append(common.CopyBytes(salt[:]), initCode...)
}

func (DeterministicDeployer) Run(scope *vm.Scope, input []byte) ([]byte, error) {
	if len(input) < common.HashLength {
		return vm.Revert(nil)
	}
	var salt [32]byte
	copy(salt[:], input[:common.HashLength])

	addr, err := scope.Create2(input[common.HashLength:], salt)
	if err != nil {
		return vm.Revert(nil)
	}
	return addr.Bytes(), nil
}
