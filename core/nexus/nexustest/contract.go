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

// Package nexustest provides a target contract and a bootstrapped ledger
// for exercising the relay contracts.
package nexustest

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/grindery-io/grindery-nexus-contracts/core/nexus"
	"github.com/grindery-io/grindery-nexus-contracts/core/vm"
)

// KindTestContract is the code kind of TestContract.
const KindTestContract = "TestContract"

// TestContractABIJSON is the interface of TestContract.
const TestContractABIJSON = `[
{"type":"function","name":"echo","stateMutability":"nonpayable","inputs":[{"name":"value","type":"bytes32"}],"outputs":[{"name":"","type":"bytes32"}]},
{"type":"function","name":"value","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
{"type":"function","name":"testRevert","stateMutability":"nonpayable","inputs":[{"name":"value","type":"bytes32"}],"outputs":[]},
{"type":"function","name":"testDrainAllGas","stateMutability":"nonpayable","inputs":[{"name":"value","type":"bytes32"}],"outputs":[]},
{"type":"function","name":"testLongReturnValue","stateMutability":"pure","inputs":[{"name":"size","type":"uint256"}],"outputs":[{"name":"","type":"bytes"}]},
{"type":"event","name":"Echo","anonymous":false,"inputs":[{"name":"sender","type":"address","indexed":false},{"name":"oldValue","type":"bytes32","indexed":false},{"name":"newValue","type":"bytes32","indexed":false}]}
]`

// TestRevertReason is the reason testRevert fails with.
const TestRevertReason = "TestContract: revert requested"

// LongReturnWord is the number of bytes testLongReturnValue returns per
// unit of size.
const LongReturnWord = 1024

var TestContractABI = func() *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(TestContractABIJSON))
	if err != nil {
		panic(err)
	}
	return &parsed
}()

// TestContract is a call target with a stored value and deliberate
// failure modes.
type TestContract struct{}

// Register binds TestContract to its code kind.
func Register(linker *vm.Linker) {
	linker.Register(KindTestContract, func([]byte) (vm.Contract, error) { return TestContract{}, nil })
}

// TestContractCode returns the creation code of TestContract.
func TestContractCode() []byte {
	return vm.NewCode(KindTestContract, nil)
}

// Pack encodes a call to TestContract.
func Pack(method string, args ...interface{}) []byte {
	data, err := TestContractABI.Pack(method, args...)
	if err != nil {
		panic(err)
	}
	return data
}

// EchoData encodes echo(v) with v as a left padded word.
func EchoData(v int64) []byte {
	return Pack("echo", [32]byte(common.BigToHash(big.NewInt(v))))
}

func (TestContract) Run(scope *vm.Scope, input []byte) ([]byte, error) {
	if len(input) < 4 {
		return vm.Revert(nil)
	}
	method, err := TestContractABI.MethodById(input[:4])
	if err != nil {
		return vm.Revert(nil)
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return vm.Revert(nil)
	}
	switch method.Name {
	case "echo":
		value := common.Hash(args[0].([32]byte))
		old := scope.GetState(common.Hash{})
		if err := scope.SetState(common.Hash{}, value); err != nil {
			return nil, err
		}
		event := TestContractABI.Events["Echo"]
		data, err := event.Inputs.Pack(scope.Caller(), [32]byte(old), [32]byte(value))
		if err != nil {
			return nil, err
		}
		if err := scope.EmitLog([]common.Hash{event.ID}, data); err != nil {
			return nil, err
		}
		return method.Outputs.Pack([32]byte(value))

	case "value":
		return method.Outputs.Pack([32]byte(scope.GetState(common.Hash{})))

	case "testRevert":
		return vm.Revert(nexus.RevertReason(TestRevertReason))

	case "testDrainAllGas":
		return nil, scope.UseGas(scope.Gas() + 1)

	case "testLongReturnValue":
		size := args[0].(*big.Int)
		if !size.IsInt64() || size.Int64() > 1024 {
			return vm.Revert(nil)
		}
		out := make([]byte, size.Int64()*LongReturnWord)
		for i := range out {
			out[i] = byte(i)
		}
		return method.Outputs.Pack(out)
	}
	return vm.Revert(nil)
}
