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
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/grindery-io/grindery-nexus-contracts/core/vm"
)

// handler implements one ABI method. It receives the unpacked inputs and
// returns the values to pack as outputs.
type handler func(scope *vm.Scope, args []interface{}) ([]interface{}, error)

// dispatch routes calldata to the handler of the selected method.
// Unknown selectors and malformed arguments revert without data.
func dispatch(scope *vm.Scope, input []byte, contractABI *abi.ABI, handlers map[string]handler) ([]byte, error) {
	if len(input) < 4 {
		return vm.Revert(nil)
	}
	method, err := contractABI.MethodById(input[:4])
	if err != nil {
		return vm.Revert(nil)
	}
	h, ok := handlers[method.Name]
	if !ok {
		return vm.Revert(nil)
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return vm.Revert(nil)
	}
	out, err := h(scope, args)
	if err != nil {
		return finish(nil, err)
	}
	return method.Outputs.Pack(out...)
}

// finish turns raised contract errors into reverts carrying their data.
func finish(ret []byte, err error) ([]byte, error) {
	var rerr *revertError
	if errors.As(err, &rerr) {
		return vm.Revert(rerr.data)
	}
	return ret, err
}

// slot returns the storage key of a sequential storage variable.
func slot(i uint64) common.Hash {
	return uint256.NewInt(i).Bytes32()
}

func getAddress(scope *vm.Scope, key common.Hash) common.Address {
	return common.BytesToAddress(scope.GetState(key).Bytes())
}

func setAddress(scope *vm.Scope, key common.Hash, addr common.Address) error {
	return scope.SetState(key, common.BytesToHash(addr.Bytes()))
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// emit records an event. Indexed arguments are passed as topics, the rest
// are ABI encoded into the log data in declaration order.
func emit(scope *vm.Scope, contractABI *abi.ABI, name string, topics []common.Hash, data ...interface{}) error {
	event, ok := contractABI.Events[name]
	if !ok {
		panic("nexus: unknown event " + name)
	}
	enc, err := event.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return fmt.Errorf("event %s: %w", name, err)
	}
	return scope.EmitLog(append([]common.Hash{event.ID}, topics...), enc)
}

// callMethod invokes a method on another contract and unpacks its outputs.
// Reverts of the callee are bubbled up.
func callMethod(scope *vm.Scope, static bool, to common.Address, contractABI *abi.ABI, name string, args ...interface{}) ([]interface{}, error) {
	input, err := contractABI.Pack(name, args...)
	if err != nil {
		return nil, err
	}
	var ret []byte
	if static {
		ret, err = scope.StaticCall(to, input, scope.Gas())
	} else {
		ret, err = scope.Call(to, input, scope.Gas())
	}
	if err != nil {
		return nil, bubble(ret, err)
	}
	out, err := contractABI.Unpack(name, ret)
	if err != nil {
		// A callee without code or with a different interface.
		return nil, &revertError{}
	}
	return out, nil
}

func unpackArgs(args []byte, arguments abi.Arguments) ([]interface{}, error) {
	values, err := arguments.Unpack(args)
	if err != nil {
		return nil, fmt.Errorf("constructor arguments: %w", err)
	}
	return values, nil
}
