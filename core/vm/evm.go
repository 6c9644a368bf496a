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

// Package vm executes native contracts with EVM call semantics: gas
// accounting, nested calls with all-or-nothing state reversion, static and
// delegate calls, and CREATE/CREATE2 address derivation.
package vm

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/grindery-io/grindery-nexus-contracts/params"
)

// StateDB is the world state the EVM mutates.
type StateDB interface {
	Exist(common.Address) bool
	GetNonce(common.Address) uint64
	SetNonce(common.Address, uint64)
	GetCode(common.Address) []byte
	GetCodeSize(common.Address) int
	SetCode(common.Address, []byte)
	GetState(common.Address, common.Hash) common.Hash
	SetState(common.Address, common.Hash, common.Hash) common.Hash
	AddLog(*types.Log)
	Snapshot() int
	RevertToSnapshot(int)
}

// BlockContext provides the EVM with block level information.
type BlockContext struct {
	BlockNumber uint64
}

// EVM runs contract code resolved through a Linker against a StateDB.
// An EVM must not be used concurrently.
type EVM struct {
	Context BlockContext
	StateDB StateDB

	linker *Linker
	depth  int
}

// NewEVM returns a new EVM for a single transaction.
func NewEVM(ctx BlockContext, statedb StateDB, linker *Linker) *EVM {
	return &EVM{Context: ctx, StateDB: statedb, linker: linker}
}

// Call executes the code at addr with the given input as a top level call.
func (evm *EVM) Call(caller, addr common.Address, input []byte, gas uint64) ([]byte, uint64, error) {
	return evm.call(caller, addr, addr, input, gas, false)
}

// StaticCall executes the code at addr without allowing state changes.
func (evm *EVM) StaticCall(caller, addr common.Address, input []byte, gas uint64) ([]byte, uint64, error) {
	return evm.call(caller, addr, addr, input, gas, true)
}

func (evm *EVM) call(caller, addr, codeAddr common.Address, input []byte, gas uint64, readOnly bool) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > int(params.CallCreateDepth) {
		return nil, gas, ErrDepth
	}
	if gas < params.CallGas {
		return nil, 0, ErrOutOfGas
	}
	gas -= params.CallGas

	code := evm.StateDB.GetCode(codeAddr)
	if len(code) == 0 {
		return nil, gas, nil
	}
	contract, err := evm.linker.Resolve(code)
	if err != nil {
		return nil, 0, err
	}
	snapshot := evm.StateDB.Snapshot()
	scope := &Scope{
		evm:         evm,
		caller:      caller,
		address:     addr,
		codeAddress: codeAddr,
		gas:         gas,
		readOnly:    readOnly,
	}
	evm.depth++
	ret, err = contract.Run(scope, input)
	evm.depth--

	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if !errors.Is(err, ErrExecutionReverted) {
			scope.gas = 0
			ret = nil
		}
	}
	return ret, scope.gas, err
}

// Create deploys initCode at the address derived from the caller and its
// nonce.
func (evm *EVM) Create(caller common.Address, initCode []byte, gas uint64) (common.Address, uint64, error) {
	nonce := evm.StateDB.GetNonce(caller)
	evm.StateDB.SetNonce(caller, nonce+1)
	return evm.create(caller, initCode, gas, crypto.CreateAddress(caller, nonce))
}

// Create2 deploys initCode at the address derived from the caller, salt and
// the hash of initCode.
func (evm *EVM) Create2(caller common.Address, initCode []byte, gas uint64, salt [32]byte) (common.Address, uint64, error) {
	evm.StateDB.SetNonce(caller, evm.StateDB.GetNonce(caller)+1)
	addr := crypto.CreateAddress2(caller, salt, crypto.Keccak256(initCode))
	return evm.create(caller, initCode, gas, addr)
}

func (evm *EVM) create(caller common.Address, initCode []byte, gas uint64, addr common.Address) (common.Address, uint64, error) {
	if evm.depth > int(params.CallCreateDepth) {
		return common.Address{}, gas, ErrDepth
	}
	if gas < params.CreateGas {
		return common.Address{}, 0, ErrOutOfGas
	}
	gas -= params.CreateGas

	if evm.StateDB.GetNonce(addr) != 0 || evm.StateDB.GetCodeSize(addr) != 0 {
		return common.Address{}, 0, ErrContractAddressCollision
	}
	runtime, contract, err := evm.linker.link(initCode)
	if err != nil {
		return common.Address{}, 0, err
	}
	snapshot := evm.StateDB.Snapshot()
	evm.StateDB.SetNonce(addr, 1)

	scope := &Scope{
		evm:         evm,
		caller:      caller,
		address:     addr,
		codeAddress: addr,
		gas:         gas,
	}
	if ctor, ok := contract.(Constructor); ok {
		evm.depth++
		err = ctor.Construct(scope)
		evm.depth--
	}
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if !errors.Is(err, ErrExecutionReverted) {
			scope.gas = 0
		}
		return common.Address{}, scope.gas, err
	}
	evm.StateDB.SetCode(addr, runtime)
	return addr, scope.gas, nil
}
