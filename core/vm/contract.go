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

package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/grindery-io/grindery-nexus-contracts/params"
)

// Contract is the native logic bound to a piece of code. Implementations
// must keep all mutable state in the scope's storage: the same instance
// serves every address whose code resolves to it.
type Contract interface {
	// Run executes a message call. Returning ErrExecutionReverted (possibly
	// wrapped) keeps the returned bytes as revert data and refunds unused
	// gas; any other error consumes all gas given to the frame.
	Run(scope *Scope, input []byte) ([]byte, error)
}

// Constructor is implemented by contracts with creation-time logic.
type Constructor interface {
	Construct(scope *Scope) error
}

// Revert aborts the current frame with the given revert data.
func Revert(data []byte) ([]byte, error) {
	return data, ErrExecutionReverted
}

// Scope is a single execution frame.
type Scope struct {
	evm *EVM

	caller      common.Address
	address     common.Address // storage and identity of the frame
	codeAddress common.Address // where the running code lives
	gas         uint64
	readOnly    bool
}

// Caller returns the address that invoked the frame.
func (s *Scope) Caller() common.Address { return s.caller }

// Address returns the account whose storage the frame operates on.
func (s *Scope) Address() common.Address { return s.address }

// CodeAddress returns the account the executing code was loaded from.
func (s *Scope) CodeAddress() common.Address { return s.codeAddress }

// Delegated reports whether the code runs on behalf of another account.
func (s *Scope) Delegated() bool { return s.address != s.codeAddress }

// ReadOnly reports whether the frame is inside a static call.
func (s *Scope) ReadOnly() bool { return s.readOnly }

// Gas returns the gas left in the frame.
func (s *Scope) Gas() uint64 { return s.gas }

// UseGas charges the frame. On failure the frame is out of gas.
func (s *Scope) UseGas(amount uint64) error {
	if s.gas < amount {
		s.gas = 0
		return ErrOutOfGas
	}
	s.gas -= amount
	return nil
}

// GetState reads a slot of the frame's storage.
func (s *Scope) GetState(key common.Hash) common.Hash {
	return s.evm.StateDB.GetState(s.address, key)
}

// SetState writes a slot of the frame's storage.
func (s *Scope) SetState(key, value common.Hash) error {
	if s.readOnly {
		return ErrWriteProtection
	}
	cost := params.SstoreResetGas
	if s.GetState(key) == (common.Hash{}) && value != (common.Hash{}) {
		cost = params.SstoreSetGas
	}
	if err := s.UseGas(cost); err != nil {
		return err
	}
	s.evm.StateDB.SetState(s.address, key, value)
	return nil
}

// EmitLog records an event emitted by the frame's account.
func (s *Scope) EmitLog(topics []common.Hash, data []byte) error {
	if s.readOnly {
		return ErrWriteProtection
	}
	if err := s.UseGas(params.LogGas + params.LogTopicGas*uint64(len(topics))); err != nil {
		return err
	}
	s.evm.StateDB.AddLog(&types.Log{
		Address:     s.address,
		Topics:      topics,
		Data:        common.CopyBytes(data),
		BlockNumber: s.evm.Context.BlockNumber,
	})
	return nil
}

// CodeSize returns the size of the code at addr.
func (s *Scope) CodeSize(addr common.Address) int {
	return s.evm.StateDB.GetCodeSize(addr)
}

// Call invokes to with at most gas, capped to all but one 64th of what the
// frame has left. A failing callee never unwinds the caller; the error is
// returned for the caller to act on.
func (s *Scope) Call(to common.Address, input []byte, gas uint64) ([]byte, error) {
	return s.subcall(gas, func(gas uint64) ([]byte, uint64, error) {
		return s.evm.call(s.address, to, to, input, gas, s.readOnly)
	})
}

// StaticCall invokes to without allowing any state modification.
func (s *Scope) StaticCall(to common.Address, input []byte, gas uint64) ([]byte, error) {
	return s.subcall(gas, func(gas uint64) ([]byte, uint64, error) {
		return s.evm.call(s.address, to, to, input, gas, true)
	})
}

// DelegateCall runs the code at to against the frame's own storage, keeping
// the frame's caller.
func (s *Scope) DelegateCall(to common.Address, input []byte, gas uint64) ([]byte, error) {
	return s.subcall(gas, func(gas uint64) ([]byte, uint64, error) {
		return s.evm.call(s.caller, s.address, to, input, gas, s.readOnly)
	})
}

// Create2 deploys initCode at the address derived from the frame's
// account, salt and the code hash.
func (s *Scope) Create2(initCode []byte, salt [32]byte) (common.Address, error) {
	if s.readOnly {
		return common.Address{}, ErrWriteProtection
	}
	var addr common.Address
	_, err := s.subcall(s.gas, func(gas uint64) ([]byte, uint64, error) {
		var (
			left uint64
			err  error
		)
		addr, left, err = s.evm.Create2(s.address, initCode, gas, salt)
		return nil, left, err
	})
	return addr, err
}

func (s *Scope) subcall(requested uint64, fn func(gas uint64) ([]byte, uint64, error)) ([]byte, error) {
	gas := callGas(s.gas, requested)
	s.gas -= gas
	ret, left, err := fn(gas)
	s.gas += left
	return ret, err
}

// callGas applies the all-but-one-64th rule.
func callGas(available, requested uint64) uint64 {
	limit := available - available/64
	if requested > limit {
		return limit
	}
	return requested
}
