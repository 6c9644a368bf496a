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
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/grindery-io/grindery-nexus-contracts/core/vm"
)

// Contract level failures. Reverts decoded by the bindings unwrap to these.
var (
	ErrInvalidNonce               = errors.New("invalid nonce")
	ErrInvalidSignature           = errors.New("invalid signature")
	ErrAlreadyDeployed            = errors.New("agent already deployed")
	ErrAlreadyInitialized         = errors.New("already initialized")
	ErrInvalidPendingOwner        = errors.New("caller is not the pending owner")
	ErrNotOwner                   = errors.New("caller is not the owner")
	ErrNotOperator                = errors.New("caller is not the operator")
	ErrIncompatibleImplementation = errors.New("implementation is not UUPS compatible")
	ErrInvalidImplementation      = errors.New("implementation has no code")
	ErrUnauthorizedCallContext    = errors.New("unauthorized call context")

	// ErrTransactionFailed is returned for failed transactions that left no
	// revert data, e.g. when running out of gas.
	ErrTransactionFailed = errors.New("transaction failed")
)

var customErrors = map[string]error{
	"InvalidNonce":               ErrInvalidNonce,
	"InvalidSignature":           ErrInvalidSignature,
	"AlreadyDeployed":            ErrAlreadyDeployed,
	"AlreadyInitialized":         ErrAlreadyInitialized,
	"InvalidPendingOwner":        ErrInvalidPendingOwner,
	"NotOwner":                   ErrNotOwner,
	"NotOperator":                ErrNotOperator,
	"IncompatibleImplementation": ErrIncompatibleImplementation,
	"InvalidImplementation":      ErrInvalidImplementation,
	"UnauthorizedCallContext":    ErrUnauthorizedCallContext,
}

// RevertError is a decoded contract revert.
type RevertError struct {
	Name   string // custom error name, empty otherwise
	Reason string // Error(string) reason, if any
	Data   []byte // raw revert data

	err error
}

func (e *RevertError) Error() string {
	switch {
	case e.Name != "":
		return fmt.Sprintf("execution reverted: %s()", e.Name)
	case e.Reason != "":
		return "execution reverted: " + e.Reason
	case len(e.Data) > 0:
		return "execution reverted: " + hexutil.Encode(e.Data)
	}
	return vm.ErrExecutionReverted.Error()
}

// Unwrap exposes both the matching sentinel and vm.ErrExecutionReverted.
func (e *RevertError) Unwrap() []error {
	if e.err != nil {
		return []error{e.err, vm.ErrExecutionReverted}
	}
	return []error{vm.ErrExecutionReverted}
}

// ErrorCode implements rpc.Error, using the code of JSON-RPC reverts.
func (e *RevertError) ErrorCode() int { return 3 }

// ErrorData implements rpc.DataError.
func (e *RevertError) ErrorData() interface{} { return hexutil.Encode(e.Data) }

// UnpackError decodes revert data into a *RevertError.
func UnpackError(data []byte) error {
	rerr := &RevertError{Data: data}
	if len(data) < 4 {
		return rerr
	}
	for name, e := range errorsABI.Errors {
		if bytes.Equal(e.ID[:4], data[:4]) {
			rerr.Name = name
			rerr.err = customErrors[name]
			return rerr
		}
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		rerr.Reason = reason
	}
	return rerr
}

// revertError aborts contract execution with the given revert data.
type revertError struct {
	data []byte
}

func (e *revertError) Error() string { return "revert " + hexutil.Encode(e.data) }

func (e *revertError) Unwrap() error { return vm.ErrExecutionReverted }

// raise returns the revert for a custom error.
func raise(name string) error {
	e, ok := errorsABI.Errors[name]
	if !ok {
		panic("nexus: unknown custom error " + name)
	}
	return &revertError{data: e.ID[:4]}
}

// bubble forwards revert data of a failed sub call. Exceptional halts are
// passed on unchanged.
func bubble(data []byte, err error) error {
	if errors.Is(err, vm.ErrExecutionReverted) {
		return &revertError{data: data}
	}
	return err
}

// RevertReason encodes an Error(string) revert payload.
func RevertReason(reason string) []byte {
	data, err := reasonArgs.Pack(reason)
	if err != nil {
		panic(err)
	}
	return append(common.CopyBytes(revertSelector), data...)
}

var (
	revertSelector = []byte{0x08, 0xc3, 0x79, 0xa0}
	stringType, _  = abi.NewType("string", "", nil)
	reasonArgs     = abi.Arguments{{Type: stringType}}
)
