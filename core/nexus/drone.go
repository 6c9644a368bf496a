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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/grindery-io/grindery-nexus-contracts/core/vm"
	"github.com/grindery-io/grindery-nexus-contracts/crypto/relaysig"
	"github.com/grindery-io/grindery-nexus-contracts/params"
)

// The agent's only storage variable.
var droneNonceSlot = slot(0)

// resultGas is held back from the forwarded call to publish its outcome.
const resultGas = params.LogGas + params.LogTopicGas

// Drone is the relay agent logic shared by every agent through the beacon.
// Its registry is an immutable of the implementation; the nonce lives in
// each agent's own storage.
type Drone struct {
	registry common.Address
	handlers map[string]handler
}

func newDrone(args []byte) (vm.Contract, error) {
	values, err := unpackArgs(args, DroneABI.Constructor.Inputs)
	if err != nil {
		return nil, err
	}
	d := &Drone{registry: values[0].(common.Address)}
	d.handlers = map[string]handler{
		"registry":        d.getRegistry,
		"getNextNonce":    d.getNextNonce,
		"sendTransaction": d.sendTransaction,
	}
	return d, nil
}

// DroneCode returns the creation code of an agent implementation bound to
// the given registry.
func DroneCode(registry common.Address) []byte {
	return newCode(KindDrone, DroneABI, registry)
}

func (d *Drone) Run(scope *vm.Scope, input []byte) ([]byte, error) {
	return dispatch(scope, input, DroneABI, d.handlers)
}

func (d *Drone) getRegistry(*vm.Scope, []interface{}) ([]interface{}, error) {
	return []interface{}{d.registry}, nil
}

func (d *Drone) nonce(scope *vm.Scope) *uint256.Int {
	return new(uint256.Int).SetBytes32(scope.GetState(droneNonceSlot).Bytes())
}

func (d *Drone) getNextNonce(scope *vm.Scope, _ []interface{}) ([]interface{}, error) {
	return []interface{}{d.nonce(scope).ToBig()}, nil
}

// sendTransaction redeems one operator authorization. The nonce is consumed
// before the forwarded call and survives its failure; the call outcome is
// returned and published, never raised.
func (d *Drone) sendTransaction(scope *vm.Scope, args []interface{}) ([]interface{}, error) {
	var (
		target    = args[0].(common.Address)
		data      = args[2].([]byte)
		signature = args[3].([]byte)
	)
	current := d.nonce(scope)
	nonce, overflow := uint256.FromBig(args[1].(*big.Int))
	if overflow || !nonce.Eq(current) {
		return nil, raise("InvalidNonce")
	}
	hash := relaysig.MessageHash(scope.Address(), target, nonce, data)
	signer, err := relaysig.RecoverSigner(hash, signature)
	if err != nil {
		return nil, raise("InvalidSignature")
	}
	out, err := callMethod(scope, true, d.registry, HubABI, "getOperator")
	if err != nil {
		return nil, err
	}
	if signer != out[0].(common.Address) {
		return nil, raise("InvalidSignature")
	}
	next := new(uint256.Int).AddUint64(current, 1)
	if err := scope.SetState(droneNonceSlot, next.Bytes32()); err != nil {
		return nil, err
	}
	if scope.Gas() < resultGas {
		return nil, vm.ErrOutOfGas
	}
	ret, err := scope.Call(target, data, scope.Gas()-resultGas)
	success := err == nil

	if err := emit(scope, DroneABI, "TransactionResult", nil, [32]byte(relaysig.SignatureHash(signature)), success, common.CopyBytes(ret)); err != nil {
		return nil, err
	}
	return []interface{}{success, common.CopyBytes(ret)}, nil
}
