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
)

// Hub storage layout. Upgrades must keep these slots.
var (
	hubInitializedSlot  = slot(0)
	hubOwnerSlot        = slot(1)
	hubPendingOwnerSlot = slot(2)
	hubOperatorSlot     = slot(3)
)

// initializersDisabled marks an implementation contract that can never be
// initialized in its own storage.
const initializersDisabled = 0xff

// Hub is the registry logic. It runs behind an ERC1967Proxy; beacon and
// agentProxy are immutables of the implementation.
type Hub struct {
	beacon     common.Address // beacon owned by the hub proxy
	agentProxy common.Address // StaticBeaconProxy every agent clones

	ownable  *ownable2Step
	handlers map[string]handler
}

func newHub(args []byte) (vm.Contract, error) {
	values, err := unpackArgs(args, HubABI.Constructor.Inputs)
	if err != nil {
		return nil, err
	}
	h := &Hub{
		beacon:     values[0].(common.Address),
		agentProxy: values[1].(common.Address),
		ownable: &ownable2Step{
			contractABI: HubABI,
			ownerSlot:   hubOwnerSlot,
			pendingSlot: hubPendingOwnerSlot,
		},
	}
	h.handlers = map[string]handler{
		"initialize":                    h.initialize,
		"getOperator":                   h.getOperator,
		"setOperator":                   h.setOperator,
		"getAgentBeacon":                h.getAgentBeacon,
		"getAgentImplementation":        h.getAgentImplementation,
		"setAgentImplementation":        h.setAgentImplementation,
		"getAccountAgentAddress":        h.getAccountAgentAddress,
		"isAgentDeployed":               h.isAgentDeployed,
		"getTransactionHash":            h.getTransactionHash,
		"deployAgent":                   h.deployAgent,
		"deployAgentAndSendTransaction": h.deployAgentAndSendTransaction,
	}
	for name, fn := range h.ownable.handlers() {
		h.handlers[name] = fn
	}
	for name, fn := range uupsHandlers(HubABI, h.ownable.onlyOwner) {
		h.handlers[name] = fn
	}
	return h, nil
}

// HubCode returns the creation code of a hub implementation.
func HubCode(beacon, agentProxy common.Address) []byte {
	return newCode(KindHub, HubABI, beacon, agentProxy)
}

// Construct locks the implementation's own storage against initialization.
func (h *Hub) Construct(scope *vm.Scope) error {
	if err := scope.SetState(hubInitializedSlot, common.BigToHash(big.NewInt(initializersDisabled))); err != nil {
		return err
	}
	return emit(scope, HubABI, "Initialized", nil, uint8(initializersDisabled))
}

func (h *Hub) Run(scope *vm.Scope, input []byte) ([]byte, error) {
	return dispatch(scope, input, HubABI, h.handlers)
}

func (h *Hub) onlyOperator(scope *vm.Scope) error {
	if scope.Caller() != getAddress(scope, hubOperatorSlot) {
		return raise("NotOperator")
	}
	return nil
}

func (h *Hub) initialize(scope *vm.Scope, args []interface{}) ([]interface{}, error) {
	if scope.GetState(hubInitializedSlot) != (common.Hash{}) {
		return nil, raise("AlreadyInitialized")
	}
	if err := scope.SetState(hubInitializedSlot, common.BigToHash(common.Big1)); err != nil {
		return nil, err
	}
	if err := h.ownable.setOwner(scope, args[0].(common.Address)); err != nil {
		return nil, err
	}
	return nil, emit(scope, HubABI, "Initialized", nil, uint8(1))
}

func (h *Hub) getOperator(scope *vm.Scope, _ []interface{}) ([]interface{}, error) {
	return []interface{}{getAddress(scope, hubOperatorSlot)}, nil
}

func (h *Hub) setOperator(scope *vm.Scope, args []interface{}) ([]interface{}, error) {
	if err := h.ownable.onlyOwner(scope); err != nil {
		return nil, err
	}
	operator := args[0].(common.Address)
	prev := getAddress(scope, hubOperatorSlot)
	if err := setAddress(scope, hubOperatorSlot, operator); err != nil {
		return nil, err
	}
	return nil, emit(scope, HubABI, "OperatorChanged", nil, prev, operator)
}

func (h *Hub) getAgentBeacon(*vm.Scope, []interface{}) ([]interface{}, error) {
	return []interface{}{h.beacon}, nil
}

func (h *Hub) agentImplementation(scope *vm.Scope) (common.Address, error) {
	out, err := callMethod(scope, true, h.beacon, BeaconABI, "implementation")
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

func (h *Hub) getAgentImplementation(scope *vm.Scope, _ []interface{}) ([]interface{}, error) {
	impl, err := h.agentImplementation(scope)
	if err != nil {
		return nil, err
	}
	return []interface{}{impl}, nil
}

// setAgentImplementation repoints the beacon, and with it every agent.
func (h *Hub) setAgentImplementation(scope *vm.Scope, args []interface{}) ([]interface{}, error) {
	if err := h.ownable.onlyOwner(scope); err != nil {
		return nil, err
	}
	impl := args[0].(common.Address)
	prev, err := h.agentImplementation(scope)
	if err != nil {
		return nil, err
	}
	if _, err := callMethod(scope, false, h.beacon, BeaconABI, "upgradeTo", impl); err != nil {
		return nil, err
	}
	return nil, emit(scope, HubABI, "AgentImplementationChanged", nil, prev, impl)
}

func (h *Hub) agentAddress(scope *vm.Scope, account common.Address) common.Address {
	return AgentAddress(scope.Address(), h.agentProxy, account)
}

func (h *Hub) getAccountAgentAddress(scope *vm.Scope, args []interface{}) ([]interface{}, error) {
	return []interface{}{h.agentAddress(scope, args[0].(common.Address))}, nil
}

func (h *Hub) isAgentDeployed(scope *vm.Scope, args []interface{}) ([]interface{}, error) {
	return []interface{}{scope.CodeSize(h.agentAddress(scope, args[0].(common.Address))) > 0}, nil
}

func (h *Hub) getTransactionHash(scope *vm.Scope, args []interface{}) ([]interface{}, error) {
	nonce, overflow := uint256.FromBig(args[2].(*big.Int))
	if overflow {
		return nil, raise("InvalidNonce")
	}
	hash := relaysig.MessageHash(args[0].(common.Address), args[1].(common.Address), nonce, args[3].([]byte))
	return []interface{}{[32]byte(hash)}, nil
}

// createAgent clones the agent proxy at the account's derived address.
func (h *Hub) createAgent(scope *vm.Scope, account common.Address) (common.Address, error) {
	if err := h.onlyOperator(scope); err != nil {
		return common.Address{}, err
	}
	expected := h.agentAddress(scope, account)
	if scope.CodeSize(expected) > 0 {
		return common.Address{}, raise("AlreadyDeployed")
	}
	agent, err := scope.Create2(vm.MinimalProxyInitCode(h.agentProxy), AgentSalt(account))
	if err != nil {
		return common.Address{}, bubble(nil, err)
	}
	if err := emit(scope, HubABI, "AgentDeployed", []common.Hash{addressTopic(account)}, agent); err != nil {
		return common.Address{}, err
	}
	return agent, nil
}

func (h *Hub) deployAgent(scope *vm.Scope, args []interface{}) ([]interface{}, error) {
	agent, err := h.createAgent(scope, args[0].(common.Address))
	if err != nil {
		return nil, err
	}
	return []interface{}{agent}, nil
}

// deployAgentAndSendTransaction creates the agent and redeems a signature
// for nonce 0 on it. Any failure of the agent call aborts both steps.
func (h *Hub) deployAgentAndSendTransaction(scope *vm.Scope, args []interface{}) ([]interface{}, error) {
	agent, err := h.createAgent(scope, args[0].(common.Address))
	if err != nil {
		return nil, err
	}
	var (
		target    = args[1].(common.Address)
		data      = args[2].([]byte)
		signature = args[3].([]byte)
	)
	out, err := callMethod(scope, false, agent, DroneABI, "sendTransaction", target, new(big.Int), data, signature)
	if err != nil {
		return nil, err
	}
	return out, nil
}
