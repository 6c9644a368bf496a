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
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/grindery-io/grindery-nexus-contracts/core/types"
	"github.com/grindery-io/grindery-nexus-contracts/core/vm"
	"github.com/grindery-io/grindery-nexus-contracts/params"
)

// ErrNoResult is returned when a receipt carries no TransactionResult.
var ErrNoResult = errors.New("no transaction result in receipt")

// Backend is the ledger surface the bindings need. *core.Chain implements
// it.
type Backend interface {
	SendTransaction(ctx context.Context, msg *types.Message) (*types.Receipt, error)
	CallContract(ctx context.Context, msg *types.Message) ([]byte, error)
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)
	StorageAt(ctx context.Context, addr common.Address, key common.Hash) (common.Hash, error)
}

// CallOpts is the collection of options to fine tune a contract call.
type CallOpts struct {
	From    common.Address
	Context context.Context
}

// TransactOpts is the collection of data required to submit a transaction.
type TransactOpts struct {
	From     common.Address
	GasLimit uint64 // zero selects params.DefaultGasLimit
	Context  context.Context
}

func callContext(opts *CallOpts) (context.Context, common.Address) {
	if opts == nil {
		return context.Background(), common.Address{}
	}
	if opts.Context == nil {
		return context.Background(), opts.From
	}
	return opts.Context, opts.From
}

func (opts *TransactOpts) ctx() context.Context {
	if opts.Context == nil {
		return context.Background()
	}
	return opts.Context
}

func (opts *TransactOpts) gasLimit() uint64 {
	if opts.GasLimit == 0 {
		return params.DefaultGasLimit
	}
	return opts.GasLimit
}

// BoundContract is a contract at a known address.
type BoundContract struct {
	address common.Address
	abi     *abi.ABI
	backend Backend
}

// NewBoundContract binds contractABI at address.
func NewBoundContract(address common.Address, contractABI *abi.ABI, backend Backend) *BoundContract {
	return &BoundContract{address: address, abi: contractABI, backend: backend}
}

// Address returns the address of the bound contract.
func (c *BoundContract) Address() common.Address { return c.address }

// Call invokes a read only method and unpacks its outputs.
func (c *BoundContract) Call(opts *CallOpts, method string, args ...interface{}) ([]interface{}, error) {
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	ctx, from := callContext(opts)
	to := c.address
	ret, err := c.backend.CallContract(ctx, &types.Message{From: from, To: &to, Data: input})
	if err != nil {
		if errors.Is(err, vm.ErrExecutionReverted) {
			return nil, UnpackError(ret)
		}
		return nil, err
	}
	if len(ret) == 0 {
		code, err := c.backend.CodeAt(ctx, c.address)
		if err == nil && len(code) == 0 {
			return nil, fmt.Errorf("no contract code at %s", c.address)
		}
	}
	return c.abi.Unpack(method, ret)
}

// Transact submits a method call and waits for its receipt. A failed
// transaction is returned together with its decoded revert.
func (c *BoundContract) Transact(opts *TransactOpts, method string, args ...interface{}) (*types.Receipt, error) {
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	return c.RawTransact(opts, input)
}

// RawTransact submits arbitrary calldata to the contract.
func (c *BoundContract) RawTransact(opts *TransactOpts, input []byte) (*types.Receipt, error) {
	to := c.address
	return send(opts, c.backend, &types.Message{From: opts.From, To: &to, GasLimit: opts.gasLimit(), Data: input})
}

// UnpackLog decodes a log emitted by the contract into out.
func (c *BoundContract) UnpackLog(out interface{}, event string, log *gethtypes.Log) error {
	ev, ok := c.abi.Events[event]
	if !ok {
		return fmt.Errorf("unknown event %s", event)
	}
	if len(log.Topics) == 0 || log.Topics[0] != ev.ID {
		return fmt.Errorf("event signature mismatch")
	}
	if len(log.Data) > 0 {
		if err := c.abi.UnpackIntoInterface(out, event, log.Data); err != nil {
			return err
		}
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return abi.ParseTopics(out, indexed, log.Topics[1:])
}

// DeployContract creates a contract from code with a plain CREATE.
func DeployContract(opts *TransactOpts, backend Backend, code []byte) (common.Address, *types.Receipt, error) {
	receipt, err := send(opts, backend, &types.Message{From: opts.From, GasLimit: opts.gasLimit(), Data: code})
	if err != nil {
		return common.Address{}, receipt, err
	}
	return receipt.ContractAddress, receipt, nil
}

func send(opts *TransactOpts, backend Backend, msg *types.Message) (*types.Receipt, error) {
	receipt, err := backend.SendTransaction(opts.ctx(), msg)
	if err != nil {
		return nil, err
	}
	if receipt.Failed() {
		if len(receipt.ReturnData) == 0 {
			return receipt, ErrTransactionFailed
		}
		return receipt, UnpackError(receipt.ReturnData)
	}
	return receipt, nil
}

// HubContract is a binding of the registry proxy.
type HubContract struct {
	*BoundContract
}

// NewHub binds the registry at address.
func NewHub(address common.Address, backend Backend) *HubContract {
	return &HubContract{NewBoundContract(address, HubABI, backend)}
}

func (h *HubContract) callAddress(opts *CallOpts, method string, args ...interface{}) (common.Address, error) {
	out, err := h.Call(opts, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (h *HubContract) Owner(opts *CallOpts) (common.Address, error) {
	return h.callAddress(opts, "owner")
}

func (h *HubContract) PendingOwner(opts *CallOpts) (common.Address, error) {
	return h.callAddress(opts, "pendingOwner")
}

func (h *HubContract) GetOperator(opts *CallOpts) (common.Address, error) {
	return h.callAddress(opts, "getOperator")
}

func (h *HubContract) GetAgentBeacon(opts *CallOpts) (common.Address, error) {
	return h.callAddress(opts, "getAgentBeacon")
}

func (h *HubContract) GetAgentImplementation(opts *CallOpts) (common.Address, error) {
	return h.callAddress(opts, "getAgentImplementation")
}

func (h *HubContract) GetAccountAgentAddress(opts *CallOpts, account common.Address) (common.Address, error) {
	return h.callAddress(opts, "getAccountAgentAddress", account)
}

func (h *HubContract) IsAgentDeployed(opts *CallOpts, account common.Address) (bool, error) {
	out, err := h.Call(opts, "isAgentDeployed", account)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (h *HubContract) GetTransactionHash(opts *CallOpts, agent, target common.Address, nonce *uint256.Int, data []byte) (common.Hash, error) {
	out, err := h.Call(opts, "getTransactionHash", agent, target, nonce.ToBig(), data)
	if err != nil {
		return common.Hash{}, err
	}
	return *abi.ConvertType(out[0], new([32]byte)).(*[32]byte), nil
}

func (h *HubContract) ProxiableUUID(opts *CallOpts) (common.Hash, error) {
	out, err := h.Call(opts, "proxiableUUID")
	if err != nil {
		return common.Hash{}, err
	}
	return *abi.ConvertType(out[0], new([32]byte)).(*[32]byte), nil
}

func (h *HubContract) Initialize(opts *TransactOpts, owner common.Address) (*types.Receipt, error) {
	return h.Transact(opts, "initialize", owner)
}

func (h *HubContract) TransferOwnership(opts *TransactOpts, newOwner common.Address) (*types.Receipt, error) {
	return h.Transact(opts, "transferOwnership", newOwner)
}

func (h *HubContract) AcceptOwnership(opts *TransactOpts) (*types.Receipt, error) {
	return h.Transact(opts, "acceptOwnership")
}

func (h *HubContract) SetOperator(opts *TransactOpts, operator common.Address) (*types.Receipt, error) {
	return h.Transact(opts, "setOperator", operator)
}

func (h *HubContract) SetAgentImplementation(opts *TransactOpts, impl common.Address) (*types.Receipt, error) {
	return h.Transact(opts, "setAgentImplementation", impl)
}

func (h *HubContract) DeployAgent(opts *TransactOpts, account common.Address) (*types.Receipt, error) {
	return h.Transact(opts, "deployAgent", account)
}

func (h *HubContract) DeployAgentAndSendTransaction(opts *TransactOpts, account, target common.Address, data, signature []byte) (*types.Receipt, error) {
	return h.Transact(opts, "deployAgentAndSendTransaction", account, target, data, signature)
}

func (h *HubContract) UpgradeTo(opts *TransactOpts, impl common.Address) (*types.Receipt, error) {
	return h.Transact(opts, "upgradeTo", impl)
}

func (h *HubContract) UpgradeToAndCall(opts *TransactOpts, impl common.Address, data []byte) (*types.Receipt, error) {
	return h.Transact(opts, "upgradeToAndCall", impl, data)
}

// AgentDeployed is the event emitted when the hub creates an agent.
type AgentDeployed struct {
	Account common.Address
	Agent   common.Address
}

// ParseAgentDeployed returns the AgentDeployed event of a receipt.
func (h *HubContract) ParseAgentDeployed(receipt *types.Receipt) (*AgentDeployed, error) {
	for _, l := range receipt.Logs {
		if l.Address != h.address || len(l.Topics) == 0 || l.Topics[0] != HubABI.Events["AgentDeployed"].ID {
			continue
		}
		ev := new(AgentDeployed)
		if err := h.UnpackLog(ev, "AgentDeployed", l); err != nil {
			return nil, err
		}
		return ev, nil
	}
	return nil, fmt.Errorf("no AgentDeployed event in receipt")
}

// DroneContract is a binding of a deployed agent.
type DroneContract struct {
	*BoundContract
}

// NewDrone binds the agent at address.
func NewDrone(address common.Address, backend Backend) *DroneContract {
	return &DroneContract{NewBoundContract(address, DroneABI, backend)}
}

func (d *DroneContract) GetNextNonce(opts *CallOpts) (*uint256.Int, error) {
	out, err := d.Call(opts, "getNextNonce")
	if err != nil {
		return nil, err
	}
	nonce, overflow := uint256.FromBig(*abi.ConvertType(out[0], new(*big.Int)).(**big.Int))
	if overflow {
		return nil, fmt.Errorf("nonce overflow")
	}
	return nonce, nil
}

func (d *DroneContract) Registry(opts *CallOpts) (common.Address, error) {
	out, err := d.Call(opts, "registry")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (d *DroneContract) SendTransaction(opts *TransactOpts, target common.Address, nonce *uint256.Int, data, signature []byte) (*types.Receipt, error) {
	return d.Transact(opts, "sendTransaction", target, nonce.ToBig(), data, signature)
}

// TransactionResult is the outcome an agent publishes for each redeemed
// authorization.
type TransactionResult struct {
	Agent         common.Address
	SignatureHash [32]byte
	Success       bool
	ReturnData    []byte
}

// ParseTransactionResult extracts the TransactionResult event from a
// receipt, whichever agent emitted it.
func ParseTransactionResult(receipt *types.Receipt) (*TransactionResult, error) {
	ev := DroneABI.Events["TransactionResult"]
	for _, l := range receipt.Logs {
		if len(l.Topics) == 0 || l.Topics[0] != ev.ID {
			continue
		}
		res := &TransactionResult{Agent: l.Address}
		if err := DroneABI.UnpackIntoInterface(res, "TransactionResult", l.Data); err != nil {
			return nil, err
		}
		return res, nil
	}
	return nil, ErrNoResult
}

// BeaconContract is a binding of the agent beacon.
type BeaconContract struct {
	*BoundContract
}

// NewBeacon binds the beacon at address.
func NewBeacon(address common.Address, backend Backend) *BeaconContract {
	return &BeaconContract{NewBoundContract(address, BeaconABI, backend)}
}

func (b *BeaconContract) callAddress(opts *CallOpts, method string) (common.Address, error) {
	out, err := b.Call(opts, method)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (b *BeaconContract) Implementation(opts *CallOpts) (common.Address, error) {
	return b.callAddress(opts, "implementation")
}

func (b *BeaconContract) Owner(opts *CallOpts) (common.Address, error) {
	return b.callAddress(opts, "owner")
}

func (b *BeaconContract) PendingOwner(opts *CallOpts) (common.Address, error) {
	return b.callAddress(opts, "pendingOwner")
}

func (b *BeaconContract) UpgradeTo(opts *TransactOpts, impl common.Address) (*types.Receipt, error) {
	return b.Transact(opts, "upgradeTo", impl)
}

func (b *BeaconContract) TransferOwnership(opts *TransactOpts, newOwner common.Address) (*types.Receipt, error) {
	return b.Transact(opts, "transferOwnership", newOwner)
}

func (b *BeaconContract) AcceptOwnership(opts *TransactOpts) (*types.Receipt, error) {
	return b.Transact(opts, "acceptOwnership")
}
