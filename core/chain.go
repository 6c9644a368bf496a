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

// Package core implements the single-writer ledger the relay contracts run
// on. Transactions are applied one at a time in submission order, each in
// its own block.
package core

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"

	"github.com/grindery-io/grindery-nexus-contracts/core/rawdb"
	"github.com/grindery-io/grindery-nexus-contracts/core/state"
	"github.com/grindery-io/grindery-nexus-contracts/core/types"
	"github.com/grindery-io/grindery-nexus-contracts/core/vm"
	"github.com/grindery-io/grindery-nexus-contracts/params"
)

var (
	// ErrIntrinsicGas is returned if the message does not cover the
	// per-transaction charge.
	ErrIntrinsicGas = errors.New("intrinsic gas too low")

	// ErrInvalidBlockRange is returned by FilterLogs for inverted ranges.
	ErrInvalidBlockRange = errors.New("invalid block range")
)

// Chain is an in-process ledger. All mutating operations are serialized, so
// concurrent submissions observe a single total order.
type Chain struct {
	mu      sync.RWMutex
	db      ethdb.KeyValueStore
	statedb *state.StateDB
	linker  *vm.Linker
	head    uint64
}

// NewChain creates a ledger with an empty world state. Receipts are stored
// in db; contract code is resolved through linker.
func NewChain(db ethdb.KeyValueStore, linker *vm.Linker) *Chain {
	return &Chain{
		db:      db,
		statedb: state.New(),
		linker:  linker,
		head:    rawdb.ReadHeadBlockNumber(db),
	}
}

// BlockNumber returns the number of the latest block.
func (c *Chain) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.head, nil
}

// SendTransaction applies msg in a new block and returns its receipt.
// Execution failures are reported through the receipt status; an error is
// only returned when the message is rejected before execution.
func (c *Chain) SendTransaction(ctx context.Context, msg *types.Message) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.GasLimit < params.TxGas {
		return nil, ErrIntrinsicGas
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	msg = msg.Copy()
	msg.Nonce = c.statedb.GetNonce(msg.From)
	var (
		number = c.head + 1
		thash  = msg.Hash()
		evm    = vm.NewEVM(vm.BlockContext{BlockNumber: number}, c.statedb, c.linker)
		gas    = msg.GasLimit - params.TxGas

		ret     []byte
		created common.Address
		left    uint64
		err     error
	)
	c.statedb.SetTxContext(thash, 0)
	if msg.IsCreate() {
		created, left, err = evm.Create(msg.From, msg.Data, gas)
	} else {
		c.statedb.SetNonce(msg.From, msg.Nonce+1)
		ret, left, err = evm.Call(msg.From, *msg.To, msg.Data, gas)
	}
	receipt := &types.Receipt{
		Status:          types.ReceiptStatusSuccessful,
		GasUsed:         msg.GasLimit - left,
		Logs:            c.statedb.Logs(),
		ReturnData:      ret,
		ContractAddress: created,
		TxHash:          thash,
		BlockNumber:     number,
	}
	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
		receipt.Logs = nil
		log.Debug("Transaction failed", "number", number, "hash", thash, "from", msg.From, "err", err)
	}
	rawdb.WriteReceipt(c.db, receipt)
	rawdb.WriteCanonicalTxHash(c.db, number, thash)
	rawdb.WriteHeadBlockNumber(c.db, number)
	c.head = number

	log.Trace("Applied transaction", "number", number, "hash", thash, "from", msg.From,
		"create", msg.IsCreate(), "gas", receipt.GasUsed, "status", receipt.Status)
	return receipt, nil
}

// CallContract executes msg against the latest state without committing
// anything. Reverts are returned as vm.ErrExecutionReverted together with
// the revert data.
func (c *Chain) CallContract(ctx context.Context, msg *types.Message) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.To == nil {
		return nil, errors.New("contract creation cannot be simulated")
	}
	gasLimit := msg.GasLimit
	if gasLimit == 0 {
		gasLimit = params.DefaultGasLimit
	}
	if gasLimit < params.TxGas {
		return nil, ErrIntrinsicGas
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.statedb.Snapshot()
	defer c.statedb.RevertToSnapshot(snapshot)

	evm := vm.NewEVM(vm.BlockContext{BlockNumber: c.head + 1}, c.statedb, c.linker)
	ret, _, err := evm.Call(msg.From, *msg.To, msg.Data, gasLimit-params.TxGas)
	return common.CopyBytes(ret), err
}

// CodeAt returns the code of the given account.
func (c *Chain) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return common.CopyBytes(c.statedb.GetCode(addr)), nil
}

// StorageAt returns the value of key in the storage of an account.
func (c *Chain) StorageAt(ctx context.Context, addr common.Address, key common.Hash) (common.Hash, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statedb.GetState(addr, key), nil
}

// NonceAt returns the account nonce.
func (c *Chain) NonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statedb.GetNonce(addr), nil
}

// TransactionReceipt returns the receipt of an included transaction.
func (c *Chain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if receipt := rawdb.ReadReceipt(c.db, hash); receipt != nil {
		return receipt, nil
	}
	return nil, ethereum.NotFound
}

// FilterLogs returns the logs matching the query. Nil block bounds default
// to the genesis and the latest block.
func (c *Chain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error) {
	c.mu.RLock()
	head := c.head
	c.mu.RUnlock()

	if q.BlockHash != nil {
		return nil, errors.New("block hash filters are not supported")
	}
	if q.FromBlock != nil && q.ToBlock != nil && q.FromBlock.Cmp(q.ToBlock) > 0 {
		return nil, ErrInvalidBlockRange
	}
	from, to := uint64(1), head
	if q.FromBlock != nil {
		from = q.FromBlock.Uint64()
	}
	if q.ToBlock != nil && q.ToBlock.Cmp(new(big.Int).SetUint64(head)) < 0 {
		to = q.ToBlock.Uint64()
	}
	var logs []gethtypes.Log
	for number := from; number <= to; number++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		thash, ok := rawdb.ReadCanonicalTxHash(c.db, number)
		if !ok {
			continue
		}
		receipt := rawdb.ReadReceipt(c.db, thash)
		if receipt == nil {
			continue
		}
		for _, l := range receipt.Logs {
			if matchLog(l, q.Addresses, q.Topics) {
				logs = append(logs, *l)
			}
		}
	}
	return logs, nil
}

func matchLog(l *gethtypes.Log, addresses []common.Address, topics [][]common.Hash) bool {
	if len(addresses) > 0 {
		var found bool
		for _, a := range addresses {
			if a == l.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(topics) > len(l.Topics) {
		return false
	}
	for i, sub := range topics {
		if len(sub) == 0 {
			continue // wildcard
		}
		var match bool
		for _, topic := range sub {
			if l.Topics[i] == topic {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return true
}
