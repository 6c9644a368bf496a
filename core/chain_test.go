// Copyright 2025 The go-nexus Authors

package core

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/stretchr/testify/require"

	"github.com/grindery-io/grindery-nexus-contracts/core/types"
	"github.com/grindery-io/grindery-nexus-contracts/core/vm"
	"github.com/grindery-io/grindery-nexus-contracts/params"
)

var (
	alice = common.HexToAddress("0xa11ce")
	topic = common.HexToHash("0x70")
)

// logger stores its input in slot 0, logs it, and reverts on empty input.
type logger struct{}

func (logger) Run(scope *vm.Scope, input []byte) ([]byte, error) {
	if len(input) == 0 {
		return vm.Revert([]byte("empty"))
	}
	if err := scope.SetState(common.Hash{}, common.BytesToHash(input)); err != nil {
		return nil, err
	}
	if err := scope.EmitLog([]common.Hash{topic}, input); err != nil {
		return nil, err
	}
	return input, nil
}

func newTestChain(t *testing.T) (*Chain, common.Address) {
	t.Helper()
	linker := vm.NewLinker()
	linker.Register("logger", func([]byte) (vm.Contract, error) { return logger{}, nil })
	chain := NewChain(memorydb.New(), linker)

	receipt, err := chain.SendTransaction(context.Background(), &types.Message{
		From:     alice,
		GasLimit: params.DefaultGasLimit,
		Data:     vm.NewCode("logger", nil),
	})
	require.NoError(t, err)
	require.False(t, receipt.Failed())
	return chain, receipt.ContractAddress
}

func TestSendTransaction(t *testing.T) {
	chain, addr := newTestChain(t)
	ctx := context.Background()

	receipt, err := chain.SendTransaction(ctx, &types.Message{From: alice, To: &addr, GasLimit: 100_000, Data: []byte{0x2a}})
	require.NoError(t, err)
	require.False(t, receipt.Failed())
	require.Equal(t, []byte{0x2a}, receipt.ReturnData)
	require.Len(t, receipt.Logs, 1)
	require.EqualValues(t, 2, receipt.BlockNumber)

	stored, err := chain.TransactionReceipt(ctx, receipt.TxHash)
	require.NoError(t, err)
	require.Equal(t, receipt.GasUsed, stored.GasUsed)

	slot, err := chain.StorageAt(ctx, addr, common.Hash{})
	require.NoError(t, err)
	require.Equal(t, common.BytesToHash([]byte{0x2a}), slot)

	nonce, err := chain.NonceAt(ctx, alice)
	require.NoError(t, err)
	require.EqualValues(t, 2, nonce)
}

func TestFailedTransactionKeepsNonce(t *testing.T) {
	chain, addr := newTestChain(t)
	ctx := context.Background()

	receipt, err := chain.SendTransaction(ctx, &types.Message{From: alice, To: &addr, GasLimit: 100_000})
	require.NoError(t, err)
	require.True(t, receipt.Failed())
	require.Equal(t, []byte("empty"), receipt.ReturnData)
	require.Empty(t, receipt.Logs)

	nonce, _ := chain.NonceAt(ctx, alice)
	require.EqualValues(t, 2, nonce, "a failed transaction still consumes the sender nonce")

	_, err = chain.SendTransaction(ctx, &types.Message{From: alice, To: &addr, GasLimit: params.TxGas - 1})
	require.ErrorIs(t, err, ErrIntrinsicGas)
}

func TestCallContractDoesNotCommit(t *testing.T) {
	chain, addr := newTestChain(t)
	ctx := context.Background()

	ret, err := chain.CallContract(ctx, &types.Message{From: alice, To: &addr, Data: []byte{0x01}})
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, ret)

	slot, _ := chain.StorageAt(ctx, addr, common.Hash{})
	require.Equal(t, common.Hash{}, slot)

	ret, err = chain.CallContract(ctx, &types.Message{From: alice, To: &addr})
	require.True(t, errors.Is(err, vm.ErrExecutionReverted))
	require.Equal(t, []byte("empty"), ret)

	number, _ := chain.BlockNumber(ctx)
	require.EqualValues(t, 1, number)
}

func TestFilterLogs(t *testing.T) {
	chain, addr := newTestChain(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := chain.SendTransaction(ctx, &types.Message{From: alice, To: &addr, GasLimit: 100_000, Data: []byte{byte(i)}})
		require.NoError(t, err)
	}
	logs, err := chain.FilterLogs(ctx, ethereum.FilterQuery{Addresses: []common.Address{addr}})
	require.NoError(t, err)
	require.Len(t, logs, 3)

	logs, err = chain.FilterLogs(ctx, ethereum.FilterQuery{FromBlock: big.NewInt(3), Topics: [][]common.Hash{{topic}}})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.EqualValues(t, 3, logs[0].BlockNumber)

	logs, err = chain.FilterLogs(ctx, ethereum.FilterQuery{Topics: [][]common.Hash{{common.HexToHash("0xff")}}})
	require.NoError(t, err)
	require.Empty(t, logs)

	_, err = chain.FilterLogs(ctx, ethereum.FilterQuery{FromBlock: big.NewInt(3), ToBlock: big.NewInt(2)})
	require.ErrorIs(t, err, ErrInvalidBlockRange)
}

func TestConcurrentSubmissionsAreSerialized(t *testing.T) {
	chain, addr := newTestChain(t)
	ctx := context.Background()

	const n = 32
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		blocks = make(map[uint64]bool)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			receipt, err := chain.SendTransaction(ctx, &types.Message{From: alice, To: &addr, GasLimit: 100_000, Data: []byte{byte(i + 1)}})
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			blocks[receipt.BlockNumber] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	require.Len(t, blocks, n)
	nonce, _ := chain.NonceAt(ctx, alice)
	require.EqualValues(t, n+1, nonce)
}

func TestCancelledContext(t *testing.T) {
	chain, addr := newTestChain(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.SendTransaction(ctx, &types.Message{From: alice, To: &addr, GasLimit: 100_000})
	require.ErrorIs(t, err, context.Canceled)
}
