// Copyright 2025 The go-nexus Authors

package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"github.com/grindery-io/grindery-nexus-contracts/core/nexus/nexustest"
	"github.com/grindery-io/grindery-nexus-contracts/crypto/relaysig"
)

func newTestClient(t *testing.T, r *Relayer) *rpc.Client {
	t.Helper()
	server := rpc.NewServer()
	for _, api := range r.APIs() {
		require.NoError(t, server.RegisterName(api.Namespace, api.Service))
	}
	client := rpc.DialInProc(server)
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})
	return client
}

func TestAPIStatus(t *testing.T) {
	env := nexustest.NewEnv(t)
	client := newTestClient(t, newTestRelayer(t, env, NewKeySigner(env.Operator.Key)))

	var status Status
	require.NoError(t, client.CallContext(context.Background(), &status, "nexus_status"))
	require.Equal(t, env.Deployment.Hub, status.Hub)
	require.Equal(t, env.Owner.Address, status.Owner)
	require.Equal(t, common.Address{}, status.PendingOwner)
	require.Equal(t, env.Operator.Address, status.Operator)
	require.Equal(t, env.Deployment.Beacon, status.Beacon)
	require.Equal(t, env.Deployment.DroneImplementation, status.AgentImplementation)
	require.Equal(t, env.Operator.Address, status.Relayer)
}

func TestAPIRelay(t *testing.T) {
	env := nexustest.NewEnv(t)
	ctx := context.Background()
	client := newTestClient(t, newTestRelayer(t, env, NewKeySigner(env.Operator.Key)))

	var agent common.Address
	require.NoError(t, client.CallContext(ctx, &agent, "nexus_getAccountAgentAddress", env.User.Address))
	require.Equal(t, env.AgentOf(env.User.Address), agent)

	var nonce hexutil.Big
	require.NoError(t, client.CallContext(ctx, &nonce, "nexus_getNextNonce", env.User.Address))
	require.EqualValues(t, 0, nonce.ToInt().Int64())

	data := nexustest.EchoData(1)
	var hash common.Hash
	require.NoError(t, client.CallContext(ctx, &hash, "nexus_transactionHash", agent, env.Target, (*hexutil.Big)(common.Big0), hexutil.Bytes(data)))
	require.Equal(t, relaysig.MessageHash(agent, env.Target, u256(0), data), hash)

	var res RelayResult
	args := RelayArgs{Account: env.User.Address, Target: env.Target, Data: data}
	require.NoError(t, client.CallContext(ctx, &res, "nexus_relay", args))
	require.True(t, res.Success)
	require.True(t, res.Deployed)
	require.Equal(t, agent, res.Agent)
	require.Equal(t, hexutil.Bytes(common.BigToHash(common.Big1).Bytes()), res.ReturnData)

	var stored *RelayResult
	require.NoError(t, client.CallContext(ctx, &stored, "nexus_getRelayResult", res.SignatureHash))
	require.NotNil(t, stored)
	require.Equal(t, res.ID, stored.ID)

	var missing *RelayResult
	require.NoError(t, client.CallContext(ctx, &missing, "nexus_getRelayResult", common.Hash{}))
	require.Nil(t, missing)

	var all []*RelayResult
	require.NoError(t, client.CallContext(ctx, &all, "nexus_getRelayResults", env.User.Address))
	require.Len(t, all, 1)

	require.NoError(t, client.CallContext(ctx, &nonce, "nexus_getNextNonce", env.User.Address))
	require.EqualValues(t, 1, nonce.ToInt().Int64())
}

func TestAPIDeployAgent(t *testing.T) {
	env := nexustest.NewEnv(t)
	ctx := context.Background()
	client := newTestClient(t, newTestRelayer(t, env, NewKeySigner(env.Operator.Key)))

	for i := 0; i < 2; i++ {
		var agent common.Address
		require.NoError(t, client.CallContext(ctx, &agent, "nexus_deployAgent", env.User2.Address))
		require.Equal(t, env.AgentOf(env.User2.Address), agent)
	}
}

func TestAPIRevertError(t *testing.T) {
	env := nexustest.NewEnv(t)
	client := newTestClient(t, newTestRelayer(t, env, NewKeySigner(env.User.Key)))

	var agent common.Address
	err := client.CallContext(context.Background(), &agent, "nexus_deployAgent", env.User2.Address)
	require.Error(t, err)

	var rpcErr rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, 3, rpcErr.ErrorCode())
	require.Contains(t, err.Error(), "NotOperator")
}
