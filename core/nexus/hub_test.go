// Copyright 2025 The go-nexus Authors

package nexus_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/grindery-io/grindery-nexus-contracts/core/nexus"
	"github.com/grindery-io/grindery-nexus-contracts/core/nexus/nexustest"
	"github.com/grindery-io/grindery-nexus-contracts/core/vm"
	"github.com/grindery-io/grindery-nexus-contracts/params"
)

func TestHubDeployment(t *testing.T) {
	env := nexustest.NewEnv(t)

	owner, err := env.Hub.Owner(nil)
	require.NoError(t, err)
	require.Equal(t, env.Owner.Address, owner)

	operator, err := env.Hub.GetOperator(nil)
	require.NoError(t, err)
	require.Equal(t, env.Operator.Address, operator)

	beacon, err := env.Hub.GetAgentBeacon(nil)
	require.NoError(t, err)
	require.Equal(t, env.Deployment.Beacon, beacon)

	impl, err := env.Hub.GetAgentImplementation(nil)
	require.NoError(t, err)
	require.Equal(t, env.Deployment.DroneImplementation, impl)

	beaconOwner, err := nexus.NewBeacon(beacon, env.Chain).Owner(nil)
	require.NoError(t, err)
	require.Equal(t, env.Deployment.Hub, beaconOwner)
}

func TestHubInitializeOnce(t *testing.T) {
	env := nexustest.NewEnv(t)

	_, err := env.Hub.Initialize(env.User.Opts(), env.User.Address)
	require.ErrorIs(t, err, nexus.ErrAlreadyInitialized)

	// The implementation's own storage is locked at construction.
	impl := nexus.NewHub(env.Deployment.HubImplementation, env.Chain)
	_, err = impl.Initialize(env.User.Opts(), env.User.Address)
	require.ErrorIs(t, err, nexus.ErrAlreadyInitialized)
}

func TestSetOperator(t *testing.T) {
	env := nexustest.NewEnv(t)

	receipt, err := env.Hub.SetOperator(env.Owner.Opts(), env.User.Address)
	require.NoError(t, err)
	require.Len(t, receipt.Logs, 1)

	out, err := nexus.HubABI.Unpack("OperatorChanged", receipt.Logs[0].Data)
	require.NoError(t, err)
	require.Equal(t, env.Operator.Address, out[0])
	require.Equal(t, env.User.Address, out[1])

	_, err = env.Hub.SetOperator(env.User.Opts(), env.User.Address)
	require.ErrorIs(t, err, nexus.ErrNotOwner)
}

func TestSetAgentImplementation(t *testing.T) {
	env := nexustest.NewEnv(t)

	newImpl, _, err := nexus.DeployContract(env.Owner.Opts(), env.Chain, nexus.DroneCode(env.Deployment.Hub))
	require.NoError(t, err)

	_, err = env.Hub.SetAgentImplementation(env.User.Opts(), newImpl)
	require.ErrorIs(t, err, nexus.ErrNotOwner)

	receipt, err := env.Hub.SetAgentImplementation(env.Owner.Opts(), newImpl)
	require.NoError(t, err)

	var changed bool
	for _, l := range receipt.Logs {
		if l.Topics[0] == nexus.HubABI.Events["AgentImplementationChanged"].ID {
			out, err := nexus.HubABI.Unpack("AgentImplementationChanged", l.Data)
			require.NoError(t, err)
			require.Equal(t, env.Deployment.DroneImplementation, out[0])
			require.Equal(t, newImpl, out[1])
			changed = true
		}
	}
	require.True(t, changed)

	impl, err := env.Hub.GetAgentImplementation(nil)
	require.NoError(t, err)
	require.Equal(t, newImpl, impl)

	// The beacon refuses implementations without code.
	_, err = env.Hub.SetAgentImplementation(env.Owner.Opts(), common.HexToAddress("0xdead"))
	require.ErrorIs(t, err, nexus.ErrInvalidImplementation)

	// Only the registry may drive the beacon.
	beacon := nexus.NewBeacon(env.Deployment.Beacon, env.Chain)
	_, err = beacon.UpgradeTo(env.Owner.Opts(), newImpl)
	require.ErrorIs(t, err, nexus.ErrNotOwner)
}

func TestOwnershipTransfer(t *testing.T) {
	env := nexustest.NewEnv(t)

	_, err := env.Hub.TransferOwnership(env.User.Opts(), env.User.Address)
	require.ErrorIs(t, err, nexus.ErrNotOwner)

	_, err = env.Hub.TransferOwnership(env.Owner.Opts(), env.User.Address)
	require.NoError(t, err)

	pending, err := env.Hub.PendingOwner(nil)
	require.NoError(t, err)
	require.Equal(t, env.User.Address, pending)

	for _, acc := range []*nexustest.Account{env.Operator, env.Owner, env.User2} {
		_, err = env.Hub.AcceptOwnership(acc.Opts())
		require.ErrorIs(t, err, nexus.ErrInvalidPendingOwner)
	}
	owner, err := env.Hub.Owner(nil)
	require.NoError(t, err)
	require.Equal(t, env.Owner.Address, owner)

	_, err = env.Hub.AcceptOwnership(env.User.Opts())
	require.NoError(t, err)

	owner, err = env.Hub.Owner(nil)
	require.NoError(t, err)
	require.Equal(t, env.User.Address, owner)

	pending, err = env.Hub.PendingOwner(nil)
	require.NoError(t, err)
	require.Equal(t, common.Address{}, pending)

	// The old owner lost its rights.
	_, err = env.Hub.SetOperator(env.Owner.Opts(), env.Owner.Address)
	require.ErrorIs(t, err, nexus.ErrNotOwner)
	_, err = env.Hub.SetOperator(env.User.Opts(), env.User2.Address)
	require.NoError(t, err)
}

func TestAcceptOwnershipWithoutPending(t *testing.T) {
	env := nexustest.NewEnv(t)

	_, err := nexus.NewHub(env.Deployment.Hub, env.Chain).AcceptOwnership(&nexus.TransactOpts{})
	require.ErrorIs(t, err, nexus.ErrInvalidPendingOwner)
}

func TestHubUpgrade(t *testing.T) {
	env := nexustest.NewEnv(t)
	ctx := context.Background()

	newImpl, _, err := nexus.DeployContract(env.Owner.Opts(), env.Chain, nexus.HubCode(env.Deployment.Beacon, env.Deployment.AgentProxy))
	require.NoError(t, err)

	_, err = env.Hub.UpgradeTo(env.User.Opts(), newImpl)
	require.ErrorIs(t, err, nexus.ErrNotOwner)

	receipt, err := env.Hub.UpgradeTo(env.Owner.Opts(), newImpl)
	require.NoError(t, err)
	require.Equal(t, nexus.BeaconABI.Events["Upgraded"].ID, receipt.Logs[0].Topics[0])
	require.Equal(t, common.BytesToHash(newImpl.Bytes()), receipt.Logs[0].Topics[1])

	slot, err := env.Chain.StorageAt(ctx, env.Deployment.Hub, params.ImplementationSlot)
	require.NoError(t, err)
	require.Equal(t, newImpl, common.BytesToAddress(slot.Bytes()))

	// Storage survives the upgrade.
	owner, err := env.Hub.Owner(nil)
	require.NoError(t, err)
	require.Equal(t, env.Owner.Address, owner)
	operator, err := env.Hub.GetOperator(nil)
	require.NoError(t, err)
	require.Equal(t, env.Operator.Address, operator)
}

func TestHubUpgradeRejectsIncompatible(t *testing.T) {
	env := nexustest.NewEnv(t)
	ctx := context.Background()

	before, err := env.Chain.StorageAt(ctx, env.Deployment.Hub, params.ImplementationSlot)
	require.NoError(t, err)

	// Neither a contract without proxiableUUID nor a proxy qualifies.
	for _, impl := range []common.Address{env.Target, env.Deployment.Hub, env.Deployment.Beacon} {
		_, err = env.Hub.UpgradeTo(env.Owner.Opts(), impl)
		require.ErrorIs(t, err, nexus.ErrIncompatibleImplementation)
	}
	after, err := env.Chain.StorageAt(ctx, env.Deployment.Hub, params.ImplementationSlot)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestHubUpgradeCallContext(t *testing.T) {
	env := nexustest.NewEnv(t)
	impl := nexus.NewHub(env.Deployment.HubImplementation, env.Chain)

	_, err := impl.UpgradeTo(env.Owner.Opts(), env.Deployment.HubImplementation)
	require.ErrorIs(t, err, nexus.ErrUnauthorizedCallContext)

	uuid, err := impl.ProxiableUUID(nil)
	require.NoError(t, err)
	require.Equal(t, params.ImplementationSlot, uuid)

	_, err = env.Hub.ProxiableUUID(nil)
	require.ErrorIs(t, err, nexus.ErrUnauthorizedCallContext)
}

func TestDeployAgent(t *testing.T) {
	env := nexustest.NewEnv(t)
	ctx := context.Background()

	predicted, err := env.Hub.GetAccountAgentAddress(nil, env.User.Address)
	require.NoError(t, err)
	require.Equal(t, env.AgentOf(env.User.Address), predicted)

	code, err := env.Chain.CodeAt(ctx, predicted)
	require.NoError(t, err)
	require.Empty(t, code)

	deployed, err := env.Hub.IsAgentDeployed(nil, env.User.Address)
	require.NoError(t, err)
	require.False(t, deployed)

	_, err = env.Hub.DeployAgent(env.User.Opts(), env.User.Address)
	require.ErrorIs(t, err, nexus.ErrNotOperator)

	receipt, err := env.Hub.DeployAgent(env.Operator.Opts(), env.User.Address)
	require.NoError(t, err)
	ev, err := env.Hub.ParseAgentDeployed(receipt)
	require.NoError(t, err)
	require.Equal(t, env.User.Address, ev.Account)
	require.Equal(t, predicted, ev.Agent)

	code, err = env.Chain.CodeAt(ctx, predicted)
	require.NoError(t, err)
	require.Equal(t, vm.MinimalProxyRuntimeCode(env.Deployment.AgentProxy), code)

	after, err := env.Hub.GetAccountAgentAddress(nil, env.User.Address)
	require.NoError(t, err)
	require.Equal(t, predicted, after)

	deployed, err = env.Hub.IsAgentDeployed(nil, env.User.Address)
	require.NoError(t, err)
	require.True(t, deployed)

	registry, err := env.Drone(predicted).Registry(nil)
	require.NoError(t, err)
	require.Equal(t, env.Deployment.Hub, registry)

	_, err = env.Hub.DeployAgent(env.Operator.Opts(), env.User.Address)
	require.ErrorIs(t, err, nexus.ErrAlreadyDeployed)
}

func TestDeployAgentConcurrently(t *testing.T) {
	env := nexustest.NewEnv(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		errs      []error
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Hub.DeployAgent(env.Operator.Opts(), env.User.Address)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else {
				errs = append(errs, err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Len(t, errs, 15)
	for _, err := range errs {
		require.True(t, errors.Is(err, nexus.ErrAlreadyDeployed), "unexpected error: %v", err)
	}
}

func TestGetTransactionHash(t *testing.T) {
	env := nexustest.NewEnv(t)

	agent := env.AgentOf(env.User.Address)
	data := nexustest.EchoData(1)
	hash, err := env.Hub.GetTransactionHash(nil, agent, env.Target, u256(7), data)
	require.NoError(t, err)
	require.Equal(t, messageHash(agent, env.Target, 7, data), hash)
}
