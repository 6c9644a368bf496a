// Copyright 2025 The go-nexus Authors

package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/grindery-io/grindery-nexus-contracts/core/nexus"
	"github.com/grindery-io/grindery-nexus-contracts/core/nexus/nexustest"
)

// hookedSigner runs hook before the first signature it produces.
type hookedSigner struct {
	*KeySigner
	once  sync.Once
	hook  func()
	calls atomic.Int32
}

func (s *hookedSigner) SignHash(ctx context.Context, hash common.Hash) ([]byte, error) {
	s.calls.Add(1)
	if s.hook != nil {
		s.once.Do(s.hook)
	}
	return s.KeySigner.SignHash(ctx, hash)
}

func u256(v uint64) *uint256.Int { return uint256.NewInt(v) }

var testConfig = Config{
	GasLimit:       DefaultConfig.GasLimit,
	MaxRetries:     3,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     5 * time.Millisecond,
	AgentCacheSize: 16,
}

func newTestRelayer(t *testing.T, env *nexustest.Env, signer Signer) *Relayer {
	t.Helper()
	return NewRelayer(testConfig, env.Chain, memorydb.New(), env.Deployment.Hub, signer)
}

func TestRelayDeploysAndExecutes(t *testing.T) {
	env := nexustest.NewEnv(t)
	ctx := context.Background()
	r := newTestRelayer(t, env, NewKeySigner(env.Operator.Key))

	agent, err := r.AgentAddress(ctx, env.User.Address)
	require.NoError(t, err)
	require.Equal(t, env.AgentOf(env.User.Address), agent)

	rec, err := r.Relay(ctx, env.User.Address, env.Target, nexustest.EchoData(1))
	require.NoError(t, err)
	require.True(t, rec.Deployed)
	require.True(t, rec.Success)
	require.Equal(t, agent, rec.Agent)
	require.EqualValues(t, 0, rec.Nonce)
	require.Equal(t, common.BigToHash(common.Big1).Bytes(), rec.ReturnData)
	require.Equal(t, rec, r.Result(rec.SignatureHash))

	rec, err = r.Relay(ctx, env.User.Address, env.Target, nexustest.EchoData(2))
	require.NoError(t, err)
	require.False(t, rec.Deployed)
	require.True(t, rec.Success)
	require.EqualValues(t, 1, rec.Nonce)

	nonce, deployed, err := r.NextNonce(ctx, env.User.Address)
	require.NoError(t, err)
	require.True(t, deployed)
	require.EqualValues(t, 2, nonce.Uint64())

	require.Len(t, r.Results(env.User.Address), 2)
	require.Empty(t, r.Results(env.User2.Address))
}

func TestRelayRecordsFailedCall(t *testing.T) {
	env := nexustest.NewEnv(t)
	r := newTestRelayer(t, env, NewKeySigner(env.Operator.Key))

	rec, err := r.Relay(context.Background(), env.User.Address, env.Target, nexustest.Pack("testRevert", [32]byte{}))
	require.NoError(t, err)
	require.False(t, rec.Success)
	require.Equal(t, nexus.RevertReason(nexustest.TestRevertReason), rec.ReturnData)
}

func TestRelayRetriesConsumedNonce(t *testing.T) {
	env := nexustest.NewEnv(t)
	ctx := context.Background()
	drone := env.DeployAgent(t, env.User.Address)

	signer := &hookedSigner{KeySigner: NewKeySigner(env.Operator.Key)}
	signer.hook = func() {
		// Another submitter spends nonce 0 after the relayer read it.
		data := nexustest.EchoData(7)
		sig := env.Authorize(t, drone.Address(), env.Target, 0, data)
		_, err := drone.SendTransaction(env.User2.Opts(), env.Target, u256(0), data, sig)
		require.NoError(t, err)
	}
	r := newTestRelayer(t, env, signer)

	rec, err := r.Relay(ctx, env.User.Address, env.Target, nexustest.EchoData(1))
	require.NoError(t, err)
	require.True(t, rec.Success)
	require.EqualValues(t, 1, rec.Nonce)
	require.EqualValues(t, 2, signer.calls.Load())

	// The lost attempt is recorded too.
	results := r.Results(env.User.Address)
	require.Len(t, results, 2)
	var failed int
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}
	require.Equal(t, 1, failed)
}

func TestRelayRetriesDeploymentRace(t *testing.T) {
	env := nexustest.NewEnv(t)
	ctx := context.Background()

	signer := &hookedSigner{KeySigner: NewKeySigner(env.Operator.Key)}
	signer.hook = func() {
		env.DeployAgent(t, env.User.Address)
	}
	r := newTestRelayer(t, env, signer)

	rec, err := r.Relay(ctx, env.User.Address, env.Target, nexustest.EchoData(1))
	require.NoError(t, err)
	require.True(t, rec.Success)
	require.False(t, rec.Deployed)
	require.EqualValues(t, 0, rec.Nonce)
	require.EqualValues(t, 2, signer.calls.Load())
}

func TestRelayDoesNotRetryOtherErrors(t *testing.T) {
	env := nexustest.NewEnv(t)
	signer := &hookedSigner{KeySigner: NewKeySigner(env.User2.Key)}
	r := newTestRelayer(t, env, signer)

	// Not the operator: the registry rejects the deployment.
	_, err := r.Relay(context.Background(), env.User.Address, env.Target, nexustest.EchoData(1))
	require.ErrorIs(t, err, nexus.ErrNotOperator)
	require.EqualValues(t, 1, signer.calls.Load())
}

func TestRelayInvalidSignatureNotRetried(t *testing.T) {
	env := nexustest.NewEnv(t)
	env.DeployAgent(t, env.User.Address)

	signer := &hookedSigner{KeySigner: NewKeySigner(env.User2.Key)}
	r := newTestRelayer(t, env, signer)

	rec, err := r.Relay(context.Background(), env.User.Address, env.Target, nexustest.EchoData(1))
	require.ErrorIs(t, err, nexus.ErrInvalidSignature)
	require.EqualValues(t, 1, signer.calls.Load())
	require.NotNil(t, rec)
	require.NotEmpty(t, rec.Error)
}

func TestRelayCancelled(t *testing.T) {
	env := nexustest.NewEnv(t)
	r := newTestRelayer(t, env, NewKeySigner(env.Operator.Key))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Relay(ctx, env.User.Address, env.Target, nexustest.EchoData(1))
	require.ErrorIs(t, err, context.Canceled)
}

func TestDeployAgentIdempotent(t *testing.T) {
	env := nexustest.NewEnv(t)
	ctx := context.Background()
	r := newTestRelayer(t, env, NewKeySigner(env.Operator.Key))

	first, err := r.DeployAgent(ctx, env.User.Address)
	require.NoError(t, err)
	second, err := r.DeployAgent(ctx, env.User.Address)
	require.NoError(t, err)
	require.Equal(t, first, second)

	deployed, err := env.Hub.IsAgentDeployed(nil, env.User.Address)
	require.NoError(t, err)
	require.True(t, deployed)
}

func TestConfigSanitize(t *testing.T) {
	conf := (&Config{GasLimit: 1}).sanitize()
	require.Equal(t, DefaultConfig.GasLimit, conf.GasLimit)
	require.Equal(t, DefaultConfig.InitialBackoff, conf.InitialBackoff)
	require.Equal(t, DefaultConfig.AgentCacheSize, conf.AgentCacheSize)
	require.GreaterOrEqual(t, conf.MaxBackoff, conf.InitialBackoff)
}
