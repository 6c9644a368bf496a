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

package nexustest

import (
	"context"
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/holiman/uint256"

	"github.com/grindery-io/grindery-nexus-contracts/core"
	"github.com/grindery-io/grindery-nexus-contracts/core/nexus"
	"github.com/grindery-io/grindery-nexus-contracts/crypto/relaysig"
)

// Account is a test key and its address.
type Account struct {
	Key     *ecdsa.PrivateKey
	Address common.Address
}

// NewAccount derives a deterministic account from name.
func NewAccount(name string) *Account {
	key, err := crypto.ToECDSA(crypto.Keccak256([]byte(name)))
	if err != nil {
		panic(err)
	}
	return &Account{Key: key, Address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Opts returns transaction options sending from the account.
func (a *Account) Opts() *nexus.TransactOpts {
	return &nexus.TransactOpts{From: a.Address, Context: context.Background()}
}

// Env is a bootstrapped relay system on a fresh in-memory ledger together
// with a deployed TestContract.
type Env struct {
	Chain      *core.Chain
	Deployment *nexus.Deployment
	Hub        *nexus.HubContract

	Owner    *Account
	Operator *Account
	User     *Account
	User2    *Account

	Target common.Address // TestContract
}

// NewEnv bootstraps a relay system owned by Owner and operated by Operator.
func NewEnv(t testing.TB) *Env {
	t.Helper()
	linker := nexus.NewLinker()
	Register(linker)

	env := &Env{
		Chain:    core.NewChain(memorydb.New(), linker),
		Owner:    NewAccount("owner"),
		Operator: NewAccount("operator"),
		User:     NewAccount("user"),
		User2:    NewAccount("user2"),
	}
	d, err := nexus.Bootstrap(context.Background(), env.Chain, env.Owner.Address, env.Operator.Address)
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	env.Deployment = d
	env.Hub = nexus.NewHub(d.Hub, env.Chain)

	target, _, err := nexus.DeployContract(env.User.Opts(), env.Chain, TestContractCode())
	if err != nil {
		t.Fatalf("deploy test contract: %v", err)
	}
	env.Target = target
	return env
}

// AgentOf returns the derived agent address of account.
func (env *Env) AgentOf(account common.Address) common.Address {
	return nexus.AgentAddress(env.Deployment.Hub, env.Deployment.AgentProxy, account)
}

// Drone binds the agent at addr.
func (env *Env) Drone(addr common.Address) *nexus.DroneContract {
	return nexus.NewDrone(addr, env.Chain)
}

// DeployAgent deploys the agent of account as the operator.
func (env *Env) DeployAgent(t testing.TB, account common.Address) *nexus.DroneContract {
	t.Helper()
	receipt, err := env.Hub.DeployAgent(env.Operator.Opts(), account)
	if err != nil {
		t.Fatalf("deploy agent: %v", err)
	}
	ev, err := env.Hub.ParseAgentDeployed(receipt)
	if err != nil {
		t.Fatalf("deploy agent: %v", err)
	}
	return env.Drone(ev.Agent)
}

// Sign authorizes a call with key.
func Sign(t testing.TB, key *ecdsa.PrivateKey, agent, target common.Address, nonce uint64, data []byte) []byte {
	t.Helper()
	sig, err := relaysig.Sign(relaysig.MessageHash(agent, target, uint256.NewInt(nonce), data), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return sig
}

// Authorize signs a call with the operator key.
func (env *Env) Authorize(t testing.TB, agent, target common.Address, nonce uint64, data []byte) []byte {
	t.Helper()
	return Sign(t, env.Operator.Key, agent, target, nonce, data)
}
