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
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/grindery-io/grindery-nexus-contracts/core/vm"
	"github.com/grindery-io/grindery-nexus-contracts/params"
)

var (
	// DeployerSigner is the keyless sender that creates the deterministic
	// deployer with its first transaction.
	DeployerSigner = crypto.PubkeyToAddress(mustToECDSA(params.DeployerKey).PublicKey)

	// DeployerAddress is where the deterministic deployer lives on every
	// ledger.
	DeployerAddress = crypto.CreateAddress(DeployerSigner, 0)
)

// AgentSalt is the CREATE2 salt of an account's agent: the account
// address as a left padded 32-byte word.
func AgentSalt(account common.Address) [32]byte {
	return common.BytesToHash(account.Bytes())
}

// AgentAddress derives the address of the agent the hub deploys for
// account, whether or not it exists yet. Agents are EIP-1167 clones of
// agentProxy created by the hub with CREATE2.
func AgentAddress(hub, agentProxy, account common.Address) common.Address {
	initHash := crypto.Keccak256(vm.MinimalProxyInitCode(agentProxy))
	return crypto.CreateAddress2(hub, AgentSalt(account), initHash)
}

// DeterministicAddress returns where the deterministic deployer places
// initCode for the given salt.
func DeterministicAddress(salt [32]byte, initCode []byte) common.Address {
	return crypto.CreateAddress2(DeployerAddress, salt, crypto.Keccak256(initCode))
}

func mustToECDSA(key []byte) *ecdsa.PrivateKey {
	k, err := crypto.ToECDSA(key)
	if err != nil {
		panic("nexus: invalid deployer key: " + err.Error())
	}
	return k
}
