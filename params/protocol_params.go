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

// Package params holds the protocol constants shared by the ledger and the
// relay contracts.
package params

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	TxGas uint64 = 21000 // Per transaction, charged before execution.

	CallGas        uint64 = 700   // Entering any message call (call, delegatecall, staticcall).
	CreateGas      uint64 = 32000 // Contract creation, on top of the call entry.
	SstoreSetGas   uint64 = 20000 // Storage write from zero to non-zero.
	SstoreResetGas uint64 = 2900  // Any other storage write.
	LogGas         uint64 = 375   // Per emitted log.
	LogTopicGas    uint64 = 375   // Per log topic.

	CallCreateDepth uint64 = 1024 // Maximum depth of nested calls and creates.

	// DefaultGasLimit is used by tooling when a caller does not pick one.
	DefaultGasLimit uint64 = 3_000_000
)

var (
	// ImplementationSlot is the ERC-1967 implementation slot,
	// keccak256("eip1967.proxy.implementation") - 1.
	ImplementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")

	// DeployerKey is the publicly known key of the keyless CREATE2 factory
	// sender. Anyone can reproduce the factory at the same address.
	DeployerKey = crypto.Keccak256([]byte("TEST"))
)

// Deterministic deployment salts.
var (
	StubSalt        = saltOf("ERC1967Stub")
	HubSalt         = saltOf("GrinderyNexusHub")
	AgentBeaconSalt = saltOf("GrinderyNexusDroneBeacon")
	AgentProxySalt  = saltOf("GrinderyNexusDrone")
)

func saltOf(name string) [32]byte {
	return crypto.Keccak256Hash([]byte(name))
}
