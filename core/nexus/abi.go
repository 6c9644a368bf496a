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
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const errorsJSON = `
{"type":"error","name":"InvalidNonce","inputs":[]},
{"type":"error","name":"InvalidSignature","inputs":[]},
{"type":"error","name":"AlreadyDeployed","inputs":[]},
{"type":"error","name":"AlreadyInitialized","inputs":[]},
{"type":"error","name":"InvalidPendingOwner","inputs":[]},
{"type":"error","name":"NotOwner","inputs":[]},
{"type":"error","name":"NotOperator","inputs":[]},
{"type":"error","name":"IncompatibleImplementation","inputs":[]},
{"type":"error","name":"InvalidImplementation","inputs":[]},
{"type":"error","name":"UnauthorizedCallContext","inputs":[]}`

const ownableJSON = `
{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"pendingOwner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]},
{"type":"function","name":"acceptOwnership","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"event","name":"OwnershipTransferStarted","anonymous":false,"inputs":[{"name":"previousOwner","type":"address","indexed":true},{"name":"newOwner","type":"address","indexed":true}]},
{"type":"event","name":"OwnershipTransferred","anonymous":false,"inputs":[{"name":"previousOwner","type":"address","indexed":true},{"name":"newOwner","type":"address","indexed":true}]}`

const uupsJSON = `
{"type":"function","name":"proxiableUUID","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
{"type":"function","name":"upgradeTo","stateMutability":"nonpayable","inputs":[{"name":"newImplementation","type":"address"}],"outputs":[]},
{"type":"function","name":"upgradeToAndCall","stateMutability":"payable","inputs":[{"name":"newImplementation","type":"address"},{"name":"data","type":"bytes"}],"outputs":[]}`

const upgradedJSON = `
{"type":"event","name":"Upgraded","anonymous":false,"inputs":[{"name":"implementation","type":"address","indexed":true}]}`

// HubABIJSON is the interface of the registry.
const HubABIJSON = `[
{"type":"constructor","inputs":[{"name":"beacon","type":"address"},{"name":"agentProxy","type":"address"}]},
{"type":"function","name":"initialize","stateMutability":"nonpayable","inputs":[{"name":"_owner","type":"address"}],"outputs":[]},
{"type":"function","name":"getOperator","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"setOperator","stateMutability":"nonpayable","inputs":[{"name":"operator","type":"address"}],"outputs":[]},
{"type":"function","name":"getAgentBeacon","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"getAgentImplementation","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"setAgentImplementation","stateMutability":"nonpayable","inputs":[{"name":"implementation","type":"address"}],"outputs":[]},
{"type":"function","name":"getAccountAgentAddress","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"isAgentDeployed","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"getTransactionHash","stateMutability":"pure","inputs":[{"name":"agent","type":"address"},{"name":"target","type":"address"},{"name":"nonce","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[{"name":"","type":"bytes32"}]},
{"type":"function","name":"deployAgent","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"deployAgentAndSendTransaction","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"},{"name":"target","type":"address"},{"name":"data","type":"bytes"},{"name":"signature","type":"bytes"}],"outputs":[{"name":"success","type":"bool"},{"name":"returnData","type":"bytes"}]},
{"type":"event","name":"OperatorChanged","anonymous":false,"inputs":[{"name":"previousOperator","type":"address","indexed":false},{"name":"newOperator","type":"address","indexed":false}]},
{"type":"event","name":"AgentImplementationChanged","anonymous":false,"inputs":[{"name":"previousImplementation","type":"address","indexed":false},{"name":"newImplementation","type":"address","indexed":false}]},
{"type":"event","name":"AgentDeployed","anonymous":false,"inputs":[{"name":"account","type":"address","indexed":true},{"name":"agent","type":"address","indexed":false}]},
{"type":"event","name":"Initialized","anonymous":false,"inputs":[{"name":"version","type":"uint8","indexed":false}]},
` + ownableJSON + `,` + uupsJSON + `,` + upgradedJSON + `,` + errorsJSON + `]`

// DroneABIJSON is the interface of the relay agent logic.
const DroneABIJSON = `[
{"type":"constructor","inputs":[{"name":"registry","type":"address"}]},
{"type":"function","name":"registry","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"getNextNonce","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"sendTransaction","stateMutability":"nonpayable","inputs":[{"name":"target","type":"address"},{"name":"nonce","type":"uint256"},{"name":"data","type":"bytes"},{"name":"signature","type":"bytes"}],"outputs":[{"name":"success","type":"bool"},{"name":"returnData","type":"bytes"}]},
{"type":"event","name":"TransactionResult","anonymous":false,"inputs":[{"name":"signatureHash","type":"bytes32","indexed":false},{"name":"success","type":"bool","indexed":false},{"name":"returnData","type":"bytes","indexed":false}]},
` + errorsJSON + `]`

// BeaconABIJSON is the interface of the agent beacon.
const BeaconABIJSON = `[
{"type":"constructor","inputs":[{"name":"implementation","type":"address"},{"name":"owner","type":"address"}]},
{"type":"function","name":"implementation","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"upgradeTo","stateMutability":"nonpayable","inputs":[{"name":"newImplementation","type":"address"}],"outputs":[]},
` + ownableJSON + `,` + upgradedJSON + `,` + errorsJSON + `]`

// StaticBeaconProxyABIJSON only describes the constructor; every call is
// forwarded to the beacon's implementation.
const StaticBeaconProxyABIJSON = `[
{"type":"constructor","inputs":[{"name":"beacon","type":"address"}]}
]`

// ERC1967ProxyABIJSON describes the registry proxy.
const ERC1967ProxyABIJSON = `[
{"type":"constructor","inputs":[{"name":"implementation","type":"address"},{"name":"data","type":"bytes"}]},
` + upgradedJSON + `,` + errorsJSON + `]`

// ERC1967StubABIJSON is the placeholder implementation a fresh proxy
// points at.
const ERC1967StubABIJSON = `[` + uupsJSON + `,` + upgradedJSON + `,` + errorsJSON + `]`

var (
	HubABI               = mustParseABI(HubABIJSON)
	DroneABI             = mustParseABI(DroneABIJSON)
	BeaconABI            = mustParseABI(BeaconABIJSON)
	StaticBeaconProxyABI = mustParseABI(StaticBeaconProxyABIJSON)
	ERC1967ProxyABI      = mustParseABI(ERC1967ProxyABIJSON)
	ERC1967StubABI       = mustParseABI(ERC1967StubABIJSON)

	errorsABI = mustParseABI(`[` + errorsJSON + `]`)
)

func mustParseABI(def string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("nexus: invalid ABI: " + err.Error())
	}
	return &parsed
}
