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
	"bytes"
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/grindery-io/grindery-nexus-contracts/core/types"
	"github.com/grindery-io/grindery-nexus-contracts/params"
)

// Deployment lists the addresses of a bootstrapped relay system.
type Deployment struct {
	Deployer            common.Address `json:"deployer"`
	Stub                common.Address `json:"stub"`
	Hub                 common.Address `json:"hub"` // ERC1967 proxy of the registry
	Beacon              common.Address `json:"beacon"`
	AgentProxy          common.Address `json:"agentProxy"`
	HubImplementation   common.Address `json:"hubImplementation"`
	DroneImplementation common.Address `json:"droneImplementation"`
}

// PredictDeployment computes the deterministic part of a deployment. The
// proxies, the beacon and the stub have the same address on every ledger.
func PredictDeployment() *Deployment {
	d := &Deployment{
		Deployer: DeployerAddress,
		Stub:     DeterministicAddress(params.StubSalt, ERC1967StubCode()),
	}
	d.Hub = DeterministicAddress(params.HubSalt, ERC1967ProxyCode(d.Stub, nil))
	d.Beacon = DeterministicAddress(params.AgentBeaconSalt, BeaconCode(d.Stub, d.Hub))
	d.AgentProxy = DeterministicAddress(params.AgentProxySalt, StaticBeaconProxyCode(d.Beacon))
	return d
}

// Bootstrap deploys the relay system, initialized for owner and operated by
// operator. Steps already in place are skipped, so running it again against
// the same ledger changes nothing.
func Bootstrap(ctx context.Context, backend Backend, owner, operator common.Address) (*Deployment, error) {
	d := PredictDeployment()
	opts := &TransactOpts{From: owner, Context: ctx}

	if err := deployDeployer(ctx, backend); err != nil {
		return nil, err
	}
	steps := []struct {
		name string
		salt [32]byte
		code []byte
		addr common.Address
	}{
		{"ERC1967Stub", params.StubSalt, ERC1967StubCode(), d.Stub},
		{"GrinderyNexusHub proxy", params.HubSalt, ERC1967ProxyCode(d.Stub, nil), d.Hub},
		{"UpgradeableBeacon", params.AgentBeaconSalt, BeaconCode(d.Stub, d.Hub), d.Beacon},
		{"StaticBeaconProxy", params.AgentProxySalt, StaticBeaconProxyCode(d.Beacon), d.AgentProxy},
	}
	for _, step := range steps {
		if err := deployDeterministic(opts, backend, step.name, step.salt, step.code, step.addr); err != nil {
			return nil, err
		}
	}
	hubImpl, err := installHub(opts, backend, d)
	if err != nil {
		return nil, err
	}
	d.HubImplementation = hubImpl

	hub := NewHub(d.Hub, backend)
	current, err := hub.GetOperator(&CallOpts{Context: ctx})
	if err != nil {
		return nil, err
	}
	if current != operator {
		if _, err := hub.SetOperator(opts, operator); err != nil {
			return nil, fmt.Errorf("set operator: %w", err)
		}
		log.Info("Registry operator set", "operator", operator)
	}
	droneImpl, err := UpgradeAgents(ctx, backend, d, owner)
	if err != nil {
		return nil, err
	}
	d.DroneImplementation = droneImpl
	return d, nil
}

// deployDeployer creates the deterministic deployer with the first
// transaction of its keyless signer.
func deployDeployer(ctx context.Context, backend Backend) error {
	code, err := backend.CodeAt(ctx, DeployerAddress)
	if err != nil {
		return err
	}
	if len(code) > 0 {
		log.Debug("Deterministic deployer present", "address", DeployerAddress)
		return nil
	}
	addr, _, err := DeployContract(&TransactOpts{From: DeployerSigner, Context: ctx}, backend, DeterministicDeployerCode())
	if err != nil {
		return fmt.Errorf("deterministic deployer: %w", err)
	}
	if addr != DeployerAddress {
		return fmt.Errorf("deterministic deployer created at %s, want %s", addr, DeployerAddress)
	}
	log.Info("Deployed deterministic deployer", "address", addr)
	return nil
}

func deployDeterministic(opts *TransactOpts, backend Backend, name string, salt [32]byte, code []byte, want common.Address) error {
	existing, err := backend.CodeAt(opts.ctx(), want)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Debug("Contract present", "name", name, "address", want)
		return nil
	}
	to := DeployerAddress
	receipt, err := send(opts, backend, &types.Message{From: opts.From, To: &to, GasLimit: opts.gasLimit(), Data: DeployerInput(salt, code)})
	if err != nil {
		return fmt.Errorf("deploy %s: %w", name, err)
	}
	if addr := common.BytesToAddress(receipt.ReturnData); addr != want {
		return fmt.Errorf("deploy %s: created at %s, want %s", name, addr, want)
	}
	log.Info("Deployed contract", "name", name, "address", want)
	return nil
}

// installHub points the registry proxy at the current hub code. A proxy
// still on the stub is upgraded and initialized in one call.
func installHub(opts *TransactOpts, backend Backend, d *Deployment) (common.Address, error) {
	ctx := opts.ctx()
	slot, err := backend.StorageAt(ctx, d.Hub, params.ImplementationSlot)
	if err != nil {
		return common.Address{}, err
	}
	current := common.BytesToAddress(slot.Bytes())
	if current != d.Stub {
		return UpgradeHub(ctx, backend, d, opts.From)
	}
	impl, _, err := DeployContract(opts, backend, HubCode(d.Beacon, d.AgentProxy))
	if err != nil {
		return common.Address{}, fmt.Errorf("deploy hub implementation: %w", err)
	}
	initData, err := HubABI.Pack("initialize", opts.From)
	if err != nil {
		return common.Address{}, err
	}
	if _, err := NewHub(d.Hub, backend).UpgradeToAndCall(opts, impl, initData); err != nil {
		return common.Address{}, fmt.Errorf("initialize registry: %w", err)
	}
	log.Info("Registry initialized", "implementation", impl, "owner", opts.From)
	return impl, nil
}

// UpgradeHub deploys the current hub code and upgrades the registry proxy
// to it, unless the proxy already runs identical code.
func UpgradeHub(ctx context.Context, backend Backend, d *Deployment, owner common.Address) (common.Address, error) {
	slot, err := backend.StorageAt(ctx, d.Hub, params.ImplementationSlot)
	if err != nil {
		return common.Address{}, err
	}
	current := common.BytesToAddress(slot.Bytes())
	code := HubCode(d.Beacon, d.AgentProxy)
	if same, err := hasCode(ctx, backend, current, code); err != nil || same {
		return current, err
	}
	opts := &TransactOpts{From: owner, Context: ctx}
	impl, _, err := DeployContract(opts, backend, code)
	if err != nil {
		return common.Address{}, fmt.Errorf("deploy hub implementation: %w", err)
	}
	if _, err := NewHub(d.Hub, backend).UpgradeTo(opts, impl); err != nil {
		return common.Address{}, fmt.Errorf("upgrade registry: %w", err)
	}
	log.Info("Registry upgraded", "from", current, "to", impl)
	return impl, nil
}

// UpgradeAgents deploys the current drone code and repoints the beacon at
// it, unless the beacon already serves identical code.
func UpgradeAgents(ctx context.Context, backend Backend, d *Deployment, owner common.Address) (common.Address, error) {
	hub := NewHub(d.Hub, backend)
	current, err := hub.GetAgentImplementation(&CallOpts{Context: ctx})
	if err != nil {
		return common.Address{}, err
	}
	code := DroneCode(d.Hub)
	if same, err := hasCode(ctx, backend, current, code); err != nil || same {
		return current, err
	}
	opts := &TransactOpts{From: owner, Context: ctx}
	impl, _, err := DeployContract(opts, backend, code)
	if err != nil {
		return common.Address{}, fmt.Errorf("deploy drone implementation: %w", err)
	}
	if _, err := hub.SetAgentImplementation(opts, impl); err != nil {
		return common.Address{}, fmt.Errorf("set agent implementation: %w", err)
	}
	log.Info("Agent implementation changed", "from", current, "to", impl)
	return impl, nil
}

func hasCode(ctx context.Context, backend Backend, addr common.Address, code []byte) (bool, error) {
	existing, err := backend.CodeAt(ctx, addr)
	if err != nil {
		return false, err
	}
	return bytes.Equal(existing, code), nil
}
