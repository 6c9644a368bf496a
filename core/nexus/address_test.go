// Copyright 2025 The go-nexus Authors

package nexus

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"

	"github.com/grindery-io/grindery-nexus-contracts/core"
	"github.com/grindery-io/grindery-nexus-contracts/core/types"
	"github.com/grindery-io/grindery-nexus-contracts/core/vm"
)

func TestDeployerAddress(t *testing.T) {
	key, _ := crypto.ToECDSA(crypto.Keccak256([]byte("TEST")))
	signer := crypto.PubkeyToAddress(key.PublicKey)
	if signer != DeployerSigner {
		t.Fatalf("deployer signer mismatch: have %s, want %s", DeployerSigner, signer)
	}
	if want := crypto.CreateAddress(signer, 0); DeployerAddress != want {
		t.Fatalf("deployer address mismatch: have %s, want %s", DeployerAddress, want)
	}
}

func TestAgentSalt(t *testing.T) {
	account := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	salt := AgentSalt(account)
	if salt[31] != 0xff || common.BytesToAddress(salt[12:]) != account {
		t.Fatalf("salt is not the left padded account: %x", salt)
	}
	for _, b := range salt[:12] {
		if b != 0 {
			t.Fatalf("salt is not the left padded account: %x", salt)
		}
	}
}

func TestAgentAddress(t *testing.T) {
	var (
		hub        = common.HexToAddress("0x1111111111111111111111111111111111111111")
		agentProxy = common.HexToAddress("0x2222222222222222222222222222222222222222")
		account    = common.HexToAddress("0x3333333333333333333333333333333333333333")
	)
	initCode := vm.MinimalProxyInitCode(agentProxy)
	if len(initCode) != 55 {
		t.Fatalf("unexpected clone init code length %d", len(initCode))
	}
	want := crypto.CreateAddress2(hub, common.BytesToHash(account.Bytes()), crypto.Keccak256(initCode))
	if have := AgentAddress(hub, agentProxy, account); have != want {
		t.Fatalf("agent address mismatch: have %s, want %s", have, want)
	}
	// Pure: repeated derivations agree and differ per account and hub.
	if AgentAddress(hub, agentProxy, account) != AgentAddress(hub, agentProxy, account) {
		t.Fatal("derivation is not deterministic")
	}
	if AgentAddress(hub, agentProxy, hub) == want || AgentAddress(agentProxy, agentProxy, account) == want {
		t.Fatal("derivation ignores its inputs")
	}
}

func TestAgentAddressMatchesCreate2(t *testing.T) {
	chain := core.NewChain(memorydb.New(), NewLinker())
	ctx := context.Background()
	owner := common.HexToAddress("0x0a")
	operator := common.HexToAddress("0x0e")

	d, err := Bootstrap(ctx, chain, owner, operator)
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	account := common.HexToAddress("0xacc")
	want := AgentAddress(d.Hub, d.AgentProxy, account)

	receipt, err := NewHub(d.Hub, chain).DeployAgent(&TransactOpts{From: operator}, account)
	if err != nil {
		t.Fatalf("deploy agent: %v", err)
	}
	out, err := HubABI.Unpack("deployAgent", receipt.ReturnData)
	if err != nil {
		t.Fatal(err)
	}
	if have := out[0].(common.Address); have != want {
		t.Fatalf("agent created at %s, derived %s", have, want)
	}
}

func TestDeterministicDeployer(t *testing.T) {
	chain := core.NewChain(memorydb.New(), NewLinker())
	ctx := context.Background()

	if err := deployDeployer(ctx, chain); err != nil {
		t.Fatal(err)
	}
	opts := &TransactOpts{From: common.HexToAddress("0x01")}
	salt := [32]byte{1}
	want := DeterministicAddress(salt, ERC1967StubCode())
	if err := deployDeterministic(opts, chain, "stub", salt, ERC1967StubCode(), want); err != nil {
		t.Fatal(err)
	}
	code, _ := chain.CodeAt(ctx, want)
	if len(code) == 0 {
		t.Fatal("no code at deterministic address")
	}
	// Same salt and code collide.
	to := DeployerAddress
	_, err := send(opts, chain, &types.Message{From: opts.From, To: &to, GasLimit: opts.gasLimit(), Data: DeployerInput(salt, ERC1967StubCode())})
	if !errors.Is(err, ErrTransactionFailed) {
		t.Fatalf("expected failed redeploy, got %v", err)
	}
	// Short input reverts.
	if _, err := send(opts, chain, &types.Message{From: opts.From, To: &to, GasLimit: opts.gasLimit(), Data: []byte{1}}); err == nil {
		t.Fatal("expected short input to fail")
	}
}
