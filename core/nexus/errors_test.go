// Copyright 2025 The go-nexus Authors

package nexus

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/grindery-io/grindery-nexus-contracts/core/vm"
)

func TestUnpackError(t *testing.T) {
	tests := []struct {
		data     []byte
		sentinel error
		message  string
	}{
		{crypto.Keccak256([]byte("InvalidNonce()"))[:4], ErrInvalidNonce, "execution reverted: InvalidNonce()"},
		{crypto.Keccak256([]byte("AlreadyDeployed()"))[:4], ErrAlreadyDeployed, "execution reverted: AlreadyDeployed()"},
		{RevertReason("boom"), nil, "execution reverted: boom"},
		{[]byte{1, 2, 3, 4, 5}, nil, "execution reverted: 0x0102030405"},
		{nil, nil, "execution reverted"},
	}
	for i, tt := range tests {
		err := UnpackError(tt.data)
		if err.Error() != tt.message {
			t.Errorf("test %d: message mismatch: have %q, want %q", i, err.Error(), tt.message)
		}
		if !errors.Is(err, vm.ErrExecutionReverted) {
			t.Errorf("test %d: does not unwrap to ErrExecutionReverted", i)
		}
		if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
			t.Errorf("test %d: does not unwrap to %v", i, tt.sentinel)
		}
	}
}

func TestRaise(t *testing.T) {
	for name, sentinel := range customErrors {
		err := raise(name)
		if !errors.Is(err, vm.ErrExecutionReverted) {
			t.Fatalf("%s: not a revert", name)
		}
		ret, err := finish(nil, err)
		if !errors.Is(err, vm.ErrExecutionReverted) {
			t.Fatalf("%s: finish lost the revert", name)
		}
		if !errors.Is(UnpackError(ret), sentinel) {
			t.Fatalf("%s: revert data does not decode to %v", name, sentinel)
		}
	}
}

func TestBubble(t *testing.T) {
	data := []byte{0xca, 0xfe}
	err := bubble(data, vm.ErrExecutionReverted)
	ret, _ := finish(nil, err)
	if string(ret) != string(data) {
		t.Fatalf("revert data not forwarded: %x", ret)
	}
	if err := bubble(data, vm.ErrOutOfGas); err != vm.ErrOutOfGas {
		t.Fatalf("exceptional halt altered: %v", err)
	}
}
