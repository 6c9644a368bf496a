// Copyright 2025 The go-nexus Authors
// This file is part of the go-nexus library.
//
// Relay requests: an operator-authorized call that an account's agent
// forwards to an arbitrary target.

package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// RelayRequest describes one authorized call executed through an agent.
type RelayRequest struct {
	Account common.Address // account the agent belongs to
	Agent   common.Address // deterministic agent address of Account
	Target  common.Address // callee of the forwarded call
	Nonce   *uint256.Int   // agent nonce the signature is bound to
	Payload []byte         // calldata forwarded to Target

	// Operator signature over the authorization digest of
	// (Agent, Target, Nonce, Payload).
	Signature []byte
}

// Copy returns a deep copy of the request.
func (r *RelayRequest) Copy() *RelayRequest {
	cpy := &RelayRequest{
		Account:   r.Account,
		Agent:     r.Agent,
		Target:    r.Target,
		Payload:   common.CopyBytes(r.Payload),
		Signature: common.CopyBytes(r.Signature),
	}
	if r.Nonce != nil {
		cpy.Nonce = new(uint256.Int).Set(r.Nonce)
	}
	return cpy
}

// Hash identifies the request, signature included.
func (r *RelayRequest) Hash() common.Hash {
	return rlpHash([]interface{}{
		r.Account,
		r.Agent,
		r.Target,
		uint256OrZero(r.Nonce),
		r.Payload,
		r.Signature,
	})
}

// SignatureHash returns keccak256(signature), the value agents publish in
// their TransactionResult event.
func (r *RelayRequest) SignatureHash() common.Hash {
	return crypto.Keccak256Hash(r.Signature)
}

// IsSigned reports whether a signature is attached.
func (r *RelayRequest) IsSigned() bool {
	return len(r.Signature) == crypto.SignatureLength
}

func uint256OrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
