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

package relaysig

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/grindery-io/grindery-nexus-contracts/core/types"
)

// EncodedLength is the size of an encoded authorization.
const EncodedLength = 4 * 32

var (
	ErrInvalidSignatureLength = errors.New("invalid signature length")
	ErrInvalidRecoveryID      = errors.New("invalid signature recovery id")
	ErrInvalidSignatureValues = errors.New("invalid signature values")
)

// Encode returns the canonical encoding of an authorization.
func Encode(agent, target common.Address, nonce *uint256.Int, payload []byte) []byte {
	enc := make([]byte, EncodedLength)
	copy(enc[32-common.AddressLength:32], agent.Bytes())
	copy(enc[64-common.AddressLength:64], target.Bytes())
	if nonce != nil {
		n := nonce.Bytes32()
		copy(enc[64:96], n[:])
	}
	copy(enc[96:], crypto.Keccak256(payload))
	return enc
}

// MessageHash returns the hash the operator authorizes.
func MessageHash(agent, target common.Address, nonce *uint256.Int, payload []byte) common.Hash {
	return crypto.Keccak256Hash(Encode(agent, target, nonce, payload))
}

// RequestHash returns the message hash of a relay request.
func RequestHash(req *types.RelayRequest) common.Hash {
	return MessageHash(req.Agent, req.Target, req.Nonce, req.Payload)
}

// Digest returns the personal message digest signed for a message hash.
func Digest(hash common.Hash) []byte {
	return accounts.TextHash(hash.Bytes())
}

// SignText signs data as an EIP-191 personal message.
func SignText(data []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	return signDigest(accounts.TextHash(data), key)
}

// Sign produces the operator signature over a message hash.
func Sign(hash common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	return signDigest(Digest(hash), key)
}

// SignRequest fills in the signature of req.
func SignRequest(req *types.RelayRequest, key *ecdsa.PrivateKey) error {
	sig, err := Sign(RequestHash(req), key)
	if err != nil {
		return err
	}
	req.Signature = sig
	return nil
}

func signDigest(digest []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverSigner returns the address that signed the message hash.
func RecoverSigner(hash common.Hash, sig []byte) (common.Address, error) {
	return recoverDigest(Digest(hash), sig)
}

// RecoverText returns the address that signed data as a personal message.
func RecoverText(data []byte, sig []byte) (common.Address, error) {
	return recoverDigest(accounts.TextHash(data), sig)
}

func recoverDigest(digest []byte, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: %d", ErrInvalidSignatureLength, len(sig))
	}
	v := sig[crypto.RecoveryIDOffset]
	if v != 27 && v != 28 {
		return common.Address{}, ErrInvalidRecoveryID
	}
	v -= 27
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return common.Address{}, ErrInvalidSignatureValues
	}
	cpy := common.CopyBytes(sig)
	cpy[crypto.RecoveryIDOffset] = v

	pub, err := crypto.SigToPub(digest, cpy)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// SignatureHash returns keccak256(sig), the identifier agents publish with
// each outcome.
func SignatureHash(sig []byte) common.Hash {
	return crypto.Keccak256Hash(sig)
}
