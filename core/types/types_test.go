// Copyright 2026 The go-nexus Authors

package types

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

func TestRelayRequestZeroValueDoesNotPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("zero-value relay request should not panic: %v", r)
		}
	}()
	req := &RelayRequest{}
	_ = req.Hash()
	_ = req.SignatureHash()
	_ = req.Copy()
}

func TestRelayRequestHashCoversSignature(t *testing.T) {
	req := &RelayRequest{
		Account:   common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Agent:     common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Target:    common.HexToAddress("0x3333333333333333333333333333333333333333"),
		Nonce:     uint256.NewInt(7),
		Payload:   []byte{0x01, 0x02},
		Signature: bytes.Repeat([]byte{0xaa}, crypto.SignatureLength),
	}
	other := req.Copy()
	other.Signature[0] = 0xbb

	if req.Hash() == other.Hash() {
		t.Fatal("hash should change with the signature")
	}
	if req.SignatureHash() != crypto.Keccak256Hash(req.Signature) {
		t.Fatal("signature hash mismatch")
	}
	if !req.IsSigned() {
		t.Fatal("65-byte signature should count as signed")
	}
}

func TestRelayRequestCopyIsDeep(t *testing.T) {
	req := &RelayRequest{Nonce: uint256.NewInt(1), Payload: []byte{0x01}}
	cpy := req.Copy()
	cpy.Nonce.SetUint64(2)
	cpy.Payload[0] = 0x02

	if req.Nonce.Uint64() != 1 || req.Payload[0] != 0x01 {
		t.Fatal("copy shares memory with the original")
	}
}

func TestMessageHashDistinguishesCreate(t *testing.T) {
	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	call := &Message{From: to, To: &to, GasLimit: 21000}
	create := &Message{From: to, GasLimit: 21000}

	if call.Hash() == create.Hash() {
		t.Fatal("call and create messages must hash differently")
	}
	if !create.IsCreate() || call.IsCreate() {
		t.Fatal("IsCreate mismatch")
	}
	cpy := call.Copy()
	*cpy.To = common.Address{}
	if *call.To != to {
		t.Fatal("copy shares the recipient pointer")
	}
}

func TestReceiptStorageRoundTrip(t *testing.T) {
	receipt := &Receipt{
		Status:  ReceiptStatusSuccessful,
		GasUsed: 42000,
		Logs: []*gethtypes.Log{{
			Address: common.HexToAddress("0x1111111111111111111111111111111111111111"),
			Topics:  []common.Hash{crypto.Keccak256Hash([]byte("Echo()"))},
			Data:    []byte{0x01},
		}},
		ReturnData:  []byte{0xde, 0xad},
		TxHash:      common.HexToHash("0x01"),
		BlockNumber: 9,
	}
	blob, err := EncodeReceipt(receipt)
	if err != nil {
		t.Fatalf("EncodeReceipt failed: %v", err)
	}
	dec, err := DecodeReceipt(blob)
	if err != nil {
		t.Fatalf("DecodeReceipt failed: %v", err)
	}
	if dec.Failed() || dec.GasUsed != receipt.GasUsed || !bytes.Equal(dec.ReturnData, receipt.ReturnData) {
		t.Fatalf("receipt mismatch: %+v", dec)
	}
	if len(dec.Logs) != 1 || dec.Logs[0].BlockNumber != 9 || dec.Logs[0].TxHash != receipt.TxHash {
		t.Fatalf("log positional fields not restored: %+v", dec.Logs)
	}
}
