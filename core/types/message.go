// Copyright 2025 The go-nexus Authors
// This file is part of the go-nexus library.
//
// Ledger messages and receipts. A message is a transaction whose sender is
// already authenticated by the ledger; this package never sees tx-level
// signatures.

package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

// Receipt status codes.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Message is a state transition request submitted to the ledger.
type Message struct {
	From     common.Address
	To       *common.Address `rlp:"nil"` // nil means contract creation
	Nonce    uint64                     // sender nonce, filled in by the ledger
	GasLimit uint64
	Data     []byte
}

// Hash returns the keccak256 hash of the RLP encoding of the message.
func (m *Message) Hash() common.Hash {
	return rlpHash(m)
}

// IsCreate reports whether the message deploys a contract.
func (m *Message) IsCreate() bool {
	return m.To == nil
}

// Copy returns a deep copy of the message.
func (m *Message) Copy() *Message {
	cpy := &Message{
		From:     m.From,
		Nonce:    m.Nonce,
		GasLimit: m.GasLimit,
		Data:     common.CopyBytes(m.Data),
	}
	if m.To != nil {
		to := *m.To
		cpy.To = &to
	}
	return cpy
}

// Receipt is the outcome of a message included in the ledger.
type Receipt struct {
	Status          uint64
	GasUsed         uint64
	Logs            []*gethtypes.Log
	ReturnData      []byte // output on success, revert data on failure
	ContractAddress common.Address

	TxHash      common.Hash
	BlockNumber uint64
}

// Failed reports whether the message reverted or halted.
func (r *Receipt) Failed() bool {
	return r.Status != ReceiptStatusSuccessful
}

// storedLog is the consensus subset of a log kept in the database.
type storedLog struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

type storedReceipt struct {
	Status          uint64
	GasUsed         uint64
	Logs            []storedLog
	ReturnData      []byte
	ContractAddress common.Address
	TxHash          common.Hash
	BlockNumber     uint64
}

// EncodeReceipt serializes a receipt for storage.
func EncodeReceipt(r *Receipt) ([]byte, error) {
	enc := storedReceipt{
		Status:          r.Status,
		GasUsed:         r.GasUsed,
		Logs:            make([]storedLog, len(r.Logs)),
		ReturnData:      r.ReturnData,
		ContractAddress: r.ContractAddress,
		TxHash:          r.TxHash,
		BlockNumber:     r.BlockNumber,
	}
	for i, l := range r.Logs {
		enc.Logs[i] = storedLog{Address: l.Address, Topics: l.Topics, Data: l.Data}
	}
	return rlp.EncodeToBytes(&enc)
}

// DecodeReceipt is the inverse of EncodeReceipt. Log positional fields are
// derived from the receipt itself.
func DecodeReceipt(blob []byte) (*Receipt, error) {
	var dec storedReceipt
	if err := rlp.DecodeBytes(blob, &dec); err != nil {
		return nil, err
	}
	r := &Receipt{
		Status:          dec.Status,
		GasUsed:         dec.GasUsed,
		Logs:            make([]*gethtypes.Log, len(dec.Logs)),
		ReturnData:      dec.ReturnData,
		ContractAddress: dec.ContractAddress,
		TxHash:          dec.TxHash,
		BlockNumber:     dec.BlockNumber,
	}
	for i, l := range dec.Logs {
		r.Logs[i] = &gethtypes.Log{
			Address:     l.Address,
			Topics:      l.Topics,
			Data:        l.Data,
			BlockNumber: dec.BlockNumber,
			TxHash:      dec.TxHash,
			Index:       uint(i),
		}
	}
	return r, nil
}

func rlpHash(x interface{}) (h common.Hash) {
	enc, err := rlp.EncodeToBytes(x)
	if err != nil {
		panic("rlp encoding failed: " + err.Error())
	}
	return crypto.Keccak256Hash(enc)
}
