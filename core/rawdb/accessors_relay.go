// Copyright 2025 The go-nexus Authors
// This file is part of the go-nexus library.
//
// Database accessors for ledger receipts and relay outcomes.
// Handles storage and retrieval of receipts, the canonical transaction per
// block, and the relayer's per-signature records.

package rawdb

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/grindery-io/grindery-nexus-contracts/core/types"
)

var (
	// headBlockKey tracks the number of the latest block.
	headBlockKey = []byte("LastBlock")

	// receiptPrefix + tx hash -> rlp receipt
	receiptPrefix = []byte("r-")

	// canonicalPrefix + num (uint64 big endian) -> tx hash
	canonicalPrefix = []byte("b-")

	// relayRecordPrefix + signature hash -> rlp relay record
	relayRecordPrefix = []byte("rr-")

	// relayAccountPrefix + account + signature hash -> empty (index)
	relayAccountPrefix = []byte("ra-")
)

// encodeBlockNumber encodes a block number as big endian uint64
func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

// receiptKey = receiptPrefix + hash
func receiptKey(hash common.Hash) []byte {
	return append(append([]byte{}, receiptPrefix...), hash.Bytes()...)
}

// canonicalKey = canonicalPrefix + num
func canonicalKey(number uint64) []byte {
	return append(append([]byte{}, canonicalPrefix...), encodeBlockNumber(number)...)
}

// relayRecordKey = relayRecordPrefix + signature hash
func relayRecordKey(sigHash common.Hash) []byte {
	return append(append([]byte{}, relayRecordPrefix...), sigHash.Bytes()...)
}

// relayAccountKey = relayAccountPrefix + account + signature hash
func relayAccountKey(account common.Address, sigHash common.Hash) []byte {
	key := make([]byte, 0, len(relayAccountPrefix)+common.AddressLength+common.HashLength)
	key = append(key, relayAccountPrefix...)
	key = append(key, account.Bytes()...)
	return append(key, sigHash.Bytes()...)
}

// ReadHeadBlockNumber returns the number of the latest block, zero on an
// empty database.
func ReadHeadBlockNumber(db ethdb.KeyValueReader) uint64 {
	data, err := db.Get(headBlockKey)
	if err != nil || len(data) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}

// WriteHeadBlockNumber stores the number of the latest block.
func WriteHeadBlockNumber(db ethdb.KeyValueWriter, number uint64) {
	if err := db.Put(headBlockKey, encodeBlockNumber(number)); err != nil {
		log.Crit("Failed to store last block number", "err", err)
	}
}

// ReadCanonicalTxHash returns the hash of the transaction included in the
// given block.
func ReadCanonicalTxHash(db ethdb.KeyValueReader, number uint64) (common.Hash, bool) {
	data, err := db.Get(canonicalKey(number))
	if err != nil || len(data) != common.HashLength {
		return common.Hash{}, false
	}
	return common.BytesToHash(data), true
}

// WriteCanonicalTxHash stores the transaction included in the given block.
func WriteCanonicalTxHash(db ethdb.KeyValueWriter, number uint64, hash common.Hash) {
	if err := db.Put(canonicalKey(number), hash.Bytes()); err != nil {
		log.Crit("Failed to store block transaction", "err", err)
	}
}

// HasReceipt checks if a receipt exists for the transaction
func HasReceipt(db ethdb.KeyValueReader, hash common.Hash) bool {
	has, _ := db.Has(receiptKey(hash))
	return has
}

// ReadReceipt retrieves the receipt of a transaction.
func ReadReceipt(db ethdb.KeyValueReader, hash common.Hash) *types.Receipt {
	data, err := db.Get(receiptKey(hash))
	if err != nil || len(data) == 0 {
		return nil
	}
	receipt, err := types.DecodeReceipt(data)
	if err != nil {
		log.Error("Invalid receipt RLP", "hash", hash, "err", err)
		return nil
	}
	return receipt
}

// WriteReceipt stores the receipt of a transaction.
func WriteReceipt(db ethdb.KeyValueWriter, receipt *types.Receipt) {
	data, err := types.EncodeReceipt(receipt)
	if err != nil {
		log.Crit("Failed to encode receipt", "err", err)
	}
	if err := db.Put(receiptKey(receipt.TxHash), data); err != nil {
		log.Crit("Failed to store receipt", "err", err)
	}
}

// RelayRecord is the relayer's account of one authorization it submitted.
type RelayRecord struct {
	ID            string // request identifier used in logs
	Account       common.Address
	Agent         common.Address
	Target        common.Address
	Nonce         uint64
	SignatureHash common.Hash
	TxHash        common.Hash
	Deployed      bool // the agent was created by this submission
	Success       bool // outcome of the forwarded call
	ReturnData    []byte
	Error         string // submission failure, empty when included
}

// HasRelayRecord checks if a record exists for the signature hash
func HasRelayRecord(db ethdb.KeyValueReader, sigHash common.Hash) bool {
	has, _ := db.Has(relayRecordKey(sigHash))
	return has
}

// ReadRelayRecord retrieves the record stored for a signature hash.
func ReadRelayRecord(db ethdb.KeyValueReader, sigHash common.Hash) *RelayRecord {
	data, err := db.Get(relayRecordKey(sigHash))
	if err != nil || len(data) == 0 {
		return nil
	}
	var rec RelayRecord
	if err := rlp.DecodeBytes(data, &rec); err != nil {
		log.Error("Invalid relay record RLP", "sighash", sigHash, "err", err)
		return nil
	}
	return &rec
}

// WriteRelayRecord stores a relay record and indexes it by account.
func WriteRelayRecord(db ethdb.KeyValueWriter, rec *RelayRecord) {
	data, err := rlp.EncodeToBytes(rec)
	if err != nil {
		log.Crit("Failed to encode relay record", "err", err)
	}
	if err := db.Put(relayRecordKey(rec.SignatureHash), data); err != nil {
		log.Crit("Failed to store relay record", "err", err)
	}
	if err := db.Put(relayAccountKey(rec.Account, rec.SignatureHash), []byte{}); err != nil {
		log.Crit("Failed to index relay record", "err", err)
	}
}

// DeleteRelayRecord removes a relay record and its account index entry.
func DeleteRelayRecord(db ethdb.KeyValueWriter, account common.Address, sigHash common.Hash) {
	if err := db.Delete(relayRecordKey(sigHash)); err != nil {
		log.Crit("Failed to delete relay record", "err", err)
	}
	if err := db.Delete(relayAccountKey(account, sigHash)); err != nil {
		log.Crit("Failed to delete relay record index", "err", err)
	}
}

// IterateRelayRecordsByAccount walks the signature hashes recorded for an
// account until fn returns false.
func IterateRelayRecordsByAccount(db ethdb.Iteratee, account common.Address, fn func(sigHash common.Hash) bool) {
	prefix := append(append([]byte{}, relayAccountPrefix...), account.Bytes()...)
	it := db.NewIterator(prefix, nil)
	defer it.Release()

	for it.Next() {
		key := it.Key()
		if len(key) != len(prefix)+common.HashLength {
			continue
		}
		if !fn(common.BytesToHash(key[len(prefix):])) {
			break
		}
	}
}
