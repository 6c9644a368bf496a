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

// Package relay implements the operator side of the relay system: it signs
// authorizations for the live agent nonce and submits them to the ledger.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/grindery-io/grindery-nexus-contracts/core/nexus"
	"github.com/grindery-io/grindery-nexus-contracts/core/rawdb"
	"github.com/grindery-io/grindery-nexus-contracts/core/types"
	"github.com/grindery-io/grindery-nexus-contracts/crypto/relaysig"
	"github.com/grindery-io/grindery-nexus-contracts/params"
)

// Config tunes the relayer.
type Config struct {
	GasLimit       uint64        // gas limit of submitted transactions
	MaxRetries     uint64        // resubmissions after a lost nonce or deployment race
	InitialBackoff time.Duration // first delay between attempts
	MaxBackoff     time.Duration // upper bound of the delay
	AgentCacheSize int           // derived agent addresses kept in memory
}

// DefaultConfig contains the default relayer settings.
var DefaultConfig = Config{
	GasLimit:       params.DefaultGasLimit,
	MaxRetries:     3,
	InitialBackoff: 50 * time.Millisecond,
	MaxBackoff:     time.Second,
	AgentCacheSize: 1024,
}

func (c *Config) sanitize() Config {
	conf := *c
	if conf.GasLimit < params.TxGas {
		log.Warn("Sanitizing invalid relay gas limit", "provided", conf.GasLimit, "updated", DefaultConfig.GasLimit)
		conf.GasLimit = DefaultConfig.GasLimit
	}
	if conf.InitialBackoff <= 0 {
		conf.InitialBackoff = DefaultConfig.InitialBackoff
	}
	if conf.MaxBackoff < conf.InitialBackoff {
		conf.MaxBackoff = conf.InitialBackoff
	}
	if conf.AgentCacheSize <= 0 {
		conf.AgentCacheSize = DefaultConfig.AgentCacheSize
	}
	return conf
}

// Relayer submits operator authorizations on behalf of accounts.
type Relayer struct {
	config  Config
	backend nexus.Backend
	db      ethdb.KeyValueStore
	hub     *nexus.HubContract
	signer  Signer

	agents *lru.Cache[common.Address, common.Address] // account -> agent
}

// NewRelayer creates a relayer for the registry at hub. Outcomes are
// recorded in db.
func NewRelayer(config Config, backend nexus.Backend, db ethdb.KeyValueStore, hub common.Address, signer Signer) *Relayer {
	config = (&config).sanitize()
	return &Relayer{
		config:  config,
		backend: backend,
		db:      db,
		hub:     nexus.NewHub(hub, backend),
		signer:  signer,
		agents:  lru.NewCache[common.Address, common.Address](config.AgentCacheSize),
	}
}

// Hub returns the registry binding.
func (r *Relayer) Hub() *nexus.HubContract { return r.hub }

// Operator returns the address of the signing operator.
func (r *Relayer) Operator() common.Address { return r.signer.Address() }

func (r *Relayer) opts(ctx context.Context) *nexus.TransactOpts {
	return &nexus.TransactOpts{From: r.signer.Address(), GasLimit: r.config.GasLimit, Context: ctx}
}

// AgentAddress returns the agent address of account, deployed or not.
func (r *Relayer) AgentAddress(ctx context.Context, account common.Address) (common.Address, error) {
	if agent, ok := r.agents.Get(account); ok {
		return agent, nil
	}
	agent, err := r.hub.GetAccountAgentAddress(&nexus.CallOpts{Context: ctx}, account)
	if err != nil {
		return common.Address{}, err
	}
	r.agents.Add(account, agent)
	return agent, nil
}

// NextNonce returns the nonce the agent of account accepts next; zero for
// agents not deployed yet.
func (r *Relayer) NextNonce(ctx context.Context, account common.Address) (*uint256.Int, bool, error) {
	agent, err := r.AgentAddress(ctx, account)
	if err != nil {
		return nil, false, err
	}
	code, err := r.backend.CodeAt(ctx, agent)
	if err != nil {
		return nil, false, err
	}
	if len(code) == 0 {
		return new(uint256.Int), false, nil
	}
	nonce, err := nexus.NewDrone(agent, r.backend).GetNextNonce(&nexus.CallOpts{Context: ctx})
	if err != nil {
		return nil, true, err
	}
	return nonce, true, nil
}

// Authorize signs the authorization of a call through agent.
func (r *Relayer) Authorize(ctx context.Context, agent, target common.Address, nonce *uint256.Int, payload []byte) ([]byte, error) {
	return r.signer.SignHash(ctx, relaysig.MessageHash(agent, target, nonce, payload))
}

// DeployAgent creates the agent of account. An agent that already exists
// is not an error.
func (r *Relayer) DeployAgent(ctx context.Context, account common.Address) (common.Address, error) {
	agent, err := r.AgentAddress(ctx, account)
	if err != nil {
		return common.Address{}, err
	}
	_, err = r.hub.DeployAgent(r.opts(ctx), account)
	switch {
	case errors.Is(err, nexus.ErrAlreadyDeployed):
		log.Debug("Agent already deployed", "account", account, "agent", agent)
	case err != nil:
		return common.Address{}, err
	default:
		log.Info("Deployed agent", "account", account, "agent", agent)
	}
	return agent, nil
}

// Relay signs and submits a call of target with payload from the agent of
// account, deploying the agent in the same transaction when needed. Races
// on the nonce or the deployment are retried against fresh state; every
// other failure is returned right away.
func (r *Relayer) Relay(ctx context.Context, account, target common.Address, payload []byte) (*rawdb.RelayRecord, error) {
	id := uuid.New().String()
	logger := log.New("id", id, "account", account, "target", target)

	var (
		record  *rawdb.RelayRecord
		attempt int
	)
	operation := func() error {
		attempt++
		req, deployed, err := r.prepare(ctx, account, target, payload)
		if err != nil {
			return backoff.Permanent(err)
		}
		logger.Debug("Submitting relay request", "attempt", attempt, "agent", req.Agent, "nonce", req.Nonce, "deploy", !deployed)

		receipt, err := r.submit(ctx, req, deployed)
		record = &rawdb.RelayRecord{
			ID:            id,
			Account:       account,
			Agent:         req.Agent,
			Target:        target,
			Nonce:         req.Nonce.Uint64(),
			SignatureHash: req.SignatureHash(),
			Deployed:      !deployed,
		}
		if receipt != nil {
			record.TxHash = receipt.TxHash
		}
		if err != nil {
			record.Deployed = false
			record.Error = err.Error()
			rawdb.WriteRelayRecord(r.db, record)
			if errors.Is(err, nexus.ErrInvalidNonce) || errors.Is(err, nexus.ErrAlreadyDeployed) {
				logger.Debug("Relay request lost a race", "attempt", attempt, "err", err)
				return err
			}
			return backoff.Permanent(err)
		}
		res, err := nexus.ParseTransactionResult(receipt)
		if err != nil {
			return backoff.Permanent(err)
		}
		record.Success = res.Success
		record.ReturnData = res.ReturnData
		rawdb.WriteRelayRecord(r.db, record)
		return nil
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.config.InitialBackoff
	policy.MaxInterval = r.config.MaxBackoff
	policy.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, r.config.MaxRetries), ctx))
	if err != nil {
		logger.Warn("Relay request failed", "attempts", attempt, "err", err)
		return record, fmt.Errorf("relay %s: %w", id, err)
	}
	logger.Info("Relayed transaction", "agent", record.Agent, "nonce", record.Nonce,
		"success", record.Success, "deployed", record.Deployed, "tx", record.TxHash)
	return record, nil
}

// prepare builds a signed request for the live nonce of the agent.
func (r *Relayer) prepare(ctx context.Context, account, target common.Address, payload []byte) (*types.RelayRequest, bool, error) {
	agent, err := r.AgentAddress(ctx, account)
	if err != nil {
		return nil, false, err
	}
	nonce, deployed, err := r.NextNonce(ctx, account)
	if err != nil {
		return nil, false, err
	}
	req := &types.RelayRequest{
		Account: account,
		Agent:   agent,
		Target:  target,
		Nonce:   nonce,
		Payload: common.CopyBytes(payload),
	}
	sig, err := r.signer.SignHash(ctx, relaysig.RequestHash(req))
	if err != nil {
		return nil, false, fmt.Errorf("sign request: %w", err)
	}
	req.Signature = sig
	return req, deployed, nil
}

func (r *Relayer) submit(ctx context.Context, req *types.RelayRequest, deployed bool) (*types.Receipt, error) {
	if !deployed {
		return r.hub.DeployAgentAndSendTransaction(r.opts(ctx), req.Account, req.Target, req.Payload, req.Signature)
	}
	return nexus.NewDrone(req.Agent, r.backend).SendTransaction(r.opts(ctx), req.Target, req.Nonce, req.Payload, req.Signature)
}

// Result returns the recorded outcome of a submitted signature.
func (r *Relayer) Result(sigHash common.Hash) *rawdb.RelayRecord {
	return rawdb.ReadRelayRecord(r.db, sigHash)
}

// Results returns the recorded outcomes for account.
func (r *Relayer) Results(account common.Address) []*rawdb.RelayRecord {
	var records []*rawdb.RelayRecord
	rawdb.IterateRelayRecordsByAccount(r.db, account, func(sigHash common.Hash) bool {
		if rec := rawdb.ReadRelayRecord(r.db, sigHash); rec != nil {
			records = append(records, rec)
		}
		return true
	})
	return records
}
