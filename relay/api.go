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

package relay

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"

	"github.com/grindery-io/grindery-nexus-contracts/core/nexus"
	"github.com/grindery-io/grindery-nexus-contracts/core/rawdb"
	"github.com/grindery-io/grindery-nexus-contracts/crypto/relaysig"
)

var errNonceOverflow = errors.New("nonce exceeds 256 bits")

// API is the RPC API of the relayer, served in the nexus namespace.
type API struct {
	relayer *Relayer
}

// APIs returns the RPC services of the relayer.
func (r *Relayer) APIs() []rpc.API {
	return []rpc.API{{
		Namespace: "nexus",
		Service:   &API{relayer: r},
	}}
}

// GetAccountAgentAddress returns the agent address of account.
func (api *API) GetAccountAgentAddress(ctx context.Context, account common.Address) (common.Address, error) {
	return api.relayer.AgentAddress(ctx, account)
}

// GetNextNonce returns the nonce the agent of account accepts next.
func (api *API) GetNextNonce(ctx context.Context, account common.Address) (*hexutil.Big, error) {
	nonce, _, err := api.relayer.NextNonce(ctx, account)
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(nonce.ToBig()), nil
}

// TransactionHash returns the message hash the operator signs for a call.
func (api *API) TransactionHash(agent, target common.Address, nonce hexutil.Big, data hexutil.Bytes) (common.Hash, error) {
	n, overflow := uint256.FromBig(nonce.ToInt())
	if overflow {
		return common.Hash{}, errNonceOverflow
	}
	return relaysig.MessageHash(agent, target, n, data), nil
}

// Status returns the registry configuration and the relaying operator.
func (api *API) Status(ctx context.Context) (*Status, error) {
	var (
		hub  = api.relayer.Hub()
		opts = &nexus.CallOpts{Context: ctx}
		s    = &Status{Hub: hub.Address(), Relayer: api.relayer.Operator()}
		err  error
	)
	if s.Owner, err = hub.Owner(opts); err != nil {
		return nil, err
	}
	if s.PendingOwner, err = hub.PendingOwner(opts); err != nil {
		return nil, err
	}
	if s.Operator, err = hub.GetOperator(opts); err != nil {
		return nil, err
	}
	if s.Beacon, err = hub.GetAgentBeacon(opts); err != nil {
		return nil, err
	}
	if s.AgentImplementation, err = hub.GetAgentImplementation(opts); err != nil {
		return nil, err
	}
	return s, nil
}

// Status represents the configuration of the registry.
type Status struct {
	Hub                 common.Address `json:"hub"`
	Owner               common.Address `json:"owner"`
	PendingOwner        common.Address `json:"pendingOwner"`
	Operator            common.Address `json:"operator"`
	Beacon              common.Address `json:"beacon"`
	AgentImplementation common.Address `json:"agentImplementation"`
	Relayer             common.Address `json:"relayer"`
}

// RelayArgs are the arguments of nexus_relay.
type RelayArgs struct {
	Account common.Address `json:"account"`
	Target  common.Address `json:"target"`
	Data    hexutil.Bytes  `json:"data"`
}

// Relay signs and submits a call for an account.
func (api *API) Relay(ctx context.Context, args RelayArgs) (*RelayResult, error) {
	rec, err := api.relayer.Relay(ctx, args.Account, args.Target, args.Data)
	if err != nil {
		return nil, err
	}
	return newRelayResult(rec), nil
}

// DeployAgent creates the agent of account.
func (api *API) DeployAgent(ctx context.Context, account common.Address) (common.Address, error) {
	return api.relayer.DeployAgent(ctx, account)
}

// GetRelayResult returns the recorded outcome of a signature, or null.
func (api *API) GetRelayResult(sigHash common.Hash) *RelayResult {
	rec := api.relayer.Result(sigHash)
	if rec == nil {
		return nil
	}
	return newRelayResult(rec)
}

// GetRelayResults returns every outcome recorded for account.
func (api *API) GetRelayResults(account common.Address) []*RelayResult {
	results := []*RelayResult{}
	for _, rec := range api.relayer.Results(account) {
		results = append(results, newRelayResult(rec))
	}
	return results
}

// RelayResult is the JSON form of a relay record.
type RelayResult struct {
	ID            string         `json:"id"`
	Account       common.Address `json:"account"`
	Agent         common.Address `json:"agent"`
	Target        common.Address `json:"target"`
	Nonce         hexutil.Uint64 `json:"nonce"`
	SignatureHash common.Hash    `json:"signatureHash"`
	TxHash        common.Hash    `json:"transactionHash"`
	Deployed      bool           `json:"deployed"`
	Success       bool           `json:"success"`
	ReturnData    hexutil.Bytes  `json:"returnData"`
	Error         string         `json:"error,omitempty"`
}

func newRelayResult(rec *rawdb.RelayRecord) *RelayResult {
	return &RelayResult{
		ID:            rec.ID,
		Account:       rec.Account,
		Agent:         rec.Agent,
		Target:        rec.Target,
		Nonce:         hexutil.Uint64(rec.Nonce),
		SignatureHash: rec.SignatureHash,
		TxHash:        rec.TxHash,
		Deployed:      rec.Deployed,
		Success:       rec.Success,
		ReturnData:    rec.ReturnData,
		Error:         rec.Error,
	}
}
