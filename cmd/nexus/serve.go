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

package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/urfave/cli/v2"

	"github.com/grindery-io/grindery-nexus-contracts/core"
	"github.com/grindery-io/grindery-nexus-contracts/core/nexus"
	"github.com/grindery-io/grindery-nexus-contracts/relay"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Run a development ledger with the relay system and its JSON-RPC API",
	Flags:  []cli.Flag{httpAddrFlag},
	Action: serve,
	Description: `
Bootstraps the relay system on an in-memory ledger owned by NEXUS_OWNER_KEY
and operated by NEXUS_OPERATOR_KEY, then serves the nexus_* API over HTTP.
Missing keys are replaced by ephemeral ones.`,
}

func serve(ctx *cli.Context) error {
	cfg := config(ctx)
	ownerKey, err := devKey("owner", cfg.ownerKey)
	if err != nil {
		return err
	}
	operatorKey, err := devKey("operator", cfg.operatorKey)
	if err != nil {
		return err
	}
	addr := cfg.HTTPAddr
	if ctx.IsSet(httpAddrFlag.Name) {
		addr = ctx.String(httpAddrFlag.Name)
	}
	sigctx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	chain := core.NewChain(memorydb.New(), nexus.NewLinker())
	d, err := nexus.Bootstrap(sigctx, chain, crypto.PubkeyToAddress(ownerKey.PublicKey), crypto.PubkeyToAddress(operatorKey.PublicKey))
	if err != nil {
		return err
	}
	log.Info("Relay system deployed", "hub", d.Hub, "beacon", d.Beacon, "agentProxy", d.AgentProxy,
		"hubImpl", d.HubImplementation, "droneImpl", d.DroneImplementation)

	relayer := relay.NewRelayer(cfg.relayConfig(), chain, memorydb.New(), d.Hub, relay.NewKeySigner(operatorKey))
	srv := rpc.NewServer()
	defer srv.Stop()
	for _, api := range relayer.APIs() {
		if err := srv.RegisterName(api.Namespace, api.Service); err != nil {
			return err
		}
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- httpSrv.Serve(listener) }()
	log.Info("JSON-RPC server started", "url", "http://"+listener.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-sigctx.Done():
	}
	log.Info("Shutting down JSON-RPC server")
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdown)
}

func devKey(role string, load func() (*ecdsa.PrivateKey, error)) (*ecdsa.PrivateKey, error) {
	key, err := load()
	if !errors.Is(err, errMissingKey) {
		return key, err
	}
	key, err = crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	log.Warn("Using ephemeral key", "role", role, "address", crypto.PubkeyToAddress(key.PublicKey))
	return key, nil
}
