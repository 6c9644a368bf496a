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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"

	"github.com/grindery-io/grindery-nexus-contracts/core/nexus"
	"github.com/grindery-io/grindery-nexus-contracts/crypto/relaysig"
)

var (
	deriveCommand = &cli.Command{
		Name:   "derive",
		Usage:  "Print the agent address of an account",
		Flags:  []cli.Flag{hubFlag, agentProxyFlag, accountFlag},
		Action: derive,
		Description: `
The hub and agent proxy default to the addresses of the deterministic
deployment, which are the same on every ledger.`,
	}
	hashCommand = &cli.Command{
		Name:   "hash",
		Usage:  "Print the message hash the operator signs for a call",
		Flags:  []cli.Flag{agentFlag, targetFlag, nonceFlag, dataFlag},
		Action: hash,
	}
	signCommand = &cli.Command{
		Name:   "sign",
		Usage:  "Sign a call authorization with NEXUS_OPERATOR_KEY",
		Flags:  []cli.Flag{agentFlag, targetFlag, nonceFlag, dataFlag},
		Action: sign,
	}
	signMsgCommand = &cli.Command{
		Name:      "sign-msg",
		Usage:     "Sign a text as a personal message with NEXUS_OPERATOR_KEY",
		ArgsUsage: "<text>",
		Action:    signMsg,
	}
)

func derive(ctx *cli.Context) error {
	predicted := nexus.PredictDeployment()
	hub, err := addressArg(ctx, hubFlag, predicted.Hub)
	if err != nil {
		return err
	}
	agentProxy, err := addressArg(ctx, agentProxyFlag, predicted.AgentProxy)
	if err != nil {
		return err
	}
	account, err := addressArg(ctx, accountFlag, common.Address{})
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, nexus.AgentAddress(hub, agentProxy, account).Hex())
	return nil
}

func hash(ctx *cli.Context) error {
	h, err := callHash(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, h.Hex())
	return nil
}

func sign(ctx *cli.Context) error {
	key, err := config(ctx).operatorKey()
	if err != nil {
		return err
	}
	h, err := callHash(ctx)
	if err != nil {
		return err
	}
	sig, err := relaysig.Sign(h, key)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, hexutil.Encode(sig))
	return nil
}

func signMsg(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected exactly one message argument, got %d", ctx.NArg())
	}
	key, err := config(ctx).operatorKey()
	if err != nil {
		return err
	}
	sig, err := relaysig.SignText([]byte(ctx.Args().First()), key)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, hexutil.Encode(sig))
	return nil
}

// callHash computes the authorization message hash from the call flags.
func callHash(ctx *cli.Context) (common.Hash, error) {
	agent, err := addressArg(ctx, agentFlag, common.Address{})
	if err != nil {
		return common.Hash{}, err
	}
	target, err := addressArg(ctx, targetFlag, common.Address{})
	if err != nil {
		return common.Hash{}, err
	}
	n, ok := math.ParseBig256(ctx.String(nonceFlag.Name))
	if !ok || n.Sign() < 0 {
		return common.Hash{}, fmt.Errorf("invalid --%s %q", nonceFlag.Name, ctx.String(nonceFlag.Name))
	}
	data, err := hexutil.Decode(ctx.String(dataFlag.Name))
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid --%s: %w", dataFlag.Name, err)
	}
	return relaysig.MessageHash(agent, target, uint256.MustFromBig(n), data), nil
}

// addressArg parses an address flag, falling back to def when unset.
func addressArg(ctx *cli.Context, flag *cli.StringFlag, def common.Address) (common.Address, error) {
	if !ctx.IsSet(flag.Name) {
		return def, nil
	}
	s := ctx.String(flag.Name)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid --%s address %q", flag.Name, s)
	}
	return common.HexToAddress(s), nil
}
