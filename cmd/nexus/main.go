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

// nexus is the command line interface of the relay system.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var (
	envFileFlag = &cli.StringSliceFlag{
		Name:  "env-file",
		Usage: "dotenv files merged into the environment",
		Value: cli.NewStringSlice(".env"),
	}
	hubFlag = &cli.StringFlag{
		Name:  "hub",
		Usage: "registry (hub proxy) address",
	}
	agentProxyFlag = &cli.StringFlag{
		Name:  "agent-proxy",
		Usage: "static beacon proxy address cloned for agents",
	}
	accountFlag = &cli.StringFlag{
		Name:     "account",
		Usage:    "account whose agent is derived",
		Required: true,
	}
	agentFlag = &cli.StringFlag{
		Name:     "agent",
		Usage:    "agent address",
		Required: true,
	}
	targetFlag = &cli.StringFlag{
		Name:     "target",
		Usage:    "call target address",
		Required: true,
	}
	nonceFlag = &cli.StringFlag{
		Name:  "nonce",
		Usage: "agent nonce (decimal or 0x-prefixed hex)",
		Value: "0",
	}
	dataFlag = &cli.StringFlag{
		Name:  "data",
		Usage: "hex encoded call payload",
		Value: "0x",
	}
	httpAddrFlag = &cli.StringFlag{
		Name:  "http.addr",
		Usage: "JSON-RPC listen address (overrides NEXUS_HTTP_ADDR)",
	}
)

var app = &cli.App{
	Name:  "nexus",
	Usage: "relay system toolbox: address derivation, operator signatures and a development node",
	Flags: []cli.Flag{envFileFlag},
	Commands: []*cli.Command{
		deriveCommand,
		hashCommand,
		signCommand,
		signMsgCommand,
		serveCommand,
	},
	Before: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx.StringSlice(envFileFlag.Name)...)
		if err != nil {
			return err
		}
		lvl, err := cfg.logLevel()
		if err != nil {
			return err
		}
		log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)))
		ctx.App.Metadata = map[string]interface{}{"config": cfg}
		return nil
	},
}

func config(ctx *cli.Context) *Config {
	return ctx.App.Metadata["config"].(*Config)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
