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
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/joho/godotenv"

	"github.com/grindery-io/grindery-nexus-contracts/relay"
)

var errMissingKey = errors.New("key not configured")

// Config is the environment configuration of the nexus command.
type Config struct {
	OwnerKey    string `env:"NEXUS_OWNER_KEY"`
	OperatorKey string `env:"NEXUS_OPERATOR_KEY"`

	HTTPAddr string `env:"NEXUS_HTTP_ADDR" envDefault:"127.0.0.1:8645"`
	LogLevel string `env:"NEXUS_LOG_LEVEL" envDefault:"info"`

	GasLimit        uint64        `env:"NEXUS_GAS_LIMIT" envDefault:"3000000"`
	RelayMaxRetries uint64        `env:"NEXUS_RELAY_MAX_RETRIES" envDefault:"3"`
	RelayBackoff    time.Duration `env:"NEXUS_RELAY_BACKOFF" envDefault:"50ms"`
	AgentCache      int           `env:"NEXUS_AGENT_CACHE" envDefault:"1024"`
}

// loadConfig reads the environment, after merging the given dotenv files.
// Missing dotenv files are ignored.
func loadConfig(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}
	cfg := new(Config)
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *Config) relayConfig() relay.Config {
	return relay.Config{
		GasLimit:       c.GasLimit,
		MaxRetries:     c.RelayMaxRetries,
		InitialBackoff: c.RelayBackoff,
		MaxBackoff:     relay.DefaultConfig.MaxBackoff,
		AgentCacheSize: c.AgentCache,
	}
}

func (c *Config) logLevel() (slog.Level, error) {
	return log.LvlFromString(strings.ToLower(c.LogLevel))
}

func (c *Config) ownerKey() (*ecdsa.PrivateKey, error) {
	return parseKey("NEXUS_OWNER_KEY", c.OwnerKey)
}

func (c *Config) operatorKey() (*ecdsa.PrivateKey, error) {
	return parseKey("NEXUS_OPERATOR_KEY", c.OperatorKey)
}

func parseKey(name, hex string) (*ecdsa.PrivateKey, error) {
	if hex == "" {
		return nil, fmt.Errorf("%s: %w", name, errMissingKey)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return key, nil
}
