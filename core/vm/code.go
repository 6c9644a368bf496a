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

package vm

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Native code blobs are prefixed with an EOF-style magic that no legacy
// bytecode can start with, followed by rlp([kind, args]).
var codeMagic = []byte{0xef, 0x4e}

// EIP-1167 minimal proxy byte sequences.
var (
	minimalProxyInit          = common.FromHex("3d602d80600a3d3981f3")
	minimalProxyRuntimePrefix = common.FromHex("363d3d373d3d3d363d73")
	minimalProxyRuntimeSuffix = common.FromHex("5af43d82803e903d91602b57fd5bf3")

	minimalProxyRuntimeLen = len(minimalProxyRuntimePrefix) + common.AddressLength + len(minimalProxyRuntimeSuffix)
)

// resolvedContracts is the number of linked contracts kept per linker.
const resolvedContracts = 256

type artifact struct {
	Kind string
	Args []byte
}

// NewCode builds a native code blob. Args usually carry the ABI encoded
// constructor arguments, which double as the contract's immutables.
func NewCode(kind string, args []byte) []byte {
	enc, err := rlp.EncodeToBytes(&artifact{Kind: kind, Args: args})
	if err != nil {
		panic("rlp encoding failed: " + err.Error())
	}
	return append(common.CopyBytes(codeMagic), enc...)
}

// DecodeCode splits a native code blob into its kind and arguments.
func DecodeCode(code []byte) (string, []byte, error) {
	if !bytes.HasPrefix(code, codeMagic) {
		return "", nil, ErrInvalidCode
	}
	var a artifact
	if err := rlp.DecodeBytes(code[len(codeMagic):], &a); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	return a.Kind, a.Args, nil
}

// MinimalProxyRuntimeCode returns the EIP-1167 runtime code delegating
// every call to impl.
func MinimalProxyRuntimeCode(impl common.Address) []byte {
	code := make([]byte, 0, minimalProxyRuntimeLen)
	code = append(code, minimalProxyRuntimePrefix...)
	code = append(code, impl.Bytes()...)
	return append(code, minimalProxyRuntimeSuffix...)
}

// MinimalProxyInitCode returns the EIP-1167 creation code for a clone of
// impl. Its hash is what CREATE2 address prediction is computed over.
func MinimalProxyInitCode(impl common.Address) []byte {
	return append(common.CopyBytes(minimalProxyInit), MinimalProxyRuntimeCode(impl)...)
}

// ParseMinimalProxy extracts the implementation address from EIP-1167
// runtime code.
func ParseMinimalProxy(code []byte) (common.Address, bool) {
	if len(code) != minimalProxyRuntimeLen ||
		!bytes.HasPrefix(code, minimalProxyRuntimePrefix) ||
		!bytes.HasSuffix(code, minimalProxyRuntimeSuffix) {
		return common.Address{}, false
	}
	start := len(minimalProxyRuntimePrefix)
	return common.BytesToAddress(code[start : start+common.AddressLength]), true
}

// Factory instantiates the native implementation of a code kind from the
// blob's arguments.
type Factory func(args []byte) (Contract, error)

// Linker binds code blobs to native contract implementations.
type Linker struct {
	mu        sync.RWMutex
	factories map[string]Factory
	resolved  *lru.Cache[common.Hash, Contract]
}

// NewLinker creates a linker with no registered kinds. EIP-1167 clones are
// always understood.
func NewLinker() *Linker {
	return &Linker{
		factories: make(map[string]Factory),
		resolved:  lru.NewCache[common.Hash, Contract](resolvedContracts),
	}
}

// Register binds a code kind to its factory, replacing any previous one.
func (l *Linker) Register(kind string, f Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.factories[kind] = f
	l.resolved.Purge()
}

// Resolve returns the contract implementing the given runtime code.
func (l *Linker) Resolve(code []byte) (Contract, error) {
	if impl, ok := ParseMinimalProxy(code); ok {
		return &minimalProxy{impl: impl}, nil
	}
	hash := crypto.Keccak256Hash(code)
	if c, ok := l.resolved.Get(hash); ok {
		return c, nil
	}
	kind, args, err := DecodeCode(code)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	factory, ok := l.factories[kind]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodeKind, kind)
	}
	c, err := factory(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	l.resolved.Add(hash, c)
	return c, nil
}

// link turns creation code into the runtime code to install and the
// contract that runs the constructor.
func (l *Linker) link(initCode []byte) ([]byte, Contract, error) {
	if bytes.HasPrefix(initCode, minimalProxyInit) {
		runtime := initCode[len(minimalProxyInit):]
		if _, ok := ParseMinimalProxy(runtime); !ok {
			return nil, nil, ErrInvalidCode
		}
		c, err := l.Resolve(runtime)
		return common.CopyBytes(runtime), c, err
	}
	c, err := l.Resolve(initCode)
	if err != nil {
		return nil, nil, err
	}
	return initCode, c, nil
}

// minimalProxy forwards every call to a fixed implementation, keeping the
// caller and storage of the proxy.
type minimalProxy struct {
	impl common.Address
}

func (p *minimalProxy) Run(scope *Scope, input []byte) ([]byte, error) {
	return scope.DelegateCall(p.impl, input, scope.Gas())
}
