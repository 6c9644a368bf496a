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

/*
Package relaysig implements the authorization codec shared by the operator
tooling and the relay agents.

An authorization binds four values: the agent that will execute the call,
the call target, the agent nonce and the calldata. They are laid out as four
32-byte words,

	agent (left padded) || target (left padded) || nonce || keccak256(payload)

so every field has a fixed width and no two distinct tuples share an
encoding. The message hash is keccak256 of that encoding. The operator signs
the EIP-191 personal message digest of the hash,

	keccak256("\x19Ethereum Signed Message:\n32" || hash)

which is what wallet style signers produce for a 32-byte message. Signatures
are 65 bytes [R || S || V] with V in {27, 28} and a low S value. Raw
recovery ids and high S values are rejected, so every authorization has a
single valid encoding.
*/
package relaysig
