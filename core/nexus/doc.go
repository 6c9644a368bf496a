// Copyright 2025 The go-nexus Authors
// This file is part of the go-nexus library.

/*
Package nexus implements the relay contracts and their Go bindings.

An operator key authorizes calls that per-account agents execute on the
account's behalf. Agents sit at addresses that can be derived before they
exist, and their logic is swapped for all of them at once through a beacon.

# Architecture

The system consists of the following contracts:

1. Hub - The registry. It runs behind an ERC1967Proxy (UUPS), keeps the
   owner and the operator, creates agents with CREATE2 and drives the
   beacon.

2. Drone - The agent logic. It checks the nonce and the operator signature,
   consumes the nonce, forwards the call and publishes the outcome in a
   TransactionResult event.

3. UpgradeableBeacon - Holds the current Drone implementation. The registry
   proxy is its owner.

4. StaticBeaconProxy - Reads the beacon on every call and delegates to the
   implementation. Each agent is an EIP-1167 clone of it, so an agent only
   owns its nonce.

5. ERC1967Stub and DeterministicDeployer - Let the proxy, the beacon and the
   beacon proxy be created at the same addresses on every ledger.

# Call Flow

	operator signs messageHash(agent, target, nonce, data)
	    → anyone submits agent.sendTransaction(target, nonce, data, sig)
	        → clone → StaticBeaconProxy → beacon.implementation() → Drone
	            1. nonce == getNextNonce()        else InvalidNonce
	            2. recover(sig) == hub.getOperator() else InvalidSignature
	            3. nonce++
	            4. call target, capture (success, returnData)
	            5. emit TransactionResult(keccak(sig), success, returnData)

A failing target never fails sendTransaction: the nonce is spent and the
failure is reported in the result.

# Bindings

HubContract, DroneContract and BeaconContract wrap a Backend such as
*core.Chain. Reverts come back as *RevertError values that match the
package's sentinel errors with errors.Is. Bootstrap deploys and wires a
complete system and can be re-run safely.
*/
package nexus
