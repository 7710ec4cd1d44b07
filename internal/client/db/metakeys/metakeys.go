// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package metakeys defines the keys of entries in the meta column.
package metakeys

// BestBlock is the best block key.
var BestBlock = []byte("best")

// FinalizedBlock is the last finalized block key.
var FinalizedBlock = []byte("final")

// GenesisHash is the genesis block hash key.
var GenesisHash = []byte("gen")

// ArrivalSequence is the key of the last block import sequence number.
var ArrivalSequence = []byte("seq")

// ChildrenPrefix is the prefix of children list keys.
var ChildrenPrefix = []byte("children")
