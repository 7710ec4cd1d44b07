// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package columns defines the key prefixes of the chain database tables.
package columns

// Column is the key prefix of a database table.
type Column string

const (
	Meta Column = "meta:"
	// KeyLookup maps numbers to canonical hashes.
	KeyLookup      Column = "lookup:"
	Header         Column = "header:"
	Body           Column = "body:"
	Justifications Column = "justif:"
	Aux            Column = "aux:"
	// State holds a marker for blocks whose state is available, and
	// the state changes applied with the block.
	State Column = "state:"
	// BadBlocks holds the hashes of blocks marked as bad.
	BadBlocks Column = "bad:"
	// Arrival holds the import sequence number of blocks.
	Arrival Column = "arrival:"
)

// Key returns the column prefixed key.
func (c Column) Key(key []byte) []byte {
	prefixed := make([]byte, 0, len(c)+len(key))
	prefixed = append(prefixed, c...)
	prefixed = append(prefixed, key...)
	return prefixed
}
