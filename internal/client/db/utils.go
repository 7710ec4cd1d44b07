// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package db

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/ChainSafe/blockimport/dot/types"
	"github.com/ChainSafe/blockimport/internal/client/db/columns"
	"github.com/ChainSafe/blockimport/internal/client/db/metakeys"
	"github.com/ChainSafe/blockimport/internal/database"
	"github.com/ChainSafe/blockimport/lib/common"
)

var errNumberTooLarge = errors.New("block number cannot be converted to uint32")

// Database metadata.
type meta struct {
	// Hash of the best known block.
	BestHash common.Hash
	// Number of the best known block.
	BestNumber uint
	// Import sequence number of the best known block.
	BestArrival uint64
	// Hash of the best finalized block.
	FinalizedHash common.Hash
	// Number of the best finalized block.
	FinalizedNumber uint
	// Hash of the genesis block.
	GenesisHash common.Hash
	// Last import sequence number.
	Arrival uint64
}

// A block lookup key: used for canonical lookup from block number to hash
type numberIndexKey [4]byte

// Convert block number into short lookup key (big endian representation)
// for blocks that are in the canonical chain.
func newNumberIndexKey(num uint) (numberIndexKey, error) {
	if num > math.MaxUint32 {
		return numberIndexKey{}, fmt.Errorf("%w: %d", errNumberTooLarge, num)
	}
	n := uint32(num)

	return numberIndexKey{byte(n >> 24), byte((n >> 16) & 0xff), byte((n >> 8) & 0xff), byte(n & 0xff)}, nil
}

func encodeUint64(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func decodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("decoding uint64: expected 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// readHeader reads the header of the block with the given hash.
// It returns an error wrapping database.ErrKeyNotFound if the block is unknown.
func readHeader(reader database.Reader, hash common.Hash) (*types.Header, error) {
	encoded, err := reader.Get(columns.Header.Key(hash[:]))
	if err != nil {
		return nil, fmt.Errorf("getting header %s: %w", hash.Short(), err)
	}

	header, err := types.DecodeHeader(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding header %s: %w", hash.Short(), err)
	}
	return header, nil
}

func readHash(reader database.Reader, key []byte) (common.Hash, error) {
	encoded, err := reader.Get(key)
	if err != nil {
		return common.Hash{}, err
	}
	if len(encoded) != common.HashLength {
		return common.Hash{}, fmt.Errorf("decoding hash at key %q: expected %d bytes, got %d",
			key, common.HashLength, len(encoded))
	}
	return common.NewHash(encoded), nil
}

func readArrival(reader database.Reader, hash common.Hash) (uint64, error) {
	encoded, err := reader.Get(columns.Arrival.Key(hash[:]))
	if err != nil {
		return 0, fmt.Errorf("getting arrival of %s: %w", hash.Short(), err)
	}
	return decodeUint64(encoded)
}

// readMeta reads the database metadata. It returns an error wrapping
// database.ErrKeyNotFound if the database has no genesis block.
func readMeta(reader database.Reader) (m meta, err error) {
	m.GenesisHash, err = readHash(reader, columns.Meta.Key(metakeys.GenesisHash))
	if err != nil {
		return m, fmt.Errorf("reading genesis hash: %w", err)
	}

	m.BestHash, err = readHash(reader, columns.Meta.Key(metakeys.BestBlock))
	if err != nil {
		return m, fmt.Errorf("reading best hash: %w", err)
	}

	bestHeader, err := readHeader(reader, m.BestHash)
	if err != nil {
		return m, fmt.Errorf("reading best header: %w", err)
	}
	m.BestNumber = bestHeader.Number

	m.BestArrival, err = readArrival(reader, m.BestHash)
	if err != nil {
		return m, fmt.Errorf("reading best arrival: %w", err)
	}

	m.FinalizedHash, err = readHash(reader, columns.Meta.Key(metakeys.FinalizedBlock))
	if err != nil {
		return m, fmt.Errorf("reading finalized hash: %w", err)
	}

	finalizedHeader, err := readHeader(reader, m.FinalizedHash)
	if err != nil {
		return m, fmt.Errorf("reading finalized header: %w", err)
	}
	m.FinalizedNumber = finalizedHeader.Number

	encodedArrival, err := reader.Get(columns.Meta.Key(metakeys.ArrivalSequence))
	if err != nil {
		return m, fmt.Errorf("reading arrival sequence: %w", err)
	}
	m.Arrival, err = decodeUint64(encodedArrival)
	if err != nil {
		return m, fmt.Errorf("reading arrival sequence: %w", err)
	}

	return m, nil
}
