// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package db

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/blockimport/internal/client/db/columns"
	"github.com/ChainSafe/blockimport/internal/client/db/metakeys"
	"github.com/ChainSafe/blockimport/internal/database"
	"github.com/ChainSafe/blockimport/lib/common"
)

// Functionality for reading and storing children hashes from db.
// Each parent has a children count entry, one entry per child index
// holding the child hash, and one entry per child hash used to skip
// duplicates. Adding a child never rewrites the existing entries.

func childrenKey(parentHash common.Hash, suffix []byte) []byte {
	key := make([]byte, 0, len(metakeys.ChildrenPrefix)+common.HashLength+len(suffix))
	key = append(key, metakeys.ChildrenPrefix...)
	key = append(key, parentHash[:]...)
	key = append(key, suffix...)
	return columns.Meta.Key(key)
}

func childrenCountKey(parentHash common.Hash) []byte {
	return childrenKey(parentHash, nil)
}

func childIndexKey(parentHash common.Hash, index uint64) []byte {
	return childrenKey(parentHash, encodeUint64(index))
}

func childHashKey(parentHash, childHash common.Hash) []byte {
	return childrenKey(parentHash, childHash[:])
}

func readChildrenCount(reader database.Reader, parentHash common.Hash) (count uint64, err error) {
	encoded, err := reader.Get(childrenCountKey(parentHash))
	if errors.Is(err, database.ErrKeyNotFound) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}

	count, err = decodeUint64(encoded)
	if err != nil {
		return 0, fmt.Errorf("decoding children count: %w", err)
	}
	return count, nil
}

// Returns the hashes of the children blocks of the block with `parentHash`,
// in insertion order.
func readChildren(reader database.Reader, parentHash common.Hash) ([]common.Hash, error) {
	count, err := readChildrenCount(reader, parentHash)
	if err != nil {
		return nil, err
	} else if count == 0 {
		return nil, nil
	}

	children := make([]common.Hash, count)
	for i := range children {
		encoded, err := reader.Get(childIndexKey(parentHash, uint64(i)))
		if err != nil {
			return nil, fmt.Errorf("getting child %d: %w", i, err)
		}
		if len(encoded) != common.HashLength {
			return nil, fmt.Errorf("decoding child %d: %w: %d", i, common.ErrHashLength, len(encoded))
		}
		children[i] = common.NewHash(encoded)
	}

	return children, nil
}

// Adds `childHash` to the children of `parentHash`, reading existing
// entries from `reader` and writing the new ones to `writer`.
// It does nothing if the child is already recorded.
func addChild(reader database.Reader, writer database.Writer, parentHash, childHash common.Hash) error {
	known, err := database.Has(reader, childHashKey(parentHash, childHash))
	if err != nil {
		return fmt.Errorf("checking child: %w", err)
	} else if known {
		return nil
	}

	count, err := readChildrenCount(reader, parentHash)
	if err != nil {
		return err
	}

	err = writer.Set(childIndexKey(parentHash, count), childHash.ToBytes())
	if err != nil {
		return fmt.Errorf("setting child index: %w", err)
	}

	err = writer.Set(childHashKey(parentHash, childHash), encodeUint64(count))
	if err != nil {
		return fmt.Errorf("setting child hash: %w", err)
	}

	err = writer.Set(childrenCountKey(parentHash), encodeUint64(count+1))
	if err != nil {
		return fmt.Errorf("setting children count: %w", err)
	}

	return nil
}
