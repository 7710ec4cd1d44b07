// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package queue

import (
	"fmt"

	"github.com/ChainSafe/blockimport/lib/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

// badBlocks is a bounded set of hashes of blocks known to be bad.
// An evicted hash is verified again when it shows up.
type badBlocks struct {
	cache *lru.Cache[common.Hash, struct{}]
}

func newBadBlocks(size int) (*badBlocks, error) {
	cache, err := lru.New[common.Hash, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("creating bad blocks cache: %w", err)
	}
	return &badBlocks{cache: cache}, nil
}

func (b *badBlocks) add(hash common.Hash) {
	b.cache.Add(hash, struct{}{})
}

func (b *badBlocks) contains(hash common.Hash) bool {
	return b.cache.Contains(hash)
}

// check returns the first bad hash of the block hash and its parent hash.
func (b *badBlocks) check(hash, parentHash common.Hash) (badHash common.Hash, bad bool) {
	switch {
	case b.cache.Contains(hash):
		return hash, true
	case b.cache.Contains(parentHash):
		return parentHash, true
	default:
		return common.Hash{}, false
	}
}
