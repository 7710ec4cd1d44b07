// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package db

import (
	"fmt"
	"sync"

	"github.com/ChainSafe/blockimport/dot/types"
	"github.com/ChainSafe/blockimport/lib/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultPinnedBlocksCacheSize = 1024

type pinnedBlock struct {
	pins           uint
	body           *types.Body
	justifications types.Justifications
}

// pinnedBlocksCache keeps the bodies and justifications of pinned
// blocks in memory, removing a block once all its pins are released.
// It is safe for concurrent use.
type pinnedBlocksCache struct {
	mutex  sync.Mutex
	blocks *lru.Cache[common.Hash, *pinnedBlock]
}

func newPinnedBlocksCache(size int) (*pinnedBlocksCache, error) {
	blocks, err := lru.NewWithEvict[common.Hash, *pinnedBlock](size, logPinnedEviction)
	if err != nil {
		return nil, fmt.Errorf("creating pinned blocks cache: %w", err)
	}
	return &pinnedBlocksCache{blocks: blocks}, nil
}

// logPinnedEviction is called for blocks leaving the cache, which
// happens with pins left only if the cache is full.
func logPinnedEviction(hash common.Hash, block *pinnedBlock) {
	if block.pins > 0 {
		logger.Debugf("pinned blocks cache is full, evicting block %s with %d pins",
			hash.Short(), block.pins)
		return
	}
	logger.Tracef("unpinned block %s removed from cache", hash.Short())
}

// pin adds a pin to the block, caching its body and justifications.
func (p *pinnedBlocksCache) pin(hash common.Hash, body *types.Body,
	justifications types.Justifications) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	block, ok := p.blocks.Get(hash)
	if !ok {
		block = &pinnedBlock{}
		p.blocks.Add(hash, block)
	}
	block.pins++
	block.body = body
	block.justifications = justifications
}

// unpin releases a pin of the block. Unpinning a block
// not pinned is a no-op.
func (p *pinnedBlocksCache) unpin(hash common.Hash) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	block, ok := p.blocks.Peek(hash)
	if !ok {
		return
	}

	block.pins--
	if block.pins == 0 {
		p.blocks.Remove(hash)
	}
}

// updateJustifications replaces the justifications of the block
// if it is pinned.
func (p *pinnedBlocksCache) updateJustifications(hash common.Hash,
	justifications types.Justifications) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if block, ok := p.blocks.Peek(hash); ok {
		block.justifications = justifications
	}
}

// body returns the body of the block if it is pinned with a body.
func (p *pinnedBlocksCache) body(hash common.Hash) (body *types.Body, ok bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	block, ok := p.blocks.Peek(hash)
	if !ok || block.body == nil {
		return nil, false
	}
	return block.body, true
}

// justifications returns the justifications of the block if it is
// pinned with justifications.
func (p *pinnedBlocksCache) justifications(hash common.Hash) (justifications types.Justifications, ok bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	block, ok := p.blocks.Peek(hash)
	if !ok || block.justifications == nil {
		return nil, false
	}
	return block.justifications, true
}

func (p *pinnedBlocksCache) pinned(hash common.Hash) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.blocks.Contains(hash)
}

func (p *pinnedBlocksCache) purge() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.blocks.Purge()
}
