// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package queue

import (
	"context"
	"sync"

	"github.com/ChainSafe/blockimport/internal/client/consensus"
	"github.com/ChainSafe/blockimport/lib/common"
	"golang.org/x/sync/semaphore"
)

// batch is the state shared by the chunks of one ImportBlocks call.
type batch struct {
	mutex sync.Mutex
	// failed holds the hashes of blocks of the batch which failed,
	// so their descendants in the batch are not verified.
	failed map[common.Hash]struct{}
}

func newBatch() *batch {
	return &batch{failed: make(map[common.Hash]struct{})}
}

func (b *batch) markFailed(hash common.Hash) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.failed[hash] = struct{}{}
}

func (b *batch) hasFailed(hash common.Hash) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	_, failed := b.failed[hash]
	return failed
}

// chunk is a group of at most capacity blocks of a batch.
type chunk struct {
	origin consensus.BlockOrigin
	blocks []consensus.IncomingBlock
	batch  *batch
}

// mailbox holds the chunks waiting for the worker.
// The semaphore counts blocks queued or in flight, and a chunk
// acquires a unit per block before being sent on the channel.
// Since every chunk holds at least one unit, the channel buffer
// of capacity chunks never blocks a send.
type mailbox struct {
	capacity  int64
	semaphore *semaphore.Weighted
	chunks    chan chunk

	mutex       sync.Mutex
	pending     map[common.Hash]int
	outstanding int
	onOccupancy func(blocks int)
}

func newMailbox(capacity int, onOccupancy func(blocks int)) *mailbox {
	return &mailbox{
		capacity:    int64(capacity),
		semaphore:   semaphore.NewWeighted(int64(capacity)),
		chunks:      make(chan chunk, capacity),
		pending:     make(map[common.Hash]int),
		onOccupancy: onOccupancy,
	}
}

// split splits the blocks into chunks of at most capacity blocks,
// all sharing the same batch state.
func (m *mailbox) split(origin consensus.BlockOrigin, blocks []consensus.IncomingBlock) (chunks []chunk) {
	shared := newBatch()
	size := int(m.capacity)
	for start := 0; start < len(blocks); start += size {
		end := start + size
		if end > len(blocks) {
			end = len(blocks)
		}
		chunks = append(chunks, chunk{
			origin: origin,
			blocks: blocks[start:end],
			batch:  shared,
		})
	}
	return chunks
}

// acquire blocks until there is space for the whole chunk.
func (m *mailbox) acquire(ctx context.Context, c chunk) error {
	return m.semaphore.Acquire(ctx, int64(len(c.blocks)))
}

// tryAcquire acquires space for as many blocks of the chunk as possible,
// in order, and returns how many blocks fit.
func (m *mailbox) tryAcquire(c chunk) (fitting int) {
	for fitting < len(c.blocks) && m.semaphore.TryAcquire(1) {
		fitting++
	}
	return fitting
}

// send queues a chunk whose space was acquired.
func (m *mailbox) send(c chunk) {
	m.mutex.Lock()
	for _, block := range c.blocks {
		m.pending[block.Hash]++
	}
	m.outstanding += len(c.blocks)
	m.onOccupancy(m.outstanding)
	m.mutex.Unlock()

	m.chunks <- c
}

// done releases the space of a processed block.
func (m *mailbox) done(hash common.Hash) {
	m.mutex.Lock()
	m.pending[hash]--
	if m.pending[hash] <= 0 {
		delete(m.pending, hash)
	}
	m.outstanding--
	m.onOccupancy(m.outstanding)
	m.mutex.Unlock()

	m.semaphore.Release(1)
}

// release releases space acquired for blocks never sent.
func (m *mailbox) release(blocks int) {
	if blocks > 0 {
		m.semaphore.Release(int64(blocks))
	}
}

// contains returns true if a block with the given hash
// is queued or in flight.
func (m *mailbox) contains(hash common.Hash) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.pending[hash] > 0
}

func (m *mailbox) occupancy() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.outstanding
}
