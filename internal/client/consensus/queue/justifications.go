// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ChainSafe/blockimport/internal/client/consensus"
	"github.com/ChainSafe/blockimport/lib/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

// JustificationState is the state of the justification import for a block.
type JustificationState uint8

const (
	// JustificationStateUnknown is the state of blocks with no
	// justification activity known to the queue.
	JustificationStateUnknown JustificationState = iota
	// JustificationStateAwaitingBlock is the state of a justification
	// buffered until its block is imported.
	JustificationStateAwaitingBlock
	// JustificationStateAwaitingJustification is the state of an imported
	// block waiting for its justification to be imported.
	JustificationStateAwaitingJustification
	// JustificationStateJustifying is the state of a justification being imported.
	JustificationStateJustifying
	// JustificationStateFinalized is the state of a block whose
	// justification was imported.
	JustificationStateFinalized
	// JustificationStateFailed is the state of a block whose
	// justification failed.
	JustificationStateFailed
)

func (s JustificationState) String() string {
	switch s {
	case JustificationStateUnknown:
		return "unknown"
	case JustificationStateAwaitingBlock:
		return "awaiting block"
	case JustificationStateAwaitingJustification:
		return "awaiting justification"
	case JustificationStateJustifying:
		return "justifying"
	case JustificationStateFinalized:
		return "finalized"
	case JustificationStateFailed:
		return "failed"
	default:
		panic(fmt.Sprintf("justification state %d not implemented", s))
	}
}

// justificationStatesFactor is the number of states remembered
// per buffered block.
const justificationStatesFactor = 4

// justifications buffers justifications received before their
// block and tracks the justification state of blocks.
type justifications struct {
	mutex    sync.Mutex
	size     int
	buffered *lru.Cache[common.Hash, []consensus.JustificationItem]
	states   *lru.Cache[common.Hash, JustificationState]
}

func newJustifications(size int) (*justifications, error) {
	buffered, err := lru.New[common.Hash, []consensus.JustificationItem](size)
	if err != nil {
		return nil, fmt.Errorf("creating justifications buffer: %w", err)
	}

	states, err := lru.New[common.Hash, JustificationState](size * justificationStatesFactor)
	if err != nil {
		return nil, fmt.Errorf("creating justification states cache: %w", err)
	}

	return &justifications{
		size:     size,
		buffered: buffered,
		states:   states,
	}, nil
}

func (j *justifications) state(hash common.Hash) JustificationState {
	state, _ := j.states.Get(hash)
	return state
}

func (j *justifications) setState(hash common.Hash, state JustificationState) {
	j.states.Add(hash, state)
}

// buffer buffers the justification and returns the justifications
// dropped to make room for it: the justification of the same consensus
// engine already buffered for the block, and the justifications of the
// least recently used block if it was evicted.
// At most one justification per consensus engine is kept per block.
func (j *justifications) buffer(item consensus.JustificationItem) (dropped []consensus.JustificationItem) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	existing, ok := j.buffered.Peek(item.Hash)
	if !ok && j.buffered.Len() >= j.size {
		_, dropped, _ = j.buffered.RemoveOldest()
	}

	items := make([]consensus.JustificationItem, 0, len(existing)+1)
	for _, existingItem := range existing {
		if existingItem.Justification.EngineID == item.Justification.EngineID {
			dropped = append(dropped, existingItem)
			continue
		}
		items = append(items, existingItem)
	}
	items = append(items, item)

	j.buffered.Add(item.Hash, items)
	j.setState(item.Hash, JustificationStateAwaitingBlock)

	return dropped
}

// take removes and returns the justifications buffered for the hash.
func (j *justifications) take(hash common.Hash) (items []consensus.JustificationItem) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	items, ok := j.buffered.Peek(hash)
	if ok {
		j.buffered.Remove(hash)
	}
	return items
}

// takeAll removes and returns all the buffered justifications.
func (j *justifications) takeAll() (items []consensus.JustificationItem) {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	for _, hash := range j.buffered.Keys() {
		blockItems, _ := j.buffered.Peek(hash)
		items = append(items, blockItems...)
	}
	j.buffered.Purge()
	return items
}

func (q *Queue) handleJustifications(ctx context.Context, items []consensus.JustificationItem) {
	for _, item := range items {
		q.handleJustification(ctx, item)
	}
}

func (q *Queue) handleJustification(ctx context.Context, item consensus.JustificationItem) {
	switch {
	case q.halted.Load():
		q.reportJustification(item, false)
	case q.badBlocks.contains(item.Hash):
		q.logger.Debugf("rejecting justification for bad block %s", item.Hash.Short())
		q.reportJustification(item, false)
	case q.mailbox.contains(item.Hash):
		q.bufferJustification(item)
	default:
		q.importJustification(ctx, item, true)
	}
}

// importJustification imports the justification. If the block is unknown to
// the justification import and bufferUnknown is true, it is buffered.
func (q *Queue) importJustification(ctx context.Context, item consensus.JustificationItem, bufferUnknown bool) {
	if q.justificationImport == nil {
		q.logger.Debugf("no justification import for justification of block %s", item.Hash.Short())
		q.reportJustification(item, false)
		return
	}

	q.justifications.setState(item.Hash, JustificationStateJustifying)
	err := q.justificationImport.ImportJustification(context.WithoutCancel(ctx),
		item.Hash, item.Number, item.Justification)
	switch {
	case err == nil:
		q.reportJustification(item, true)
	case bufferUnknown && errors.Is(err, consensus.ErrUnknownBlock):
		q.bufferJustification(item)
	default:
		q.logger.Debugf("importing justification for block #%d (%s): %s",
			item.Number, item.Hash.Short(), err)
		q.reportJustification(item, false)
	}
}

func (q *Queue) bufferJustification(item consensus.JustificationItem) {
	dropped := q.justifications.buffer(item)
	for _, droppedItem := range dropped {
		q.logger.Debugf("dropping buffered justification for block %s",
			droppedItem.Hash.Short())
		if droppedItem.Hash == item.Hash {
			// the block is still awaited for the replacing justification.
			q.pushJustificationReport(droppedItem, false)
			continue
		}
		q.reportJustification(droppedItem, false)
	}
}

// releaseJustifications imports the justifications buffered for an imported block.
func (q *Queue) releaseJustifications(ctx context.Context, hash common.Hash) {
	items := q.justifications.take(hash)
	for _, item := range items {
		q.justifications.setState(hash, JustificationStateAwaitingJustification)
		q.importJustification(ctx, item, false)
	}
}

// failJustifications fails the justifications buffered for a failed block.
func (q *Queue) failJustifications(hash common.Hash) {
	items := q.justifications.take(hash)
	for _, item := range items {
		q.reportJustification(item, false)
	}
}

func (q *Queue) reportJustification(item consensus.JustificationItem, success bool) {
	state := JustificationStateFailed
	if success {
		state = JustificationStateFinalized
	}
	q.justifications.setState(item.Hash, state)
	q.pushJustificationReport(item, success)
}

func (q *Queue) pushJustificationReport(item consensus.JustificationItem, success bool) {
	q.metrics.JustificationProcessed(success)
	q.outbox.push(consensus.JustificationImportedReport{
		Who:     item.Who,
		Hash:    item.Hash,
		Number:  item.Number,
		Success: success,
	})
}
