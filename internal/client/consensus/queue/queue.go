// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package queue implements the block import queue: blocks are verified
// in parallel and committed in order by a single worker.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ChainSafe/blockimport/internal/client/consensus"
	"github.com/ChainSafe/blockimport/internal/log"
	"github.com/ChainSafe/blockimport/lib/common"
	"github.com/libp2p/go-libp2p/core/peer"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "import-queue"))

var (
	ErrAlreadyStarted = errors.New("import queue already started")
	ErrQueueStopped   = errors.New("import queue stopped")
)

var _ consensus.ImportQueue = (*Queue)(nil)

// Queue is the block import queue.
type Queue struct {
	config              Config
	blockImport         consensus.BlockImport
	verifier            consensus.Verifier
	justificationImport consensus.JustificationImport
	logger              log.LeveledLogger
	metrics             Metrics

	mailbox              *mailbox
	justificationBatches chan []consensus.JustificationItem
	badBlocks            *badBlocks
	justifications       *justifications
	outbox               *outbox

	halted atomic.Bool
	fatal  chan error

	// ctx is cancelled on Stop.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lifecycleMutex sync.Mutex
	started        bool
	// stopped is protected by enqueueMutex, held for reading while
	// sending to the worker channels.
	enqueueMutex sync.RWMutex
	stopped      bool
}

// New creates an import queue. The justification import may be nil,
// in which case all justifications fail.
func New(config Config, blockImport consensus.BlockImport, verifier consensus.Verifier,
	justificationImport consensus.JustificationImport) (queue *Queue, err error) {
	config.SetDefaults()
	err = config.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	badBlocks, err := newBadBlocks(config.BadBlockCacheSize)
	if err != nil {
		return nil, err
	}

	justifications, err := newJustifications(config.JustificationBuffer)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		config:               config,
		blockImport:          blockImport,
		verifier:             verifier,
		justificationImport:  justificationImport,
		logger:               config.leveledLogger(),
		metrics:              config.Metrics,
		mailbox:              newMailbox(config.Capacity, config.Metrics.SetMailboxOccupancy),
		justificationBatches: make(chan []consensus.JustificationItem, config.JustificationChannelSize),
		badBlocks:            badBlocks,
		justifications:       justifications,
		outbox:               newOutbox(),
		fatal:                make(chan error, 1),
		ctx:                  ctx,
		cancel:               cancel,
	}, nil
}

// Start starts the queue worker. Blocks enqueued before Start
// are processed once started.
func (q *Queue) Start() error {
	q.lifecycleMutex.Lock()
	defer q.lifecycleMutex.Unlock()

	switch {
	case q.ctx.Err() != nil:
		return ErrQueueStopped
	case q.started:
		return ErrAlreadyStarted
	}
	q.started = true

	if q.justificationImport != nil {
		for _, block := range q.justificationImport.OnStart(q.ctx) {
			q.outbox.push(consensus.RequestJustificationReport{
				Hash:   block.Hash,
				Number: block.Number,
			})
		}
	}

	q.wg.Add(1)
	go q.run(q.ctx)

	q.logger.Debugf("started with capacity %d, %s policy and %d verification workers",
		q.config.Capacity, q.config.Policy, q.config.VerificationWorkers)
	return nil
}

// Stop stops the queue. Verifications already dispatched complete, and
// blocks and justifications not yet processed are reported as cancelled.
// Calling Stop more than once is a no-op.
func (q *Queue) Stop() error {
	q.lifecycleMutex.Lock()
	defer q.lifecycleMutex.Unlock()

	if q.ctx.Err() != nil {
		return nil
	}
	q.cancel()

	q.enqueueMutex.Lock()
	q.stopped = true
	q.enqueueMutex.Unlock()

	q.wg.Wait()
	q.drain()

	q.logger.Debug("stopped")
	return nil
}

// drain reports everything left in the queue as cancelled.
func (q *Queue) drain() {
	for {
		select {
		case c := <-q.mailbox.chunks:
			q.rejectSent(c, consensus.ErrCancelled, ErrQueueStopped.Error())
		case items := <-q.justificationBatches:
			for _, item := range items {
				q.reportJustification(item, false)
			}
		default:
			for _, item := range q.justifications.takeAll() {
				q.reportJustification(item, false)
			}
			return
		}
	}
}

// ImportBlocks enqueues blocks for import. Under the suspend policy, it
// blocks while the mailbox is full. Under the drop policy, blocks not
// fitting in the mailbox are reported as failed with ErrQueueFull.
func (q *Queue) ImportBlocks(ctx context.Context, origin consensus.BlockOrigin,
	blocks []consensus.IncomingBlock) error {
	if len(blocks) == 0 {
		return nil
	}

	if q.isStopped() {
		return ErrQueueStopped
	}

	chunks := q.mailbox.split(origin, blocks)
	for i, c := range chunks {
		var err error
		switch q.config.Policy {
		case PolicyDrop:
			err = q.enqueueOrDrop(c)
		default:
			err = q.enqueueOrSuspend(ctx, c)
		}

		if err != nil {
			kind, reason := consensus.ErrCancelled, err.Error()
			if errors.Is(err, consensus.ErrQueueFull) {
				// dropped blocks are only reported
				kind, err = consensus.ErrQueueFull, nil
			}

			for _, remaining := range chunks[i+1:] {
				q.reject(remaining.origin, remaining.blocks, kind, reason)
			}
			return err
		}
	}

	return nil
}

// enqueueOrSuspend waits for space for the whole chunk.
func (q *Queue) enqueueOrSuspend(ctx context.Context, c chunk) error {
	acquireCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(q.ctx, cancel)
	defer stop()

	err := q.mailbox.acquire(acquireCtx, c)
	if err != nil {
		if q.ctx.Err() != nil {
			err = ErrQueueStopped
		} else if ctx.Err() != nil {
			err = ctx.Err()
		}
		q.reject(c.origin, c.blocks, consensus.ErrCancelled, err.Error())
		return err
	}

	if !q.send(c) {
		q.reject(c.origin, c.blocks, consensus.ErrCancelled, ErrQueueStopped.Error())
		return ErrQueueStopped
	}
	return nil
}

// enqueueOrDrop enqueues the blocks fitting in the mailbox and rejects the others.
func (q *Queue) enqueueOrDrop(c chunk) error {
	fitting := q.mailbox.tryAcquire(c)
	if fitting > 0 {
		accepted := chunk{origin: c.origin, blocks: c.blocks[:fitting], batch: c.batch}
		if !q.send(accepted) {
			q.reject(c.origin, c.blocks, consensus.ErrCancelled, ErrQueueStopped.Error())
			return ErrQueueStopped
		}
	}

	if fitting < len(c.blocks) {
		q.logger.Debugf("import queue full, dropping %d blocks", len(c.blocks)-fitting)
		q.reject(c.origin, c.blocks[fitting:], consensus.ErrQueueFull, "mailbox is full")
		return consensus.ErrQueueFull
	}
	return nil
}

// send sends a chunk whose space was acquired to the worker.
// It returns false and releases the space if the queue is stopped.
func (q *Queue) send(c chunk) (sent bool) {
	q.enqueueMutex.RLock()
	defer q.enqueueMutex.RUnlock()

	if q.stopped {
		q.mailbox.release(len(c.blocks))
		return false
	}

	q.mailbox.send(c)
	return true
}

// reject reports blocks which never entered the mailbox as failed.
func (q *Queue) reject(origin consensus.BlockOrigin, blocks []consensus.IncomingBlock,
	kind error, reason string) {
	results := make([]consensus.BlockImportOutcome, len(blocks))
	for i, block := range blocks {
		results[i] = consensus.BlockImportOutcome{
			Hash: block.Hash,
			Err:  consensus.NewBlockImportError(kind, blamedPeer(origin, block), nil, "%s", reason),
		}
		q.metrics.BlockFailed(kind)
	}

	q.outbox.push(consensus.BlocksProcessedReport{
		Origin:  origin,
		Count:   len(blocks),
		Results: results,
	})

	for i, block := range blocks {
		notify(block, results[i])
	}
}

// blamedPeer returns the peer a failure of the block is attributed to,
// nil for blocks not received from the network.
func blamedPeer(origin consensus.BlockOrigin, block consensus.IncomingBlock) *peer.ID {
	if !origin.IsNetwork() {
		return nil
	}
	return block.Origin
}

// rejectSent reports blocks of a chunk sent to the mailbox as failed.
func (q *Queue) rejectSent(c chunk, kind error, reason string) {
	q.reject(c.origin, c.blocks, kind, reason)
	for _, block := range c.blocks {
		q.failJustifications(block.Hash)
		q.mailbox.done(block.Hash)
	}
}

// ImportJustifications enqueues justifications received from who.
func (q *Queue) ImportJustifications(ctx context.Context, who *peer.ID,
	items []consensus.JustificationItem) error {
	if len(items) == 0 {
		return nil
	}

	q.enqueueMutex.RLock()
	defer q.enqueueMutex.RUnlock()
	if q.stopped {
		return ErrQueueStopped
	}

	tagged := make([]consensus.JustificationItem, len(items))
	for i, item := range items {
		item.Who = who
		tagged[i] = item
	}

	select {
	case q.justificationBatches <- tagged:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return ErrQueueStopped
	}
}

// ServiceRef returns the enqueue side of the queue.
func (q *Queue) ServiceRef() consensus.ImportQueueService {
	return &Service{queue: q}
}

// PollActions replays the pending reports on the link, in order,
// and returns the number of reports replayed.
func (q *Queue) PollActions(link consensus.Link) int {
	reports := q.outbox.drain()
	for _, report := range reports {
		report.Replay(link)
	}
	return len(reports)
}

// Reports returns and removes the pending reports.
func (q *Queue) Reports() []consensus.Report {
	return q.outbox.drain()
}

// Ready returns a channel signalled when new reports are pending.
func (q *Queue) Ready() <-chan struct{} {
	return q.outbox.ready
}

// Fatal returns a channel receiving the backend failure which halted
// block commits, if any.
func (q *Queue) Fatal() <-chan error {
	return q.fatal
}

// JustificationState returns the justification state of the block.
func (q *Queue) JustificationState(hash common.Hash) JustificationState {
	return q.justifications.state(hash)
}

func (q *Queue) isStopped() bool {
	q.enqueueMutex.RLock()
	defer q.enqueueMutex.RUnlock()
	return q.stopped
}

// Service is the enqueue side of a queue.
type Service struct {
	queue *Queue
}

// ImportBlocks enqueues blocks in the queue.
func (s *Service) ImportBlocks(ctx context.Context, origin consensus.BlockOrigin,
	blocks []consensus.IncomingBlock) error {
	return s.queue.ImportBlocks(ctx, origin, blocks)
}

// ImportJustifications enqueues justifications in the queue.
func (s *Service) ImportJustifications(ctx context.Context, who *peer.ID,
	items []consensus.JustificationItem) error {
	return s.queue.ImportJustifications(ctx, who, items)
}
