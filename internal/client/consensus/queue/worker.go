// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/ChainSafe/blockimport/internal/client/consensus"
)

// run is the single worker committing blocks in order.
func (q *Queue) run(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-q.mailbox.chunks:
			q.processChunk(ctx, c)
		case items := <-q.justificationBatches:
			q.handleJustifications(ctx, items)
		}
	}
}

func (q *Queue) processChunk(ctx context.Context, c chunk) {
	verdicts, wait := q.verifyChunk(ctx, c)

	results := make([]consensus.BlockImportOutcome, len(c.blocks))
	imported := 0
	for i := range c.blocks {
		results[i] = q.commitBlock(ctx, c, c.blocks[i], verdicts[i])
		if results[i].Imported() {
			imported++
		}
	}

	wait()

	q.outbox.push(consensus.BlocksProcessedReport{
		Origin:   c.origin,
		Imported: imported,
		Count:    len(c.blocks),
		Results:  results,
	})
	q.logger.Debugf("processed %d blocks from %s, %d imported",
		len(c.blocks), c.origin, imported)

	for i, block := range c.blocks {
		notify(block, results[i])
		q.mailbox.done(block.Hash)
	}

	// follow ups are reported after the blocks processed report.
	for _, result := range results {
		if !result.Imported() {
			q.failJustifications(result.Hash)
			continue
		}

		status, ok := result.Status.(consensus.ImportedUnknown)
		if ok && status.Aux.NeedsJustification {
			q.justifications.setState(result.Hash, JustificationStateAwaitingJustification)
			q.outbox.push(consensus.RequestJustificationReport{
				Hash:   result.Hash,
				Number: status.Number,
			})
		}
		q.releaseJustifications(ctx, result.Hash)
	}
}

// commitBlock checks and imports the block, once its verification
// is done, and returns its outcome.
func (q *Queue) commitBlock(ctx context.Context, c chunk, block consensus.IncomingBlock,
	v *verdict) consensus.BlockImportOutcome {
	hash := block.Hash
	fail := func(kind, err error, format string, args ...any) consensus.BlockImportOutcome {
		c.batch.markFailed(hash)
		q.metrics.BlockFailed(kind)
		return consensus.BlockImportOutcome{
			Hash: hash,
			Err:  consensus.NewBlockImportError(kind, blamedPeer(c.origin, block), err, format, args...),
		}
	}

	switch {
	case q.halted.Load():
		return fail(consensus.ErrCancelled, nil, "commits halted after backend failure")
	case ctx.Err() != nil:
		return fail(consensus.ErrCancelled, nil, "import queue stopped")
	case block.Header == nil:
		return fail(consensus.ErrIncompleteHeader, nil, "block %s has no header", hash.Short())
	}

	header := block.Header
	if c.batch.hasFailed(header.ParentHash) {
		return fail(consensus.ErrUnknownParent, nil, "parent %s failed earlier in the batch",
			header.ParentHash.Short())
	}

	if badHash, bad := q.badBlocks.check(hash, header.ParentHash); bad {
		q.metrics.BadBlockCacheHit()
		q.badBlocks.add(hash)
		return fail(consensus.ErrBadBlock, nil, "block #%d (%s) descends from bad block %s",
			header.Number, hash.Short(), badHash.Short())
	}

	// started commits complete even if the queue is stopping.
	commitCtx := context.WithoutCancel(ctx)

	checkResult, err := q.blockImport.CheckBlock(commitCtx, block.CheckParams())
	if err != nil {
		return q.failOnError(fail, err, "checking block #%d (%s)", header.Number, hash.Short())
	}

	switch checkResult.(type) {
	case consensus.ImportResultImported:
	case consensus.ImportResultAlreadyInChain:
		q.metrics.BlockImported(true)
		return consensus.BlockImportOutcome{
			Hash:   hash,
			Status: consensus.ImportedKnown{Number: header.Number, Who: block.Origin},
		}
	default:
		return q.failOnResult(fail, checkResult, block)
	}

	q.awaitVerdict(ctx, v)
	switch {
	case v.skipped:
		return fail(consensus.ErrUnknownParent, nil, "parent %s was not verified",
			header.ParentHash.Short())
	case errors.Is(v.err, consensus.ErrTransient):
		return fail(consensus.ErrOther, v.err, "verifying block #%d (%s)", header.Number, hash.Short())
	case v.err != nil:
		q.badBlocks.add(hash)
		q.logger.Debugf("block #%d (%s) from %s failed verification: %s",
			header.Number, hash.Short(), c.origin, v.err)
		return fail(consensus.ErrVerificationFailed, v.err, "verifying block #%d (%s)",
			header.Number, hash.Short())
	}

	params := v.params
	params.Origin = c.origin
	params.ImportExisting = block.ImportExisting

	result, err := q.blockImport.ImportBlock(commitCtx, params)
	if err != nil {
		return q.failOnError(fail, err, "importing block #%d (%s)", header.Number, hash.Short())
	}

	switch result := result.(type) {
	case consensus.ImportResultImported:
		q.metrics.BlockImported(false)
		q.logger.Tracef("imported block #%d (%s), new best: %t",
			header.Number, hash.Short(), result.Aux.IsNewBest)
		return consensus.BlockImportOutcome{
			Hash: hash,
			Status: consensus.ImportedUnknown{
				Number: header.Number,
				Aux:    result.Aux,
				Who:    block.Origin,
			},
		}
	case consensus.ImportResultAlreadyInChain:
		q.metrics.BlockImported(true)
		return consensus.BlockImportOutcome{
			Hash:   hash,
			Status: consensus.ImportedKnown{Number: header.Number, Who: block.Origin},
		}
	default:
		return q.failOnResult(fail, result, block)
	}
}

type failFunc func(kind, err error, format string, args ...any) consensus.BlockImportOutcome

func (q *Queue) failOnResult(fail failFunc, result consensus.ImportResult,
	block consensus.IncomingBlock) consensus.BlockImportOutcome {
	header := block.Header
	switch result.(type) {
	case consensus.ImportResultKnownBad:
		q.badBlocks.add(block.Hash)
		return fail(consensus.ErrBadBlock, nil, "block #%d (%s) is known bad",
			header.Number, block.Hash.Short())
	case consensus.ImportResultUnknownParent, consensus.ImportResultMissingParentOrForkingUp:
		return fail(consensus.ErrUnknownParent, nil, "parent %s of block #%d is not in the chain",
			header.ParentHash.Short(), header.Number)
	case consensus.ImportResultMissingState:
		return fail(consensus.ErrMissingState, nil, "state of parent %s of block #%d is missing",
			header.ParentHash.Short(), header.Number)
	default:
		return fail(consensus.ErrOther, nil, "unexpected import result %T for block #%d",
			result, header.Number)
	}
}

func (q *Queue) failOnError(fail failFunc, err error, format string, args ...any) consensus.BlockImportOutcome {
	switch {
	case errors.Is(err, consensus.ErrBackendFailure):
		q.halt(err)
		return fail(consensus.ErrCancelled, err, format, args...)
	case errors.Is(err, consensus.ErrIncompletePipeline):
		q.logger.Criticalf("%s: %s", fmt.Sprintf(format, args...), err)
		return fail(consensus.ErrOther, err, format, args...)
	default:
		return fail(consensus.ErrOther, err, format, args...)
	}
}

// awaitVerdict waits for the verification of a block to complete,
// processing justifications meanwhile.
func (q *Queue) awaitVerdict(ctx context.Context, v *verdict) {
	for {
		select {
		case <-v.done:
			return
		case items := <-q.justificationBatches:
			q.handleJustifications(ctx, items)
		}
	}
}

// halt stops all further commits after a backend failure.
func (q *Queue) halt(err error) {
	if !q.halted.CompareAndSwap(false, true) {
		return
	}

	q.logger.Criticalf("halting block import after backend failure: %s", err)
	select {
	case q.fatal <- err:
	default:
	}
}

// notify sends the outcome to the block notifier without blocking.
func notify(block consensus.IncomingBlock, outcome consensus.BlockImportOutcome) {
	if block.Done == nil {
		return
	}

	select {
	case block.Done <- outcome:
	default:
	}
}
