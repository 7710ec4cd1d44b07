// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package queue

import (
	"context"

	"github.com/ChainSafe/blockimport/internal/client/consensus"
	"github.com/ChainSafe/blockimport/lib/common"
	"golang.org/x/sync/errgroup"
)

// verdict is the result of the speculative verification of a block.
// Its fields are only read once done is closed.
type verdict struct {
	done   chan struct{}
	params consensus.BlockImportParams
	err    error
	// skipped is true if the block was not verified.
	skipped bool
}

func newVerdict() *verdict {
	return &verdict{done: make(chan struct{})}
}

func (v *verdict) set(params consensus.BlockImportParams, err error) {
	v.params = params
	v.err = err
	close(v.done)
}

func (v *verdict) skip() {
	v.skipped = true
	close(v.done)
}

func (v *verdict) failed() bool {
	return v.skipped || v.err != nil
}

// verifyChunk dispatches the verification of the chunk blocks on the
// verification pool, in chunk order, and returns their verdicts.
// A block whose parent is earlier in the chunk is only verified once
// its parent verified successfully.
// The wait function returned blocks until all dispatched verifications
// have returned. Blocks not dispatched before ctx is cancelled are skipped.
func (q *Queue) verifyChunk(ctx context.Context, c chunk) (verdicts []*verdict, wait func()) {
	verdicts = make([]*verdict, len(c.blocks))
	for i := range verdicts {
		verdicts[i] = newVerdict()
	}

	group := new(errgroup.Group)
	group.SetLimit(q.config.VerificationWorkers)
	// dispatched verifications run to completion when the queue stops.
	verifyCtx := context.WithoutCancel(ctx)

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)

		indexes := make(map[common.Hash]int, len(c.blocks))
		for i, block := range c.blocks {
			i, block := i, block
			v := verdicts[i]

			var parent *verdict
			if block.Header != nil {
				parentIndex, ok := indexes[block.Header.ParentHash]
				if ok {
					parent = verdicts[parentIndex]
				}
			}
			indexes[block.Hash] = i

			if !q.shouldVerify(ctx, c, block) {
				v.skip()
				continue
			}

			group.Go(func() error {
				if parent != nil {
					<-parent.done
					if parent.failed() {
						v.skip()
						return nil
					}
				}

				verified, err := q.verifier.Verify(verifyCtx, block.ImportParams(c.origin))
				v.set(verified, err)
				return nil
			})
		}
	}()

	wait = func() {
		<-dispatched
		_ = group.Wait()
	}
	return verdicts, wait
}

// shouldVerify returns false for blocks which are bound to fail
// before reaching verification in the commit stage.
func (q *Queue) shouldVerify(ctx context.Context, c chunk, block consensus.IncomingBlock) bool {
	if ctx.Err() != nil || q.halted.Load() || block.Header == nil {
		return false
	}

	if _, bad := q.badBlocks.check(block.Hash, block.Header.ParentHash); bad {
		return false
	}

	return !c.batch.hasFailed(block.Header.ParentHash)
}
