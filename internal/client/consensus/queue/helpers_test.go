// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ChainSafe/blockimport/dot/types"
	"github.com/ChainSafe/blockimport/internal/client/consensus"
	"github.com/ChainSafe/blockimport/internal/client/db"
	"github.com/ChainSafe/blockimport/internal/database/memory"
	"github.com/ChainSafe/blockimport/lib/common"
	"github.com/stretchr/testify/require"
)

const reportsTimeout = 10 * time.Second

var testGenesis = *types.NewHeader(common.Hash{}, common.Hash{0xff}, common.Hash{}, 0, nil)

func newTestClient(t *testing.T, options db.Options) *db.Client {
	t.Helper()

	client, err := db.NewClient(memory.New(), testGenesis, options)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func newTestQueue(t *testing.T, config Config, blockImport consensus.BlockImport,
	verifier consensus.Verifier, justificationImport consensus.JustificationImport) *Queue {
	t.Helper()

	queue, err := New(config, blockImport, verifier, justificationImport)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = queue.Stop()
	})
	return queue
}

// newChild returns a child header of parent, salt differentiating siblings.
func newChild(parent *types.Header, salt uint16) *types.Header {
	stateRoot := common.Hash{byte(salt >> 8), byte(salt)}
	return types.NewHeader(parent.Hash(), stateRoot, common.Hash{}, parent.Number+1, nil)
}

// newChain returns n headers each child of the previous one, the first
// being a child of parent.
func newChain(parent *types.Header, n int) []*types.Header {
	headers := make([]*types.Header, n)
	for i := range headers {
		headers[i] = newChild(parent, 1)
		parent = headers[i]
	}
	return headers
}

func newIncomingBlock(header *types.Header) consensus.IncomingBlock {
	return consensus.IncomingBlock{
		Hash:   header.Hash(),
		Header: header,
	}
}

func newIncomingBlocks(headers ...*types.Header) []consensus.IncomingBlock {
	blocks := make([]consensus.IncomingBlock, len(headers))
	for i, header := range headers {
		blocks[i] = newIncomingBlock(header)
	}
	return blocks
}

// waitReports collects reports until done returns true for all the
// reports collected so far.
func waitReports(t *testing.T, queue *Queue, done func(reports []consensus.Report) bool) []consensus.Report {
	t.Helper()

	var reports []consensus.Report
	timer := time.NewTimer(reportsTimeout)
	defer timer.Stop()
	for {
		reports = append(reports, queue.Reports()...)
		if done(reports) {
			return reports
		}

		select {
		case <-queue.Ready():
		case <-timer.C:
			t.Fatalf("timed out waiting for reports, got %d reports", len(reports))
		}
	}
}

// processedBlocks returns true once at least n block outcomes are reported.
func processedBlocks(n int) func(reports []consensus.Report) bool {
	return func(reports []consensus.Report) bool {
		return len(blockOutcomes(reports)) >= n
	}
}

func blockOutcomes(reports []consensus.Report) (outcomes []consensus.BlockImportOutcome) {
	for _, report := range reports {
		processed, ok := report.(consensus.BlocksProcessedReport)
		if ok {
			outcomes = append(outcomes, processed.Results...)
		}
	}
	return outcomes
}

func outcomeKinds(outcomes []consensus.BlockImportOutcome) (kinds []error) {
	kinds = make([]error, len(outcomes))
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			kinds[i] = outcome.Err.Kind
		}
	}
	return kinds
}

// recordingMetrics records the maximum mailbox occupancy.
type recordingMetrics struct {
	noopMetrics
	mutex        sync.Mutex
	maxOccupancy int
}

func (r *recordingMetrics) SetMailboxOccupancy(blocks int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if blocks > r.maxOccupancy {
		r.maxOccupancy = blocks
	}
}

// countingBlockImport counts the blocks newly imported by the wrapped import.
type countingBlockImport struct {
	consensus.BlockImport
	mutex    sync.Mutex
	imported int
}

func (c *countingBlockImport) ImportBlock(ctx context.Context, params consensus.BlockImportParams) (
	consensus.ImportResult, error) {
	result, err := c.BlockImport.ImportBlock(ctx, params)
	if _, ok := result.(consensus.ImportResultImported); ok {
		c.mutex.Lock()
		c.imported++
		c.mutex.Unlock()
	}
	return result, err
}

// acceptingBlockImport imports every block without storing it.
type acceptingBlockImport struct {
	mutex    sync.Mutex
	imported int
}

func (a *acceptingBlockImport) CheckBlock(context.Context, consensus.BlockCheckParams) (
	consensus.ImportResult, error) {
	return consensus.ImportResultImported{}, nil
}

func (a *acceptingBlockImport) ImportBlock(context.Context, consensus.BlockImportParams) (
	consensus.ImportResult, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.imported++
	return consensus.ImportResultImported{}, nil
}
